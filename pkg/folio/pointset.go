package folio

import otp "github.com/burgrp-go/otp/pkg"

// pointKey identifies a point for union-replace purposes: address and
// priority together, since the same address can be reported at more than
// one priority by the same producer (ANSI E1.59 §4.3, "last-writer-wins by
// point-and-priority key").
type pointKey struct {
	addr     otp.Address
	priority otp.Priority
}

// PointSet is one producer's authoritative points for one system, kept up
// to date by repeatedly applying Promotions in folio-number order.
type PointSet struct {
	points map[pointKey]*otp.Point
}

// NewPointSet returns an empty authoritative point set.
func NewPointSet() *PointSet {
	return &PointSet{points: map[pointKey]*otp.Point{}}
}

// Apply promotes p into the set: a full set replaces every point
// wholesale, a delta union-replaces by (address, priority) key.
func (s *PointSet) Apply(p *Promotion) {
	if p == nil {
		return
	}
	if p.FullSet {
		s.points = make(map[pointKey]*otp.Point, len(p.Points))
	}
	for _, pt := range p.Points {
		s.points[pointKey{addr: pt.Address, priority: pt.Priority}] = pt
	}
}

// Points returns the current authoritative points, unordered.
func (s *PointSet) Points() []*otp.Point {
	out := make([]*otp.Point, 0, len(s.points))
	for _, pt := range s.points {
		out = append(out, pt)
	}
	return out
}
