package otp

import (
	"fmt"
	"sort"
)

// MaxNameBytes is the wire width of a point name (and of a component
// name) before NUL padding.
const MaxNameBytes = 32

// Point is the addressable unit of transform: an Address, a Priority
// ranking it against other producers of the same Address, a name shared
// by every point at that Address regardless of priority, and an
// unordered set of Modules keyed by ModuleIdentifier (at most one module
// of each identifier).
//
// Cid and Sampled are left undefined on a synthetic point produced by the
// consumer's priority merge (spec scenario 4: "cid = None, sampled =
// None"). The producer defines Sampled once a module is added or updated;
// no code path defines Cid.
type Point struct {
	Address  Address
	Priority Priority
	Name     string
	Modules  map[ModuleIdentifier]Module

	// Timestamp is the point layer's own per-point sample time,
	// microseconds since the producer's time origin (ANSI E1.59 §4.1). It is
	// distinct from the enclosing transform layer's Timestamp: a producer
	// may carry points sampled at different times within one datagram.
	Timestamp uint64

	Cid     Optional[CID]
	Sampled Optional[bool]
}

// NewPoint validates the name length and constructs an empty point.
func NewPoint(addr Address, priority Priority, name string) (*Point, error) {
	if len(name) > MaxNameBytes {
		return nil, fmt.Errorf("otp: point name %q exceeds %d bytes", name, MaxNameBytes)
	}
	return &Point{
		Address:  addr,
		Priority: priority,
		Name:     name,
		Modules:  make(map[ModuleIdentifier]Module),
	}, nil
}

// HasModule reports whether a module of this identifier is present.
func (p *Point) HasModule(id ModuleIdentifier) bool {
	_, ok := p.Modules[id]
	return ok
}

// ModuleIdentifiers returns the set of module identifiers present on the
// point, in ascending order.
func (p *Point) ModuleIdentifiers() []ModuleIdentifier {
	ids := make([]ModuleIdentifier, 0, len(p.Modules))
	for id := range p.Modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Compare(ids[j]) < 0
	})
	return ids
}

// IsSampled reports whether the point has ever had a module updated.
// Unsampled points are never transmitted (ANSI E1.59 §3, "Point").
func (p *Point) IsSampled() bool {
	return p.Sampled.GetOrDefault(false)
}

// Clone returns a shallow copy of the point with its own Modules map
// (module values themselves are treated as immutable once encoded).
func (p *Point) Clone() *Point {
	c := *p
	c.Modules = make(map[ModuleIdentifier]Module, len(p.Modules))
	for id, m := range p.Modules {
		c.Modules[id] = m
	}
	return &c
}
