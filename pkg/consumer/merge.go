package consumer

import (
	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/peer"
)

// runDelegateTick performs one merge-and-delegate cycle (ANSI E1.59 §4.3
// "Merge and delegate"): combine the points of online producers, group
// by address, select the highest-priority subset, merge modules when
// more than one contributor remains, and notify the delegate of whatever
// changed since the last cycle.
func (c *Consumer) runDelegateTick() {
	c.mu.Lock()
	contributors := map[otp.Address][]*otp.Point{}
	for _, pp := range c.producers {
		if pp.Visibility != peer.Online {
			continue
		}
		for _, pt := range pp.Points() {
			contributors[pt.Address] = append(contributors[pt.Address], pt)
		}
		for addr, name := range pp.Names {
			for _, pt := range contributors[addr] {
				if pt.Name == "" {
					pt.Name = name
				}
			}
		}
	}
	delegate := c.cfg.Delegate
	c.mu.Unlock()

	merged := map[otp.Address]*otp.Point{}
	for addr, pts := range contributors {
		if pt, ok := mergeAddress(pts); ok {
			merged[addr] = pt
		}
	}

	c.mu.Lock()
	addressSetChanged := addressSetDiffers(merged, c.lastSnapshot)
	var changedPoints []*otp.Point
	if !addressSetChanged {
		for addr, pt := range merged {
			if !pointsEquivalent(pt, c.lastSnapshot[addr]) {
				changedPoints = append(changedPoints, pt)
			}
		}
	}
	c.lastSnapshot = merged
	c.mu.Unlock()

	if delegate == nil {
		return
	}
	if addressSetChanged {
		delegate.ReplaceAllPoints(sortedPoints(merged))
	} else if len(changedPoints) > 0 {
		delegate.PointsChanged(changedPoints)
	}
}

// mergeAddress reduces the contributors at one address to a single point
// per ANSI E1.59 §4.3: select the highest-priority subset; if it has one
// member, take it verbatim; otherwise delegate per-module to each
// module's Merge, excluding the address entirely if any module signals
// excludePoint.
func mergeAddress(points []*otp.Point) (*otp.Point, bool) {
	highest := points[0].Priority
	for _, pt := range points[1:] {
		if pt.Priority > highest {
			highest = pt.Priority
		}
	}
	var subset []*otp.Point
	for _, pt := range points {
		if pt.Priority == highest {
			subset = append(subset, pt)
		}
	}
	if len(subset) == 1 {
		return subset[0], true
	}

	ids := map[otp.ModuleIdentifier]bool{}
	for _, pt := range subset {
		for id := range pt.Modules {
			ids[id] = true
		}
	}

	merged, err := otp.NewPoint(subset[0].Address, highest, subset[0].Name)
	if err != nil {
		return nil, false
	}
	merged.Cid = otp.NewUndefined[otp.CID]()
	merged.Sampled = otp.NewUndefined[bool]()

	for id := range ids {
		var candidates []otp.Module
		for _, pt := range subset {
			if m, ok := pt.Modules[id]; ok {
				candidates = append(candidates, m)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		result, exclude := candidates[0].Merge(candidates[1:])
		if exclude {
			return nil, false
		}
		if result.IsDefined() {
			merged.Modules[id] = result.Get()
		}
	}
	return merged, true
}

func addressSetDiffers(a, b map[otp.Address]*otp.Point) bool {
	if len(a) != len(b) {
		return true
	}
	for addr := range a {
		if _, ok := b[addr]; !ok {
			return true
		}
	}
	return false
}

// pointsEquivalent reports whether two points (same address, from
// consecutive merge cycles) agree in everything the delegate cares about:
// priority, name, and module contents.
func pointsEquivalent(a, b *otp.Point) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Priority != b.Priority || a.Name != b.Name || len(a.Modules) != len(b.Modules) {
		return false
	}
	for id, m := range a.Modules {
		other, ok := b.Modules[id]
		if !ok || !m.Equals(other) {
			return false
		}
	}
	return true
}

func sortedPoints(m map[otp.Address]*otp.Point) []*otp.Point {
	addrs := make([]otp.Address, 0, len(m))
	for addr := range m {
		addrs = append(addrs, addr)
	}
	otp.SortAddresses(addrs)
	out := make([]*otp.Point, len(addrs))
	for i, addr := range addrs {
		out[i] = m[addr]
	}
	return out
}
