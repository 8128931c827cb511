package otp

import (
	"fmt"
	"sort"
)

// Address identifies a point: system, group and point number, per ANSI
// E1.59 §3. The triple is totally ordered lexicographically.
type Address struct {
	System uint8
	Group  uint16
	Point  uint32
}

const (
	MinSystem = 1
	MaxSystem = 200

	MinGroup = 1
	MaxGroup = 60000

	MinPoint = 1
	MaxPoint = 4_000_000_000
)

// NewAddress validates and constructs an Address.
func NewAddress(system uint16, group uint32, point uint32) (Address, error) {
	if system < MinSystem || system > MaxSystem {
		return Address{}, ErrInvalidSystem
	}
	if group < MinGroup || group > MaxGroup {
		return Address{}, ErrInvalidGroup
	}
	if point < MinPoint || point > MaxPoint {
		return Address{}, ErrInvalidPoint
	}
	return Address{System: uint8(system), Group: uint16(group), Point: point}, nil
}

// Compare returns -1, 0 or 1 comparing a to b lexicographically by
// (System, Group, Point).
func (a Address) Compare(b Address) int {
	if a.System != b.System {
		if a.System < b.System {
			return -1
		}
		return 1
	}
	if a.Group != b.Group {
		if a.Group < b.Group {
			return -1
		}
		return 1
	}
	if a.Point != b.Point {
		if a.Point < b.Point {
			return -1
		}
		return 1
	}
	return 0
}

func (a Address) String() string {
	return fmt.Sprintf("%d/%d/%d", a.System, a.Group, a.Point)
}

// SortAddresses sorts a slice of addresses in place by Compare order.
func SortAddresses(addrs []Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Compare(addrs[j]) < 0
	})
}
