package modules

import (
	"fmt"

	otp "github.com/burgrp-go/otp/pkg"
)

// PositionOptionRelative is bit 0 of Position's options byte: set when X/Y/Z
// are relative to the point's parent (or reference frame) rather than
// absolute.
const PositionOptionRelative = 0x01

// Position is the one standard module fully specified to pin the Module
// contract (ANSI E1.59 §4.1's design note). X, Y and Z are whole
// micrometers; Relative selects relative-to-parent addressing.
type Position struct {
	Relative bool
	X, Y, Z  int32
}

const positionDataLength = 13 // 1 options byte + 3 * int32

func (p *Position) Identifier() otp.ModuleIdentifier { return otp.ModulePosition }
func (p *Position) DataLength() int                  { return positionDataLength }

func (p *Position) LogDescription() string {
	return fmt.Sprintf("position(x=%d,y=%d,z=%d,relative=%t)", p.X, p.Y, p.Z, p.Relative)
}

func (p *Position) Encode() []byte {
	buf := make([]byte, positionDataLength)
	if p.Relative {
		buf[0] = PositionOptionRelative
	}
	putInt32(buf[1:5], p.X)
	putInt32(buf[5:9], p.Y)
	putInt32(buf[9:13], p.Z)
	return buf
}

// DecodePosition implements otp.Decoder for ModulePosition.
func DecodePosition(data []byte) (otp.Module, int, error) {
	if len(data) < positionDataLength {
		return nil, 0, fmt.Errorf("modules: position: %w", otp.ErrShortBuffer)
	}
	p := &Position{
		Relative: data[0]&PositionOptionRelative != 0,
		X:        getInt32(data[1:5]),
		Y:        getInt32(data[5:9]),
		Z:        getInt32(data[9:13]),
	}
	return p, positionDataLength, nil
}

func (p *Position) Equals(other otp.Module) bool {
	o, ok := other.(*Position)
	if !ok {
		return false
	}
	return *p == *o
}

// Merge implements ANSI E1.59 §3's position-specific rule: scale μm to mm
// before averaging each of X, Y, Z. Relative addressing must agree across
// contributors — like Parent, mixing relative and absolute positioning at
// equal priority is not reconcilable, so it excludes the point.
func (p *Position) Merge(others []otp.Module) (otp.Optional[otp.Module], bool) {
	xs := make([]int32, 0, len(others)+1)
	ys := make([]int32, 0, len(others)+1)
	zs := make([]int32, 0, len(others)+1)
	relative := p.Relative

	xs = append(xs, p.X)
	ys = append(ys, p.Y)
	zs = append(zs, p.Z)

	for _, m := range others {
		o, ok := m.(*Position)
		if !ok {
			continue
		}
		if o.Relative != relative {
			return otp.NewUndefined[otp.Module](), true
		}
		xs = append(xs, o.X)
		ys = append(ys, o.Y)
		zs = append(zs, o.Z)
	}

	merged := &Position{
		Relative: relative,
		X:        meanMicrometersViaMillimeters(xs),
		Y:        meanMicrometersViaMillimeters(ys),
		Z:        meanMicrometersViaMillimeters(zs),
	}
	return otp.NewDefined[otp.Module](merged), false
}
