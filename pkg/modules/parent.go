package modules

import (
	"fmt"

	otp "github.com/burgrp-go/otp/pkg"
)

// Parent names the point this point's transform is expressed relative
// to, when Relative is set. It is the module ANSI E1.59's merge-exclusion
// example: "different parent reference points" at equal priority cannot
// be reconciled, so the point is dropped from the merge cycle
// (scenario 5, §8).
type Parent struct {
	Relative bool
	Address  otp.Address
}

const parentDataLength = 1 + 1 + 2 + 4 // options + system + group + point

func (p *Parent) Identifier() otp.ModuleIdentifier { return otp.ModuleParent }
func (p *Parent) DataLength() int                  { return parentDataLength }

func (p *Parent) LogDescription() string {
	return fmt.Sprintf("parent(%s,relative=%t)", p.Address, p.Relative)
}

func (p *Parent) Encode() []byte {
	buf := make([]byte, parentDataLength)
	if p.Relative {
		buf[0] = 0x01
	}
	buf[1] = byte(p.Address.System)
	buf[2] = byte(p.Address.Group >> 8)
	buf[3] = byte(p.Address.Group)
	buf[4] = byte(p.Address.Point >> 24)
	buf[5] = byte(p.Address.Point >> 16)
	buf[6] = byte(p.Address.Point >> 8)
	buf[7] = byte(p.Address.Point)
	return buf
}

// DecodeParent implements otp.Decoder.
func DecodeParent(data []byte) (otp.Module, int, error) {
	if len(data) < parentDataLength {
		return nil, 0, fmt.Errorf("modules: parent: %w", otp.ErrShortBuffer)
	}
	addr := otp.Address{
		System: data[1],
		Group:  uint16(data[2])<<8 | uint16(data[3]),
		Point:  uint32(data[4])<<24 | uint32(data[5])<<16 | uint32(data[6])<<8 | uint32(data[7]),
	}
	p := &Parent{
		Relative: data[0]&0x01 != 0,
		Address:  addr,
	}
	return p, parentDataLength, nil
}

func (p *Parent) Equals(other otp.Module) bool {
	o, ok := other.(*Parent)
	return ok && *p == *o
}

// Merge requires every contributor to name the same parent address with
// the same relative flag; any disagreement excludes the point, per
// ANSI E1.59 §3's worked example for this exact module.
func (p *Parent) Merge(others []otp.Module) (otp.Optional[otp.Module], bool) {
	for _, m := range others {
		o, ok := m.(*Parent)
		if !ok {
			continue
		}
		if o.Relative != p.Relative || o.Address != p.Address {
			return otp.NewUndefined[otp.Module](), true
		}
	}
	return otp.NewDefined[otp.Module](&Parent{Relative: p.Relative, Address: p.Address}), false
}

// ReferenceFrame names the coordinate system a point's Position/Rotation
// are expressed in. Like Parent, equal-priority contributors must agree.
type ReferenceFrame struct {
	Address otp.Address
}

const referenceFrameDataLength = 1 + 2 + 4 // system + group + point

func (r *ReferenceFrame) Identifier() otp.ModuleIdentifier { return otp.ModuleReferenceFrame }
func (r *ReferenceFrame) DataLength() int                  { return referenceFrameDataLength }

func (r *ReferenceFrame) LogDescription() string {
	return fmt.Sprintf("reference-frame(%s)", r.Address)
}

func (r *ReferenceFrame) Encode() []byte {
	buf := make([]byte, referenceFrameDataLength)
	buf[0] = byte(r.Address.System)
	buf[1] = byte(r.Address.Group >> 8)
	buf[2] = byte(r.Address.Group)
	buf[3] = byte(r.Address.Point >> 24)
	buf[4] = byte(r.Address.Point >> 16)
	buf[5] = byte(r.Address.Point >> 8)
	buf[6] = byte(r.Address.Point)
	return buf
}

// DecodeReferenceFrame implements otp.Decoder.
func DecodeReferenceFrame(data []byte) (otp.Module, int, error) {
	if len(data) < referenceFrameDataLength {
		return nil, 0, fmt.Errorf("modules: reference-frame: %w", otp.ErrShortBuffer)
	}
	addr := otp.Address{
		System: data[0],
		Group:  uint16(data[1])<<8 | uint16(data[2]),
		Point:  uint32(data[3])<<24 | uint32(data[4])<<16 | uint32(data[5])<<8 | uint32(data[6]),
	}
	return &ReferenceFrame{Address: addr}, referenceFrameDataLength, nil
}

func (r *ReferenceFrame) Equals(other otp.Module) bool {
	o, ok := other.(*ReferenceFrame)
	return ok && *r == *o
}

func (r *ReferenceFrame) Merge(others []otp.Module) (otp.Optional[otp.Module], bool) {
	for _, m := range others {
		o, ok := m.(*ReferenceFrame)
		if !ok {
			continue
		}
		if o.Address != r.Address {
			return otp.NewUndefined[otp.Module](), true
		}
	}
	return otp.NewDefined[otp.Module](&ReferenceFrame{Address: r.Address}), false
}
