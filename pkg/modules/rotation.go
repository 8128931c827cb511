package modules

import (
	"fmt"

	otp "github.com/burgrp-go/otp/pkg"
)

// Rotation carries orientation as milli-degrees around each axis.
type Rotation struct {
	X, Y, Z int32
}

const rotationDataLength = 12

func (r *Rotation) Identifier() otp.ModuleIdentifier { return otp.ModuleRotation }
func (r *Rotation) DataLength() int                  { return rotationDataLength }

func (r *Rotation) LogDescription() string {
	return fmt.Sprintf("rotation(x=%d,y=%d,z=%d)", r.X, r.Y, r.Z)
}

func (r *Rotation) Encode() []byte {
	buf := make([]byte, rotationDataLength)
	putInt32(buf[0:4], r.X)
	putInt32(buf[4:8], r.Y)
	putInt32(buf[8:12], r.Z)
	return buf
}

// DecodeRotation implements otp.Decoder.
func DecodeRotation(data []byte) (otp.Module, int, error) {
	if len(data) < rotationDataLength {
		return nil, 0, fmt.Errorf("modules: rotation: %w", otp.ErrShortBuffer)
	}
	r := &Rotation{
		X: getInt32(data[0:4]),
		Y: getInt32(data[4:8]),
		Z: getInt32(data[8:12]),
	}
	return r, rotationDataLength, nil
}

func (r *Rotation) Equals(other otp.Module) bool {
	o, ok := other.(*Rotation)
	return ok && *r == *o
}

func (r *Rotation) Merge(others []otp.Module) (otp.Optional[otp.Module], bool) {
	xs, ys, zs := []int32{r.X}, []int32{r.Y}, []int32{r.Z}
	for _, o := range others {
		v, ok := o.(*Rotation)
		if !ok {
			continue
		}
		xs = append(xs, v.X)
		ys = append(ys, v.Y)
		zs = append(zs, v.Z)
	}
	merged := &Rotation{X: meanInt32(xs), Y: meanInt32(ys), Z: meanInt32(zs)}
	return otp.NewDefined[otp.Module](merged), false
}

// Scale carries a per-axis scale factor in parts-per-10000 (10000 == 1.0).
type Scale struct {
	X, Y, Z int32
}

const scaleDataLength = 12

func (s *Scale) Identifier() otp.ModuleIdentifier { return otp.ModuleScale }
func (s *Scale) DataLength() int                  { return scaleDataLength }

func (s *Scale) LogDescription() string {
	return fmt.Sprintf("scale(x=%d,y=%d,z=%d)", s.X, s.Y, s.Z)
}

func (s *Scale) Encode() []byte {
	buf := make([]byte, scaleDataLength)
	putInt32(buf[0:4], s.X)
	putInt32(buf[4:8], s.Y)
	putInt32(buf[8:12], s.Z)
	return buf
}

// DecodeScale implements otp.Decoder.
func DecodeScale(data []byte) (otp.Module, int, error) {
	if len(data) < scaleDataLength {
		return nil, 0, fmt.Errorf("modules: scale: %w", otp.ErrShortBuffer)
	}
	s := &Scale{
		X: getInt32(data[0:4]),
		Y: getInt32(data[4:8]),
		Z: getInt32(data[8:12]),
	}
	return s, scaleDataLength, nil
}

func (s *Scale) Equals(other otp.Module) bool {
	o, ok := other.(*Scale)
	return ok && *s == *o
}

func (s *Scale) Merge(others []otp.Module) (otp.Optional[otp.Module], bool) {
	xs, ys, zs := []int32{s.X}, []int32{s.Y}, []int32{s.Z}
	for _, o := range others {
		v, ok := o.(*Scale)
		if !ok {
			continue
		}
		xs = append(xs, v.X)
		ys = append(ys, v.Y)
		zs = append(zs, v.Z)
	}
	merged := &Scale{X: meanInt32(xs), Y: meanInt32(ys), Z: meanInt32(zs)}
	return otp.NewDefined[otp.Module](merged), false
}
