package modules

import (
	"fmt"

	otp "github.com/burgrp-go/otp/pkg"
)

// PositionVelocityAcceleration carries the first and second derivatives
// of Position, in micrometers/s and micrometers/s^2. It depends on
// Position being present on the point (ANSI E1.59 §4.2's association
// table).
type PositionVelocityAcceleration struct {
	VX, VY, VZ int32
	AX, AY, AZ int32
}

const pvaDataLength = 24

func (m *PositionVelocityAcceleration) Identifier() otp.ModuleIdentifier {
	return otp.ModulePositionVelocityAcceleration
}
func (m *PositionVelocityAcceleration) DataLength() int { return pvaDataLength }

func (m *PositionVelocityAcceleration) LogDescription() string {
	return fmt.Sprintf("position-velocity-acceleration(v=%d,%d,%d a=%d,%d,%d)", m.VX, m.VY, m.VZ, m.AX, m.AY, m.AZ)
}

func (m *PositionVelocityAcceleration) Encode() []byte {
	buf := make([]byte, pvaDataLength)
	putInt32(buf[0:4], m.VX)
	putInt32(buf[4:8], m.VY)
	putInt32(buf[8:12], m.VZ)
	putInt32(buf[12:16], m.AX)
	putInt32(buf[16:20], m.AY)
	putInt32(buf[20:24], m.AZ)
	return buf
}

// DecodePositionVelocityAcceleration implements otp.Decoder.
func DecodePositionVelocityAcceleration(data []byte) (otp.Module, int, error) {
	if len(data) < pvaDataLength {
		return nil, 0, fmt.Errorf("modules: position-velocity-acceleration: %w", otp.ErrShortBuffer)
	}
	m := &PositionVelocityAcceleration{
		VX: getInt32(data[0:4]),
		VY: getInt32(data[4:8]),
		VZ: getInt32(data[8:12]),
		AX: getInt32(data[12:16]),
		AY: getInt32(data[16:20]),
		AZ: getInt32(data[20:24]),
	}
	return m, pvaDataLength, nil
}

func (m *PositionVelocityAcceleration) Equals(other otp.Module) bool {
	o, ok := other.(*PositionVelocityAcceleration)
	return ok && *m == *o
}

func (m *PositionVelocityAcceleration) Merge(others []otp.Module) (otp.Optional[otp.Module], bool) {
	vxs, vys, vzs := []int32{m.VX}, []int32{m.VY}, []int32{m.VZ}
	axs, ays, azs := []int32{m.AX}, []int32{m.AY}, []int32{m.AZ}
	for _, o := range others {
		v, ok := o.(*PositionVelocityAcceleration)
		if !ok {
			continue
		}
		vxs = append(vxs, v.VX)
		vys = append(vys, v.VY)
		vzs = append(vzs, v.VZ)
		axs = append(axs, v.AX)
		ays = append(ays, v.AY)
		azs = append(azs, v.AZ)
	}
	merged := &PositionVelocityAcceleration{
		VX: meanInt32(vxs), VY: meanInt32(vys), VZ: meanInt32(vzs),
		AX: meanInt32(axs), AY: meanInt32(ays), AZ: meanInt32(azs),
	}
	return otp.NewDefined[otp.Module](merged), false
}

// RotationVelocityAcceleration carries the first and second derivatives
// of Rotation, in milli-degrees/s and milli-degrees/s^2. It depends on
// Rotation being present on the point.
type RotationVelocityAcceleration struct {
	VX, VY, VZ int32
	AX, AY, AZ int32
}

func (m *RotationVelocityAcceleration) Identifier() otp.ModuleIdentifier {
	return otp.ModuleRotationVelocityAcceleration
}
func (m *RotationVelocityAcceleration) DataLength() int { return pvaDataLength }

func (m *RotationVelocityAcceleration) LogDescription() string {
	return fmt.Sprintf("rotation-velocity-acceleration(v=%d,%d,%d a=%d,%d,%d)", m.VX, m.VY, m.VZ, m.AX, m.AY, m.AZ)
}

func (m *RotationVelocityAcceleration) Encode() []byte {
	buf := make([]byte, pvaDataLength)
	putInt32(buf[0:4], m.VX)
	putInt32(buf[4:8], m.VY)
	putInt32(buf[8:12], m.VZ)
	putInt32(buf[12:16], m.AX)
	putInt32(buf[16:20], m.AY)
	putInt32(buf[20:24], m.AZ)
	return buf
}

// DecodeRotationVelocityAcceleration implements otp.Decoder.
func DecodeRotationVelocityAcceleration(data []byte) (otp.Module, int, error) {
	if len(data) < pvaDataLength {
		return nil, 0, fmt.Errorf("modules: rotation-velocity-acceleration: %w", otp.ErrShortBuffer)
	}
	m := &RotationVelocityAcceleration{
		VX: getInt32(data[0:4]),
		VY: getInt32(data[4:8]),
		VZ: getInt32(data[8:12]),
		AX: getInt32(data[12:16]),
		AY: getInt32(data[16:20]),
		AZ: getInt32(data[20:24]),
	}
	return m, pvaDataLength, nil
}

func (m *RotationVelocityAcceleration) Equals(other otp.Module) bool {
	o, ok := other.(*RotationVelocityAcceleration)
	return ok && *m == *o
}

func (m *RotationVelocityAcceleration) Merge(others []otp.Module) (otp.Optional[otp.Module], bool) {
	vxs, vys, vzs := []int32{m.VX}, []int32{m.VY}, []int32{m.VZ}
	axs, ays, azs := []int32{m.AX}, []int32{m.AY}, []int32{m.AZ}
	for _, o := range others {
		v, ok := o.(*RotationVelocityAcceleration)
		if !ok {
			continue
		}
		vxs = append(vxs, v.VX)
		vys = append(vys, v.VY)
		vzs = append(vzs, v.VZ)
		axs = append(axs, v.AX)
		ays = append(ays, v.AY)
		azs = append(azs, v.AZ)
	}
	merged := &RotationVelocityAcceleration{
		VX: meanInt32(vxs), VY: meanInt32(vys), VZ: meanInt32(vzs),
		AX: meanInt32(axs), AY: meanInt32(ays), AZ: meanInt32(azs),
	}
	return otp.NewDefined[otp.Module](merged), false
}
