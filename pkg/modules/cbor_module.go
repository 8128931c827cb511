package modules

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	otp "github.com/burgrp-go/otp/pkg"
)

// CBORModule is a manufacturer-extension module that carries an arbitrary
// CBOR-encoded payload. It is how a deployment adds a module the core
// registry doesn't know about without hand-rolling a fixed binary layout
// for it: the payload is a 2-byte length prefix followed by a CBOR map,
// so DataLength varies per instance (unlike the fixed-width standard
// modules) and is recomputed from the current payload on every Encode.
//
// It is the one module kind that reaches for github.com/fxamacker/cbor/v2
// instead of hand-rolled field encoding, since an opaque manufacturer
// payload has no fixed schema to hand-roll against.
type CBORModule struct {
	ID      otp.ModuleIdentifier
	Payload map[string]any
}

func (c *CBORModule) Identifier() otp.ModuleIdentifier { return c.ID }

func (c *CBORModule) DataLength() int {
	body, err := cbor.Marshal(c.Payload)
	if err != nil {
		return 2
	}
	return 2 + len(body)
}

func (c *CBORModule) LogDescription() string {
	return fmt.Sprintf("cbor(%s,%d keys)", c.ID, len(c.Payload))
}

func (c *CBORModule) Encode() []byte {
	body, err := cbor.Marshal(c.Payload)
	if err != nil {
		body = nil
	}
	buf := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(body)))
	copy(buf[2:], body)
	return buf
}

// NewCBORModuleDecoder returns an otp.Decoder bound to a specific
// manufacturer module identifier, for registration via Registry.Register.
func NewCBORModuleDecoder(id otp.ModuleIdentifier) otp.Decoder {
	return func(data []byte) (otp.Module, int, error) {
		if len(data) < 2 {
			return nil, 0, fmt.Errorf("modules: cbor module %s: %w", id, otp.ErrShortBuffer)
		}
		bodyLen := int(binary.BigEndian.Uint16(data[0:2]))
		if len(data) < 2+bodyLen {
			return nil, 0, fmt.Errorf("modules: cbor module %s: %w", id, otp.ErrShortBuffer)
		}
		payload := map[string]any{}
		if bodyLen > 0 {
			if err := cbor.Unmarshal(data[2:2+bodyLen], &payload); err != nil {
				return nil, 0, fmt.Errorf("modules: cbor module %s: invalid payload: %w", id, err)
			}
		}
		return &CBORModule{ID: id, Payload: payload}, 2 + bodyLen, nil
	}
}

func (c *CBORModule) Equals(other otp.Module) bool {
	o, ok := other.(*CBORModule)
	if !ok || o.ID != c.ID || len(o.Payload) != len(c.Payload) {
		return false
	}
	a, errA := cbor.Marshal(c.Payload)
	b, errB := cbor.Marshal(o.Payload)
	if errA != nil || errB != nil {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Merge takes the highest-priority contributor verbatim; arbitrary CBOR
// payloads have no generic numeric-mean semantics, so disagreement among
// equal-priority producers is treated the same as Parent/ReferenceFrame:
// the point is excluded from this merge cycle rather than guessing at a
// reconciliation.
func (c *CBORModule) Merge(others []otp.Module) (otp.Optional[otp.Module], bool) {
	for _, m := range others {
		o, ok := m.(*CBORModule)
		if !ok {
			continue
		}
		if !c.Equals(o) {
			return otp.NewUndefined[otp.Module](), true
		}
	}
	return otp.NewDefined[otp.Module](&CBORModule{ID: c.ID, Payload: c.Payload}), false
}
