// Package modules implements the plugin set of standard ANSI E1.59
// transform modules, plus the registry that dispatches a decoded module
// identifier to its decoder: one typed decoder looked up per wire
// identifier, which is what a polymorphic module set requires.
package modules

import (
	"fmt"
	"sync"

	otp "github.com/burgrp-go/otp/pkg"
)

// Registry maps module identifiers to decoders. The zero value is not
// usable; use NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	decoders map[otp.ModuleIdentifier]otp.Decoder
}

// NewRegistry returns a registry pre-populated with the standard modules.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[otp.ModuleIdentifier]otp.Decoder)}
	r.Register(otp.ModulePosition, DecodePosition)
	r.Register(otp.ModulePositionVelocityAcceleration, DecodePositionVelocityAcceleration)
	r.Register(otp.ModuleRotation, DecodeRotation)
	r.Register(otp.ModuleRotationVelocityAcceleration, DecodeRotationVelocityAcceleration)
	r.Register(otp.ModuleScale, DecodeScale)
	r.Register(otp.ModuleReferenceFrame, DecodeReferenceFrame)
	r.Register(otp.ModuleParent, DecodeParent)
	return r
}

// Register installs (or overrides) the decoder for an identifier. Used
// both for the standard set above and for a caller's own manufacturer
// modules (e.g. CBORModule, see cbor_module.go).
func (r *Registry) Register(id otp.ModuleIdentifier, dec otp.Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[id] = dec
}

// Lookup returns the decoder for id, or ok=false if id is unknown to this
// registry (the caller then skips the module by the module layer's own
// length field, per ANSI E1.59 §4.1's decode policy — never an error).
func (r *Registry) Lookup(id otp.ModuleIdentifier) (otp.Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dec, ok := r.decoders[id]
	return dec, ok
}

// dependencies lists, for each module identifier, the identifier it
// requires to already be present on the point (ANSI E1.59 §4.2 "Addition
// rules"): a velocity/acceleration module is meaningless without its base
// module.
var dependencies = map[otp.ModuleIdentifier]otp.ModuleIdentifier{
	otp.ModulePositionVelocityAcceleration: otp.ModulePosition,
	otp.ModuleRotationVelocityAcceleration: otp.ModuleRotation,
}

// DependencyOf returns the module this identifier depends on, if any.
func DependencyOf(id otp.ModuleIdentifier) (otp.ModuleIdentifier, bool) {
	dep, ok := dependencies[id]
	return dep, ok
}

// DependentsOf returns every registered identifier that depends on id —
// used by removeModule to refuse removal while a dependent still exists.
func DependentsOf(id otp.ModuleIdentifier) []otp.ModuleIdentifier {
	var out []otp.ModuleIdentifier
	for dependent, base := range dependencies {
		if base == id {
			out = append(out, dependent)
		}
	}
	return out
}

// NewDefault constructs the zero-valued standard module for id, used by
// addModule's "adding a source module implicitly adds default-initialized
// associates" rule.
func NewDefault(id otp.ModuleIdentifier) (otp.Module, error) {
	switch id {
	case otp.ModulePosition:
		return &Position{}, nil
	case otp.ModulePositionVelocityAcceleration:
		return &PositionVelocityAcceleration{}, nil
	case otp.ModuleRotation:
		return &Rotation{}, nil
	case otp.ModuleRotationVelocityAcceleration:
		return &RotationVelocityAcceleration{}, nil
	case otp.ModuleScale:
		return &Scale{}, nil
	case otp.ModuleReferenceFrame:
		return &ReferenceFrame{}, nil
	case otp.ModuleParent:
		return &Parent{}, nil
	default:
		return nil, fmt.Errorf("modules: no default constructor registered for %s", id)
	}
}
