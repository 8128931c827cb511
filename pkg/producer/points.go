package producer

import (
	"fmt"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/modules"
)

// AddPoint adds a new owned point at addr/priority. If name is non-empty,
// every existing point at addr (any priority) is renamed to match
// (ANSI E1.59 §4.2 "Addition rules"); a differing name among existing points
// at that address is otherwise left alone here — name consistency is
// only enforced by RenamePoints.
func (p *Producer) AddPoint(addr otp.Address, priority otp.Priority, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pointKey{addr: addr, priority: priority}
	if _, exists := p.points[key]; exists {
		return otp.ErrExists
	}
	if name == "" {
		name = p.existingNameAt(addr)
	}
	pt, err := otp.NewPoint(addr, priority, name)
	if err != nil {
		return err
	}
	p.points[key] = &ownedPoint{point: pt}
	if name != "" {
		p.renameLocked(addr, name)
	}
	return nil
}

func (p *Producer) existingNameAt(addr otp.Address) string {
	for _, op := range p.points {
		if op.point.Address == addr {
			return op.point.Name
		}
	}
	return ""
}

// RemovePoints removes every owned point at addr, at any priority.
func (p *Producer) RemovePoints(addr otp.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.points {
		if key.addr == addr {
			delete(p.points, key)
		}
	}
}

// RenamePoints renames every owned point at addr (every priority) to
// name, enforcing ANSI E1.59 §3's "names must be identical across all points
// sharing an address" invariant going forward.
func (p *Producer) RenamePoints(addr otp.Address, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(name) > otp.MaxNameBytes {
		return fmt.Errorf("producer: rename: %w", otp.ErrNameMismatch)
	}
	p.renameLocked(addr, name)
	return nil
}

func (p *Producer) renameLocked(addr otp.Address, name string) {
	for _, op := range p.points {
		if op.point.Address == addr {
			op.point.Name = name
		}
	}
}

// AddModule adds m to the point at (addr, priority), rejecting a
// duplicate identifier, and implicitly adds a default-initialized
// instance of the module m's identifier depends on (its associate in the
// dependency table, e.g. Position for position-velocity-acceleration) if
// it is not already present (ANSI E1.59 §4.2, "Adding a 'source' module
// implicitly adds default-initialized instances of its associates").
func (p *Producer) AddModule(addr otp.Address, priority otp.Priority, m otp.Module) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	op, ok := p.points[pointKey{addr: addr, priority: priority}]
	if !ok {
		return otp.ErrExists
	}
	if op.point.HasModule(m.Identifier()) {
		return otp.ErrModuleExists
	}
	op.point.Modules[m.Identifier()] = m
	op.point.Sampled = otp.NewDefined(true)
	op.changedSinceLastTick = true
	op.ceaseCountdown = ceaseTransmissionTicks

	for id := range associatesOf(m.Identifier()) {
		if op.point.HasModule(id) {
			continue
		}
		def, err := modules.NewDefault(id)
		if err != nil {
			continue
		}
		op.point.Modules[id] = def
	}
	return nil
}

// associatesOf returns the set of module identifiers id depends on, i.e.
// id's associates in the dependency table.
func associatesOf(id otp.ModuleIdentifier) map[otp.ModuleIdentifier]bool {
	out := map[otp.ModuleIdentifier]bool{}
	if base, ok := modules.DependencyOf(id); ok {
		out[base] = true
	}
	return out
}

// RemoveModule removes the module id from the point at (addr, priority).
// It fails with ErrDependentExists if any registered dependent module is
// still present (ANSI E1.59 §4.2, e.g. position-velocity-acceleration
// depends on position).
func (p *Producer) RemoveModule(addr otp.Address, priority otp.Priority, id otp.ModuleIdentifier) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	op, ok := p.points[pointKey{addr: addr, priority: priority}]
	if !ok {
		return otp.ErrExists
	}
	if !op.point.HasModule(id) {
		return otp.ErrModuleNotFound
	}
	for _, dependent := range modules.DependentsOf(id) {
		if op.point.HasModule(dependent) {
			return otp.ErrDependentExists
		}
	}
	delete(op.point.Modules, id)
	op.changedSinceLastTick = true
	op.ceaseCountdown = ceaseTransmissionTicks
	return nil
}

// UpdateModule replaces the value of an existing module on the point,
// marking it sampled and resetting its cease-transmission countdown.
func (p *Producer) UpdateModule(addr otp.Address, priority otp.Priority, m otp.Module) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	op, ok := p.points[pointKey{addr: addr, priority: priority}]
	if !ok {
		return otp.ErrExists
	}
	if !op.point.HasModule(m.Identifier()) {
		return otp.ErrModuleNotFound
	}
	op.point.Modules[m.Identifier()] = m
	op.point.Sampled = otp.NewDefined(true)
	op.changedSinceLastTick = true
	op.ceaseCountdown = ceaseTransmissionTicks
	return nil
}

// UpdateName sets the producer's own component name, used in the OTP
// layer header of every datagram it sends from here on.
func (p *Producer) UpdateName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Name = name
}
