package consumer

import otp "github.com/burgrp-go/otp/pkg"

// UpdateName sets this consumer's own component name.
func (c *Consumer) UpdateName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Name = name
}

// AddModuleTypes adds identifiers to the set this consumer declares
// support for in its next module advertisement.
func (c *Consumer) AddModuleTypes(ids ...otp.ModuleIdentifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.supportedModules[id] = true
	}
}

// RemoveModuleTypes removes identifiers from the declared support set.
func (c *Consumer) RemoveModuleTypes(ids ...otp.ModuleIdentifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.supportedModules, id)
	}
}

// ObserveSystemNumbers replaces the set of system numbers this consumer
// wants to subscribe to when a producer advertises them.
func (c *Consumer) ObserveSystemNumbers(systems ...uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observedSystems = map[uint8]bool{}
	for _, s := range systems {
		c.observedSystems[s] = true
	}
}

// Points returns the consumer's last-delivered merged point snapshot.
func (c *Consumer) Points() []*otp.Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedPoints(c.lastSnapshot)
}
