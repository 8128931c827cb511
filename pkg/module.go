package otp

// Module is the polymorphic per-aspect payload attached to a Point: one of
// the standard transform aspects (position, rotation, scale, ...) or a
// manufacturer extension. Concrete module types live in the modules
// package and are looked up by ModuleIdentifier through a Registry;
// the interface itself has no dependency on that package, avoiding an
// import cycle between the core types and the plugin set.
type Module interface {
	// Identifier returns the wire (manufacturerID, moduleNumber) pair.
	Identifier() ModuleIdentifier

	// DataLength is the encoded length of this module's payload, i.e. the
	// length of what Encode returns. The codec sizes module layers from
	// Encode's output and skips unknown modules by the wire length field.
	DataLength() int

	// LogDescription is a short human string used in debug logs, never
	// on the wire.
	LogDescription() string

	// Encode serializes the module body (not including the module
	// layer's manufacturer/length/number header).
	Encode() []byte

	// Equals reports whether other carries the same identifier and an
	// equivalent payload.
	Equals(other Module) bool

	// Merge combines this module with others of the same identifier,
	// all contributed by equal-priority producers for the same point.
	// If the contributors disagree in a way that cannot be reconciled
	// (e.g. differing parent addresses), excludePoint is true and the
	// point is dropped from this merge cycle; merged is then undefined.
	Merge(others []Module) (merged Optional[Module], excludePoint bool)
}

// Decoder constructs a Module of a known identifier from its encoded
// body, returning the number of bytes consumed (== DataLength() on
// success) or an error naming the invalid field.
type Decoder func(data []byte) (Module, int, error)
