package otp

import "errors"

// Validation and protocol errors returned by the core engine. Callers
// compare with errors.Is; the engine never panics on bad input.
var (
	ErrInvalidSystem   = errors.New("otp: system number out of range [1,200]")
	ErrInvalidGroup    = errors.New("otp: group number out of range [1,60000]")
	ErrInvalidPoint    = errors.New("otp: point number out of range [1,4000000000]")
	ErrInvalidPriority = errors.New("otp: priority out of range [0,200]")

	ErrExists          = errors.New("otp: point already exists at this address and priority")
	ErrModuleExists    = errors.New("otp: module already present on point")
	ErrModuleNotFound  = errors.New("otp: module not present on point")
	ErrDependentExists = errors.New("otp: dependent module still present")
	ErrNameMismatch    = errors.New("otp: name does not match other points at this address")

	ErrInvalidPacketID = errors.New("otp: invalid packet identifier")
	ErrInvalidVector   = errors.New("otp: invalid vector")
	ErrInvalidLength   = errors.New("otp: invalid length")
	ErrShortBuffer     = errors.New("otp: insufficient data")

	ErrFolioOutOfRange = errors.New("otp: folio number outside sequence window")

	ErrCouldNotBind                     = errors.New("otp: could not bind socket")
	ErrCouldNotEnablePortReuse          = errors.New("otp: could not enable port reuse")
	ErrCouldNotJoin                     = errors.New("otp: could not join multicast group")
	ErrCouldNotLeave                    = errors.New("otp: could not leave multicast group")
	ErrCouldNotReceive                  = errors.New("otp: could not receive from socket")
	ErrCouldNotAssignMulticastInterface = errors.New("otp: could not assign multicast interface")
)
