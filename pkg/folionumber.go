package otp

// FolioNumber is a wrap-around u32 counter identifying one folio within a
// producer×system's transform (or advertisement) stream.
type FolioNumber uint32

// folioForwardReach is the largest forward distance from a reference
// folio number that is still considered "new" rather than a stale wrap.
// Chosen as half of the 16-bit space the published standard's sequence
// arithmetic is defined over (see DESIGN.md, open question (a)).
const folioForwardReach = 32768

// InSequence reports whether candidate is acceptable as the next folio
// relative to the receiver (the last folio number observed for this
// (kind, peer)), given a reorder window:
//
//   - any of current+1 .. current+32768 is accepted as a new folio arriving
//     in forward order;
//   - for window > 1, any of current-1 .. current-(window-1) is accepted,
//     tolerating a small amount of UDP reordering;
//   - the receiver itself (candidate == current) is never in-sequence:
//     an exact repeat is a duplicate, handled by the caller before this
//     predicate is ever consulted.
//
// For advertisements window is 0 (strictly forward); for transforms it is
// 5 (ANSI E1.59 §4.4).
func (current FolioNumber) InSequence(candidate FolioNumber, window uint32) bool {
	forwardDistance := uint32(candidate - current)
	if forwardDistance >= 1 && forwardDistance <= folioForwardReach {
		return true
	}
	if window > 1 {
		backwardDistance := uint32(current - candidate)
		if backwardDistance >= 1 && backwardDistance <= window-1 {
			return true
		}
	}
	return false
}
