// Package folio implements the per-producer, per-system transform folio
// reassembly window of ANSI E1.59 §4.3/§4.4: an ordered list of in-progress
// multi-page folios, page-set completion detection, and promotion into an
// authoritative point set (full-set replace or delta union-replace).
//
// The window keeps small bounded per-peer state under a caller-held lock;
// reassembly semantics follow ANSI E1.59 §4.3 steps 1-3 directly.
package folio

import (
	otp "github.com/burgrp-go/otp/pkg"
)

// Window holds the in-progress folios for one (producer CID, system) pair.
// It is not safe for concurrent use; callers serialize access the same way
// the consumer engine serializes all peer-table mutation, under its own
// write lock.
type Window struct {
	maxLen   int
	last     otp.FolioNumber
	haveLast bool
	entries  []*entry
}

// entry is one in-progress folio: its declared page count and the set of
// pages received so far, plus the points carried by each received page in
// arrival order (page number is a dense index: a page can only be stored
// once, duplicates are dropped before reaching append).
type entry struct {
	number   otp.FolioNumber
	lastPage uint16
	fullSet  bool
	pages    map[uint16][]*otp.Point
}

func (e *entry) complete() bool {
	if len(e.pages) != int(e.lastPage)+1 {
		return false
	}
	for p := uint16(0); p <= e.lastPage; p++ {
		if _, ok := e.pages[p]; !ok {
			return false
		}
	}
	return true
}

// orderedPoints returns the entry's points as if pages 0..=lastPage had
// been processed in order (ANSI E1.59 §5, "Ordering guarantees").
func (e *entry) orderedPoints() []*otp.Point {
	var out []*otp.Point
	for p := uint16(0); p <= e.lastPage; p++ {
		out = append(out, e.pages[p]...)
	}
	return out
}

// transformFolioWindow bounds how many in-progress folios are kept per
// producer x system before the oldest is force-flushed (ANSI E1.59 §4.3).
const transformFolioWindow = 5

// sequenceWindow is the folio-number reorder tolerance passed to
// otp.FolioNumber.InSequence for transform folios (ANSI E1.59 §4.4).
const sequenceWindow = transformFolioWindow

// NewWindow constructs an empty reassembly window.
func NewWindow() *Window {
	return &Window{maxLen: transformFolioWindow}
}

// Promotion is the result of folio completion: either a full-set replace
// or a delta union-replace, carrying the points to apply.
type Promotion struct {
	FullSet bool
	Points  []*otp.Point
}

// Accept processes one received transform datagram's page for folio
// number/page/lastPage/fullSet. It returns (promotion, accepted, flushed):
// accepted is false if the folio number was rejected by the sequence
// window (caller must count a sequence error and notify once); flushed is
// a best-effort partial point set evicted because the window overflowed
// without a completion, or nil.
func (w *Window) Accept(number otp.FolioNumber, page, lastPage uint16, fullSet bool, points []*otp.Point) (promotion *Promotion, accepted bool, flushed *Promotion) {
	e := w.find(number)
	if e == nil {
		if w.haveLast && !w.last.InSequence(number, sequenceWindow) {
			return nil, false, nil
		}
		e = &entry{number: number, lastPage: lastPage, fullSet: fullSet, pages: map[uint16][]*otp.Point{}}
		w.entries = append(w.entries, e)
	}
	if _, dup := e.pages[page]; dup {
		return nil, true, nil
	}
	e.pages[page] = points

	if p := w.promoteNewestComplete(); p != nil {
		w.last, w.haveLast = number, true
		return p, true, nil
	}

	if len(w.entries) > w.maxLen {
		flushed = w.flushOldest()
	}
	return nil, true, flushed
}

// find returns the in-progress entry for number, if any.
func (w *Window) find(number otp.FolioNumber) *entry {
	for _, e := range w.entries {
		if e.number == number {
			return e
		}
	}
	return nil
}

// promoteNewestComplete scans newest to oldest for a complete folio,
// discards it and everything older on a match, and returns the promotion.
// Per ANSI E1.59 §4.3 step 2, only the newest complete folio is promoted per
// call; older in-progress folios are superseded and dropped along with it.
func (w *Window) promoteNewestComplete() *Promotion {
	for i := len(w.entries) - 1; i >= 0; i-- {
		e := w.entries[i]
		if !e.complete() {
			continue
		}
		w.entries = w.entries[i+1:]
		return &Promotion{FullSet: e.fullSet, Points: e.orderedPoints()}
	}
	return nil
}

// flushOldest evicts the oldest entry as best-effort partial data when the
// window has overflowed without a completion (ANSI E1.59 §4.3 step 3). A
// full-set folio is never flushed partially: a partial full-set would wipe
// points that were never actually replaced, so it is simply dropped.
func (w *Window) flushOldest() *Promotion {
	if len(w.entries) == 0 {
		return nil
	}
	oldest := w.entries[0]
	w.entries = w.entries[1:]
	if oldest.fullSet {
		return nil
	}
	return &Promotion{FullSet: false, Points: oldest.orderedPoints()}
}

// Reset clears all in-progress folios and sequence state, used when the
// owning producer peer is demoted to Offline (ANSI E1.59 §4.2/§4.3 data-loss
// detection).
func (w *Window) Reset() {
	w.entries = nil
	w.haveLast = false
}
