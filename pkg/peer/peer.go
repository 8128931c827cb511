// Package peer implements the discovery-side peer records of ANSI E1.59 §3
// ("Peer records") and §4.5 (IP-family handling): per-CID state tracked
// by a producer about its consumers, and by a consumer about its
// producers, plus the dual-stack family-upgrade state machine shared by
// both directions.
//
// One authoritative per-peer record is updated under the owning
// component's lock; the visibility state machine generalizes a single
// boolean "known" flag into OTP's three-state Offline/Advertising/Online
// visibility.
package peer

import (
	"fmt"
	"net"
	"sort"

	otp "github.com/burgrp-go/otp/pkg"
)

// Family is the IP family of a received datagram.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)

// Mode is a peer's observed address-family mode (ANSI E1.59 §4.5).
type Mode int

const (
	ModeIPv4Only Mode = iota
	ModeIPv6Only
	ModeIPv4And6
)

// Visibility is a peer's three-state lifecycle (ANSI E1.59 §3).
type Visibility int

const (
	Offline Visibility = iota
	Advertising
	Online
)

// seqKey indexes the per-kind last-(folio,page) watermark a peer carries.
// The consumer engine checks its producer peers under "system" and under
// the per-system transform keys returned by SeqTransform, all in the same
// watermark map; "module" and "name" name the other advertisement kinds.
type seqKey string

const (
	SeqModuleAdvert seqKey = "module"
	SeqNameAdvert   seqKey = "name"
	SeqSystemAdvert seqKey = "system"
)

// SeqTransform returns the per-system sequence key for transform folios.
// Transform watermarks are kept separately per system, unlike the
// advertisement kinds above which share one peer-wide stream each.
func SeqTransform(system uint8) seqKey {
	return seqKey(fmt.Sprintf("transform:%d", system))
}

type watermark struct {
	folio    otp.FolioNumber
	page     uint16
	hasFolio bool
}

// Record is the shared shape of a ProducerPeer/ConsumerPeer entry: CID,
// name, address-family state, per-kind sequence watermarks and an error
// counter. ProducerPeer and ConsumerPeer each embed it and add their own
// direction-specific fields.
type Record struct {
	CID        otp.CID
	Name       string
	Mode       Mode
	Addresses  []net.IP
	Visibility Visibility

	SequenceErrors int

	watermarks map[seqKey]*watermark
}

func newRecord(cid otp.CID, name string) Record {
	return Record{
		CID:        cid,
		Name:       name,
		Mode:       ModeIPv4Only,
		Visibility: Offline,
		watermarks: map[seqKey]*watermark{},
	}
}

// Observe records a newly seen source address, deduplicated and sorted,
// and applies the family-upgrade rule of ANSI E1.59 §4.5. It returns false
// if this particular datagram should be dropped without further
// processing (the IPv6Only-peer-sees-IPv4 case: record the address,
// upgrade the mode, but do not process the message).
func (r *Record) Observe(family Family, addr net.IP) (process bool) {
	if r.Visibility == Offline {
		if family == FamilyIPv4 {
			r.Mode = ModeIPv4Only
		} else {
			r.Mode = ModeIPv6Only
		}
		r.addAddress(addr)
		return true
	}

	switch r.Mode {
	case ModeIPv4Only:
		if family == FamilyIPv6 {
			r.Mode = ModeIPv4And6
		}
		r.addAddress(addr)
		return true
	case ModeIPv6Only:
		r.addAddress(addr)
		if family == FamilyIPv4 {
			r.Mode = ModeIPv4And6
			return false
		}
		return true
	case ModeIPv4And6:
		r.addAddress(addr)
		return family == FamilyIPv6
	}
	return true
}

func (r *Record) addAddress(addr net.IP) {
	for _, a := range r.Addresses {
		if a.Equal(addr) {
			return
		}
	}
	r.Addresses = append(r.Addresses, addr)
	sort.Slice(r.Addresses, func(i, j int) bool {
		return string(r.Addresses[i]) < string(r.Addresses[j])
	})
}

// AcceptSequence applies the in-sequence/duplicate check of ANSI E1.59 §4.4
// for watermark key, returning whether the message should be processed.
// A peer transitioning from Offline unconditionally accepts, matching
// "a brand-new peer... unconditionally accepts".
func (r *Record) AcceptSequence(key seqKey, folio otp.FolioNumber, page uint16, window uint32) (accept, duplicate bool) {
	wasOffline := r.Visibility == Offline
	wm, ok := r.watermarks[key]
	if !ok {
		wm = &watermark{}
		r.watermarks[key] = wm
	}
	if wasOffline || !wm.hasFolio {
		wm.folio, wm.page, wm.hasFolio = folio, page, true
		return true, false
	}
	if wm.folio == folio {
		if wm.page == page {
			return false, true
		}
		wm.page = page
		return true, false
	}
	if !wm.folio.InSequence(folio, window) {
		r.SequenceErrors++
		return false, false
	}
	wm.folio, wm.page = folio, page
	return true, false
}

// ResetWatermarks clears all per-kind sequence state, used on demotion to
// Offline (ANSI E1.59 §4.2/§4.3 data-loss detection).
func (r *Record) ResetWatermarks() {
	r.watermarks = map[seqKey]*watermark{}
}
