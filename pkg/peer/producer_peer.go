package peer

import (
	"time"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/folio"
)

// ProducerPeer is how a consumer remembers a producer: its per-system
// rolling folio reassembly windows and authoritative point sets, the
// name table from its last name-advertisement response, and the
// timestamp of its most recently received transform datagram (used by
// the 7500ms data-loss rule of ANSI E1.59 §4.3).
type ProducerPeer struct {
	Record

	Systems          map[uint8]*systemState
	Names            map[otp.Address]string
	LastTransformAt  time.Time
	LastAdvertisedAt time.Time
}

type systemState struct {
	window *folio.Window
	points *folio.PointSet
}

// NewProducerPeer constructs an Offline producer peer record.
func NewProducerPeer(cid otp.CID, name string) *ProducerPeer {
	return &ProducerPeer{
		Record:  newRecord(cid, name),
		Systems: map[uint8]*systemState{},
		Names:   map[otp.Address]string{},
	}
}

// System returns (creating if absent) the reassembly state for system.
func (p *ProducerPeer) System(system uint8) (*folio.Window, *folio.PointSet) {
	s, ok := p.Systems[system]
	if !ok {
		s = &systemState{window: folio.NewWindow(), points: folio.NewPointSet()}
		p.Systems[system] = s
	}
	return s.window, s.points
}

// Points returns the current authoritative points across every system
// this producer peer is known on.
func (p *ProducerPeer) Points() []*otp.Point {
	var out []*otp.Point
	for _, s := range p.Systems {
		out = append(out, s.points.Points()...)
	}
	return out
}

// ResetSystems discards every per-system reassembly window and point
// set, used on demotion to Offline (ANSI E1.59 §4.3 data-loss detection:
// "reset that producer's per-system folio windows").
func (p *ProducerPeer) ResetSystems() {
	p.Systems = map[uint8]*systemState{}
}

// RefreshNames overwrites the point-name table from a name-advertisement
// response (ANSI E1.59 §4.3, "point names are refreshed from that
// producer's last address-point-description table").
func (p *ProducerPeer) RefreshNames(names map[otp.Address]string) {
	p.Names = names
}
