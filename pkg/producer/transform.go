package producer

import (
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/codec"
	"github.com/burgrp-go/otp/pkg/peer"
)

// emitTransforms runs one transform tick (ANSI E1.59 §4.2 "Transform
// emission"): decide full-set vs. delta, select eligible points per
// system, assemble datagrams, and send.
func (p *Producer) emitTransforms(elapsed time.Duration) {
	p.mu.Lock()
	p.fullSetCounter += elapsed
	fullSet := p.fullSetCounter >= fullSetInterval
	if fullSet {
		p.fullSetCounter = 0
	}

	bySystem := map[uint8][]*otp.Point{}
	for _, op := range p.points {
		if !p.eligible(op, fullSet) {
			continue
		}
		bySystem[op.point.Address.System] = append(bySystem[op.point.Address.System], op.point)
		if op.changedSinceLastTick {
			op.changedSinceLastTick = false
		} else if op.ceaseCountdown > 0 {
			op.ceaseCountdown--
		}
	}
	name := p.cfg.Name
	cid := p.cfg.CID
	addressing := p.cfg.Addressing
	mode := p.cfg.Mode
	metrics := p.cfg.Metrics

	type datagramSet struct {
		system    uint8
		datagrams [][]byte
	}
	var sets []datagramSet
	for system, points := range bySystem {
		folio := p.systemFolios[system] + 1
		p.systemFolios[system] = folio
		datagrams := assembleTransformDatagrams(cid, name, system, folio, fullSet, points)
		sets = append(sets, datagramSet{system: system, datagrams: datagrams})
	}
	p.mu.Unlock()

	for _, set := range sets {
		dst4 := &net.UDPAddr{IP: addressing.TransformGroupIPv4(set.system), Port: p.cfg.Port}
		dst6 := &net.UDPAddr{IP: addressing.TransformGroupIPv6(set.system), Port: p.cfg.Port}
		for _, dgram := range set.datagrams {
			if mode != IPv6Only && p.sock4 != nil {
				_ = p.sock4.SendTo(dgram, dst4)
			}
			if mode != IPv4Only && p.sock6 != nil {
				_ = p.sock6.SendTo(dgram, dst6)
			}
			metrics.IncTransformDatagramsSent()
		}
	}
}

// eligible reports whether op should be included in this tick's transform
// (ANSI E1.59 §4.2: sampled, has a module, has a requested module, and
// either this is a full-set tick or the point changed/hasn't finished its
// cease-transmission countdown).
func (p *Producer) eligible(op *ownedPoint, fullSet bool) bool {
	if !op.point.IsSampled() || len(op.point.Modules) == 0 {
		return false
	}
	if !op.hasRequestedModule {
		return false
	}
	if fullSet {
		return true
	}
	return op.changedSinceLastTick || op.ceaseCountdown > 0
}

// assembleTransformDatagrams packs points into one or more datagrams,
// filling in page/lastPage after assembly (ANSI E1.59 §4.2: "Pack greedily
// into each datagram up to the UDP payload limit; split modules of a
// point across datagrams only by starting a fresh point layer in the
// next datagram").
func assembleTransformDatagrams(cid otp.CID, name string, system uint8, folio otp.FolioNumber, fullSet bool, points []*otp.Point) [][]byte {
	var bodies [][]byte
	var current []*otp.Point
	for _, pt := range points {
		trial := append(append([]*otp.Point{}, current...), pt)
		body := codec.EncodeTransformLayer(&codec.TransformLayer{System: system, FullSet: fullSet, Points: trial})
		if len(body)+codec.HeaderOverhead() > codec.MaxUDPPayload && len(current) > 0 {
			bodies = append(bodies, codec.EncodeTransformLayer(&codec.TransformLayer{System: system, FullSet: fullSet, Points: current}))
			current = []*otp.Point{pt}
			continue
		}
		current = trial
	}
	if len(current) > 0 || len(bodies) == 0 {
		bodies = append(bodies, codec.EncodeTransformLayer(&codec.TransformLayer{System: system, FullSet: fullSet, Points: current}))
	}

	lastPage := uint16(len(bodies) - 1)
	out := make([][]byte, len(bodies))
	for i, body := range bodies {
		l := &codec.OTPLayer{
			Vector:        codec.VectorOTPTransform,
			SourceCID:     cid,
			FolioNumber:   folio,
			Page:          uint16(i),
			LastPage:      lastPage,
			ComponentName: name,
			Body:          body,
		}
		out[i] = l.Encode()
	}
	return out
}

// refreshModuleRequests runs the 10s module-advertisement housekeeping
// tick (ANSI E1.59 §4.2 "Advertisement response"): purge consumer module
// declarations unseen for >30s, then recompute hasRequestedModules on
// every owned point.
func (p *Producer) refreshModuleRequests() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	requested := map[otp.ModuleIdentifier]bool{}
	for _, cp := range p.consumers {
		cp.PurgeStaleModules(now, moduleRequestMaxAge)
		for id := range cp.RequestedModules(now, moduleRequestMaxAge) {
			requested[id] = true
		}
	}
	for _, op := range p.points {
		op.hasRequestedModule = false
		for id := range op.point.Modules {
			if requested[id] {
				op.hasRequestedModule = true
				break
			}
		}
	}
}

// scanDataLoss runs the producer's 1s data-loss scan over its consumer
// peers (the Advertising->Offline 60s rule; ANSI E1.59 §4.2).
func (p *Producer) scanDataLoss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	active := 0
	for cid, cp := range p.consumers {
		if cp.Visibility != peer.Offline && now.Sub(cp.LastAdvertisedAt) > 60*time.Second {
			log.Debugf("producer %s: consumer %s went offline", p.cfg.Name, cid)
			cp.Visibility = peer.Offline
			cp.ResetWatermarks()
			continue
		}
		if cp.Visibility != peer.Offline {
			active++
		}
	}
	p.cfg.Metrics.SetPeersOnline("consumer", active)
}
