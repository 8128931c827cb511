package producer

import (
	"net"
	"time"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/codec"
	"github.com/burgrp-go/otp/pkg/peer"
)

// handleModuleAdvertisement processes a module-advertisement datagram
// from a consumer: refreshes the union of declared module identifiers
// with current timestamps (ANSI E1.59 §4.2 "Advertisement response").
func (p *Producer) handleModuleAdvertisement(layer *codec.OTPLayer, adv *codec.AdvertisementLayer, family peer.Family, addr *net.UDPAddr) {
	ids, err := codec.DecodeModuleAdvertisement(adv.Body)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := p.consumerPeer(layer.SourceCID, layer.ComponentName)
	if !cp.Observe(family, addr.IP) {
		return
	}
	cp.Visibility = peer.Advertising
	cp.LastAdvertisedAt = time.Now()
	now := time.Now()
	for _, id := range ids {
		cp.ModuleSeenAt[id] = now
	}
}

// handleSystemAdvertisementRequest schedules a single unicast reply
// listing every system number this producer owns a point in, after a
// uniform-random delay in [0, 5000]ms (ANSI E1.59 §4.2 backoff rule).
func (p *Producer) handleSystemAdvertisementRequest(layer *codec.OTPLayer, adv *codec.AdvertisementLayer, family peer.Family, addr *net.UDPAddr) {
	isResponse, _, _, err := codec.DecodeSystemAdvertisement(adv.Body)
	if err != nil || isResponse {
		return
	}
	p.mu.Lock()
	cp := p.consumerPeer(layer.SourceCID, layer.ComponentName)
	cp.Observe(family, addr.IP)
	systems := p.ownedSystemsLocked()
	name := p.cfg.Name
	cid := p.cfg.CID
	p.mu.Unlock()

	p.scheduleReply(func() {
		inner, err := codec.EncodeSystemAdvertisement(true, systems)
		if err != nil {
			return
		}
		p.sendAdvertisement(cid, name, codec.VectorAdvertSystem, inner, addr)
	})
}

// handleNameAdvertisementRequest schedules a single unicast reply with
// one record per address this producer owns a point at; a request
// carries no address filter. The reply is one datagram: when more
// addresses are owned than fit in it, encoding fails and no reply is sent.
func (p *Producer) handleNameAdvertisementRequest(layer *codec.OTPLayer, adv *codec.AdvertisementLayer, family peer.Family, addr *net.UDPAddr) {
	isResponse, _, err := codec.DecodeNameAdvertisement(adv.Body)
	if err != nil || isResponse {
		return
	}
	p.mu.Lock()
	cp := p.consumerPeer(layer.SourceCID, layer.ComponentName)
	cp.Observe(family, addr.IP)
	records := p.ownedNameRecordsLocked()
	name := p.cfg.Name
	cid := p.cfg.CID
	p.mu.Unlock()

	p.scheduleReply(func() {
		inner, err := codec.EncodeNameAdvertisement(true, records)
		if err != nil {
			return
		}
		p.sendAdvertisement(cid, name, codec.VectorAdvertName, inner, addr)
	})
}

func (p *Producer) scheduleReply(send func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case <-time.After(randomBackoff()):
			send()
		case <-p.stopCh:
		}
	}()
}

func (p *Producer) sendAdvertisement(cid otp.CID, name string, vector codec.Vector, inner []byte, dst *net.UDPAddr) {
	body := codec.EncodeAdvertisementLayer(vector, inner)
	l := &codec.OTPLayer{
		Vector:        codec.VectorOTPAdvertisement,
		SourceCID:     cid,
		ComponentName: name,
		LastPage:      0,
		Body:          body,
	}
	dgram := l.Encode()
	if dst.IP.To4() != nil && p.sock4 != nil {
		_ = p.sock4.SendTo(dgram, dst)
	} else if p.sock6 != nil {
		_ = p.sock6.SendTo(dgram, dst)
	}
}

func (p *Producer) ownedSystemsLocked() []uint8 {
	seen := map[uint8]bool{}
	var out []uint8
	for key := range p.points {
		if !seen[key.addr.System] {
			seen[key.addr.System] = true
			out = append(out, key.addr.System)
		}
	}
	return out
}

func (p *Producer) ownedNameRecordsLocked() []codec.AddressPointDescription {
	var out []codec.AddressPointDescription
	seen := map[otp.Address]bool{}
	for _, op := range p.points {
		if seen[op.point.Address] {
			continue
		}
		seen[op.point.Address] = true
		out = append(out, codec.AddressPointDescription{Address: op.point.Address, Name: op.point.Name})
	}
	return out
}
