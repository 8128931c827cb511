package consumer

import (
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/codec"
	"github.com/burgrp-go/otp/pkg/otpnet"
	"github.com/burgrp-go/otp/pkg/peer"
)

// emitModuleAdvertisement broadcasts this consumer's currently supported
// module identifiers to the advertisement multicast group (ANSI E1.59 §4.3:
// "begin periodic module-advertisement emission at 10s").
func (c *Consumer) emitModuleAdvertisement() {
	c.mu.RLock()
	ids := make([]otp.ModuleIdentifier, 0, len(c.supportedModules))
	for id := range c.supportedModules {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	inner, err := codec.EncodeModuleAdvertisement(ids)
	if err != nil {
		return
	}
	c.broadcast(codec.VectorAdvertModule, inner)
}

// emitSystemAdvertisementRequest broadcasts a system-advertisement
// request (ANSI E1.59 §4.3: "begin periodic system-advertisement requests
// every 10s").
func (c *Consumer) emitSystemAdvertisementRequest() {
	inner, err := codec.EncodeSystemAdvertisement(false, nil)
	if err != nil {
		return
	}
	c.broadcast(codec.VectorAdvertSystem, inner)
}

// RequestProducerPointNames broadcasts a name-advertisement request.
func (c *Consumer) RequestProducerPointNames() {
	inner, err := codec.EncodeNameAdvertisement(false, nil)
	if err != nil {
		return
	}
	c.broadcast(codec.VectorAdvertName, inner)
}

func (c *Consumer) broadcast(vector codec.Vector, inner []byte) {
	if c.cfg.Mode != IPv6Only {
		c.sendTo(inner, vector, &net.UDPAddr{IP: c.cfg.Addressing.AdvertisementIPv4, Port: c.cfg.Port})
	}
	if c.cfg.Mode != IPv4Only {
		c.sendTo(inner, vector, &net.UDPAddr{IP: c.cfg.Addressing.AdvertisementIPv6, Port: c.cfg.Port})
	}
}

// handleSystemAdvertisementResponse records the responding producer's
// declared system numbers, marking it Advertising (or upgrading it to
// Online once transforms start arriving — see transform.go).
func (c *Consumer) handleSystemAdvertisementResponse(layer *codec.OTPLayer, adv *codec.AdvertisementLayer, family peer.Family, addr *net.UDPAddr) {
	isResponse, systems, invalid, err := codec.DecodeSystemAdvertisement(adv.Body)
	if err != nil || !isResponse {
		return
	}
	c.mu.Lock()
	pp := c.producerPeer(layer.SourceCID, layer.ComponentName)
	if !pp.Observe(family, addr.IP) {
		c.mu.Unlock()
		return
	}
	accept, _ := pp.AcceptSequence(peer.SeqSystemAdvert, layer.FolioNumber, layer.Page, 0)
	if !accept {
		c.cfg.Metrics.IncSequenceErrors("system-advert")
		c.mu.Unlock()
		return
	}
	becameAdvertising := pp.Visibility == peer.Offline
	if becameAdvertising {
		pp.Visibility = peer.Advertising
	}
	pp.LastAdvertisedAt = time.Now()
	for _, s := range systems {
		c.advertisedSystems[s] = true
	}
	_ = invalid // individually invalid entries already dropped by the decoder
	delegate := c.cfg.Delegate
	cid := layer.SourceCID
	c.mu.Unlock()

	if becameAdvertising && delegate != nil {
		delegate.ProducerStatusChanged(cid, peer.Advertising)
	}
}

// handleNameAdvertisementResponse refreshes a producer's point-name
// table from a name-advertisement response (ANSI E1.59 §4.3: "point names
// are refreshed from that producer's last address-point-description
// table").
func (c *Consumer) handleNameAdvertisementResponse(layer *codec.OTPLayer, adv *codec.AdvertisementLayer, family peer.Family, addr *net.UDPAddr) {
	isResponse, records, err := codec.DecodeNameAdvertisement(adv.Body)
	if err != nil || !isResponse {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pp := c.producerPeer(layer.SourceCID, layer.ComponentName)
	if !pp.Observe(family, addr.IP) {
		return
	}
	names := make(map[otp.Address]string, len(records))
	for _, r := range records {
		names[r.Address] = r.Name
	}
	pp.RefreshNames(names)
}

// publishDiscoveredSystems notifies the delegate of the union of
// currently advertised system numbers, if it changed since last time
// (ANSI E1.59 §4.3: "notify observers of the union of advertised system
// numbers").
func (c *Consumer) publishDiscoveredSystems() {
	c.mu.Lock()
	systems := make([]uint8, 0, len(c.advertisedSystems))
	for s := range c.advertisedSystems {
		systems = append(systems, s)
	}
	sortUint8s(systems)
	changed := !equalUint8s(systems, c.lastDiscovered)
	if changed {
		c.lastDiscovered = systems
	}
	delegate := c.cfg.Delegate
	c.mu.Unlock()

	if changed && delegate != nil {
		delegate.DiscoveredSystemNumbers(systems)
	}
}

// updateSubscriptions computes target = observed ∩ advertised and joins
// or leaves system multicast groups to match it (ANSI E1.59 §4.3 "System
// subscription").
func (c *Consumer) updateSubscriptions() {
	c.mu.Lock()
	target := map[uint8]bool{}
	for s := range c.observedSystems {
		if c.advertisedSystems[s] {
			target[s] = true
		}
	}
	var toLeave, toJoin []uint8
	for s := range c.joinedSystems {
		if !target[s] {
			toLeave = append(toLeave, s)
		}
	}
	for s := range target {
		if !c.joinedSystems[s] {
			toJoin = append(toJoin, s)
		}
	}
	addressing := c.cfg.Addressing
	c.mu.Unlock()

	ifaces, err := otpnet.MulticastInterfaces()
	if err != nil {
		return
	}

	for _, s := range toLeave {
		if c.sock4 != nil {
			c.sock4.LeaveIPv4(addressing.TransformGroupIPv4(s), ifaces)
		}
		if c.sock6 != nil {
			c.sock6.LeaveIPv6(addressing.TransformGroupIPv6(s), ifaces)
		}
		c.mu.Lock()
		delete(c.joinedSystems, s)
		c.mu.Unlock()
	}
	for _, s := range toJoin {
		joined := true
		if c.sock4 != nil {
			if err := c.sock4.JoinIPv4(addressing.TransformGroupIPv4(s), ifaces); err != nil {
				joined = false
			}
		}
		if c.sock6 != nil {
			if err := c.sock6.JoinIPv6(addressing.TransformGroupIPv6(s), ifaces); err != nil {
				joined = false
			}
		}
		if joined {
			c.mu.Lock()
			c.joinedSystems[s] = true
			c.mu.Unlock()
		}
		// a failed join is simply retried next cycle, per ANSI E1.59 §4.3.
	}
}

// scanDataLoss runs the consumer's 1s data-loss scan over its producer
// peers (ANSI E1.59 §4.3: 7500ms transform timeout for Online, 60s
// advertisement timeout for Advertising).
func (c *Consumer) scanDataLoss() {
	c.mu.Lock()
	now := time.Now()
	var wentOffline []otp.CID
	onlineCount := 0
	for cid, pp := range c.producers {
		switch pp.Visibility {
		case peer.Online:
			if now.Sub(pp.LastTransformAt) > producerTransformTimeout {
				log.Debugf("consumer %s: producer %s stopped transforming, marking offline", c.cfg.Name, cid)
				pp.Visibility = peer.Offline
				pp.ResetSystems()
				pp.ResetWatermarks()
				wentOffline = append(wentOffline, cid)
			} else {
				onlineCount++
			}
		case peer.Advertising:
			if now.Sub(pp.LastAdvertisedAt) > producerAdvertTimeout {
				log.Debugf("consumer %s: producer %s stopped advertising, marking offline", c.cfg.Name, cid)
				pp.Visibility = peer.Offline
				pp.ResetSystems()
				pp.ResetWatermarks()
				wentOffline = append(wentOffline, cid)
			}
		}
	}
	delegate := c.cfg.Delegate
	c.cfg.Metrics.SetPeersOnline("producer", onlineCount)
	c.mu.Unlock()

	if delegate != nil {
		for _, cid := range wentOffline {
			delegate.ProducerStatusChanged(cid, peer.Offline)
		}
	}
}
