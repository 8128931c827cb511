package consumer

import (
	"net"
	"time"

	"github.com/burgrp-go/otp/pkg/codec"
	"github.com/burgrp-go/otp/pkg/peer"
)

// handleTransform decodes an incoming transform datagram, feeds its page
// into the producer's per-system folio reassembly window, and applies
// any resulting promotion to that producer's authoritative point set
// (ANSI E1.59 §4.3 "Folio reassembly").
func (c *Consumer) handleTransform(layer *codec.OTPLayer, family peer.Family, addr *net.UDPAddr) {
	tl, _, err := codec.DecodeTransformLayer(layer.Body, c.registry)
	if err != nil {
		return
	}
	c.cfg.Metrics.IncTransformDatagramsReceived()

	c.mu.Lock()

	pp := c.producerPeer(layer.SourceCID, layer.ComponentName)
	if !pp.Observe(family, addr.IP) {
		c.mu.Unlock()
		return
	}
	accept, dup := pp.AcceptSequence(peer.SeqTransform(tl.System), layer.FolioNumber, layer.Page, transformSequenceWindow)
	_ = dup
	if !accept {
		c.cfg.Metrics.IncSequenceErrors("transform")
		c.mu.Unlock()
		return
	}

	pp.LastTransformAt = time.Now()
	becameOnline := pp.Visibility != peer.Online
	pp.Visibility = peer.Online

	window, points := pp.System(tl.System)
	promotion, accepted, flushed := window.Accept(layer.FolioNumber, layer.Page, layer.LastPage, tl.FullSet, tl.Points)
	if !accepted {
		c.cfg.Metrics.IncSequenceErrors("transform-folio")
		c.mu.Unlock()
		return
	}
	if promotion != nil {
		points.Apply(promotion)
		c.cfg.Metrics.IncFoliosPromoted(kindOf(promotion.FullSet))
	}
	if flushed != nil {
		points.Apply(flushed)
		c.cfg.Metrics.IncFoliosFlushed(kindOf(flushed.FullSet))
	}
	delegate := c.cfg.Delegate
	cid := layer.SourceCID
	c.mu.Unlock()

	if becameOnline && delegate != nil {
		delegate.ProducerStatusChanged(cid, peer.Online)
	}
}

func kindOf(fullSet bool) string {
	if fullSet {
		return "full"
	}
	return "delta"
}
