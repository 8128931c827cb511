// Package consumer implements the Consumer engine of ANSI E1.59 §4.3: a
// component that discovers producers, reassembles their transform
// folios, merges same-address points by priority across producers, and
// emits change notifications at a configured rate.
//
// Its shape follows the same pattern as pkg/producer (mutex-guarded maps,
// a dedicated read-loop goroutine, a timer-driving goroutine using
// time.Ticker/time.After), generalized here to the consumer's four
// independent cadences: module-advertisement emission, system-advertisement
// request/subscribe, data-loss scan, and delegate notification.
package consumer

import (
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/codec"
	"github.com/burgrp-go/otp/pkg/modules"
	"github.com/burgrp-go/otp/pkg/otpmetrics"
	"github.com/burgrp-go/otp/pkg/otpnet"
	"github.com/burgrp-go/otp/pkg/peer"
)

// IPMode selects which address families a consumer listens and sends on.
type IPMode int

const (
	IPv4Only IPMode = iota
	IPv6Only
	IPv4And6
)

const (
	initialWait                 = 12 * time.Second
	moduleAdvertEmitInterval    = 10 * time.Second
	systemAdvertRequestInterval = 10 * time.Second
	systemAdvertResultDelay     = 2 * time.Second
	dataLossScanInterval        = 1 * time.Second
	producerTransformTimeout    = 7500 * time.Millisecond
	producerAdvertTimeout       = 60 * time.Second
	transformSequenceWindow     = 5
)

// Delegate receives change notifications. Every method is invoked
// outside any internal lock, from the consumer's own timer and read-loop
// goroutines, so implementations may safely call back into the consumer.
type Delegate interface {
	DiscoveredSystemNumbers(systems []uint8)
	ReplaceAllPoints(points []*otp.Point)
	PointsChanged(points []*otp.Point)
	ProducerStatusChanged(cid otp.CID, visibility peer.Visibility)
}

// Config configures a Consumer's identity and timing.
type Config struct {
	Name             string
	CID              otp.CID
	Mode             IPMode
	SupportedModules []otp.ModuleIdentifier
	ObservedSystems  []uint8
	DelegateInterval time.Duration // clamped to [1ms, 10000ms]
	Addressing       otpnet.Addressing
	Port             int
	Metrics          *otpmetrics.Metrics
	Delegate         Delegate
}

func (c Config) clampedDelegateInterval() time.Duration {
	switch {
	case c.DelegateInterval < time.Millisecond:
		return time.Millisecond
	case c.DelegateInterval > 10*time.Second:
		return 10 * time.Second
	default:
		return c.DelegateInterval
	}
}

// Consumer discovers producers and merges their points into a single
// authoritative view.
type Consumer struct {
	cfg      Config
	registry *modules.Registry

	sock4 *otpnet.Socket
	sock6 *otpnet.Socket

	mu                sync.RWMutex
	producers         map[otp.CID]*peer.ProducerPeer
	observedSystems   map[uint8]bool
	advertisedSystems map[uint8]bool
	joinedSystems     map[uint8]bool
	lastDiscovered    []uint8
	lastSnapshot      map[otp.Address]*otp.Point
	supportedModules  map[otp.ModuleIdentifier]bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Consumer in the stopped state.
func New(cfg Config, registry *modules.Registry) *Consumer {
	observed := map[uint8]bool{}
	for _, s := range cfg.ObservedSystems {
		observed[s] = true
	}
	supported := map[otp.ModuleIdentifier]bool{}
	for _, id := range cfg.SupportedModules {
		supported[id] = true
	}
	return &Consumer{
		cfg:               cfg,
		registry:          registry,
		producers:         map[otp.CID]*peer.ProducerPeer{},
		observedSystems:   observed,
		advertisedSystems: map[uint8]bool{},
		joinedSystems:     map[uint8]bool{},
		lastSnapshot:      map[otp.Address]*otp.Point{},
		supportedModules:  supported,
		stopCh:            make(chan struct{}),
	}
}

// Start binds sockets, joins the advertisement multicast group, and
// begins the consumer's timers (ANSI E1.59 §4.3 "On start").
func (c *Consumer) Start() error {
	ifaces, err := otpnet.MulticastInterfaces()
	if err != nil {
		return err
	}

	if c.cfg.Mode != IPv6Only {
		sock, err := otpnet.Open(c.cfg.Port)
		if err != nil {
			return fmt.Errorf("%w: %v", otp.ErrCouldNotBind, err)
		}
		if err := sock.JoinIPv4(c.cfg.Addressing.AdvertisementIPv4, ifaces); err != nil {
			return err
		}
		c.sock4 = sock
		c.wg.Add(1)
		go func() { defer c.wg.Done(); sock.Serve() }()
	}
	if c.cfg.Mode != IPv4Only {
		sock, err := otpnet.Open(c.cfg.Port)
		if err != nil {
			return fmt.Errorf("%w: %v", otp.ErrCouldNotBind, err)
		}
		if err := sock.JoinIPv6(c.cfg.Addressing.AdvertisementIPv6, ifaces); err != nil {
			return err
		}
		c.sock6 = sock
		c.wg.Add(1)
		go func() { defer c.wg.Done(); sock.Serve() }()
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.runEarlyTimers()

	log.Infof("consumer %s: started on port %d", c.cfg.Name, c.cfg.Port)
	return nil
}

func (c *Consumer) runEarlyTimers() {
	defer c.wg.Done()
	moduleAdvert := time.NewTicker(moduleAdvertEmitInterval)
	defer moduleAdvert.Stop()
	dataLoss := time.NewTicker(dataLossScanInterval)
	defer dataLoss.Stop()
	delegateTick := time.NewTicker(c.cfg.clampedDelegateInterval())
	defer delegateTick.Stop()

	c.emitModuleAdvertisement()

	initial := time.After(initialWait)
	var systemAdvert, systemAdvertResult <-chan time.Time

	for {
		select {
		case <-moduleAdvert.C:
			c.emitModuleAdvertisement()
		case <-dataLoss.C:
			c.scanDataLoss()
		case <-delegateTick.C:
			c.runDelegateTick()
		case <-initial:
			initial = nil
			ticker := time.NewTicker(systemAdvertRequestInterval)
			defer ticker.Stop()
			systemAdvert = ticker.C
			c.emitSystemAdvertisementRequest()
			systemAdvertResult = time.After(systemAdvertResultDelay)
		case <-systemAdvert:
			c.emitSystemAdvertisementRequest()
			systemAdvertResult = time.After(systemAdvertResultDelay)
		case <-systemAdvertResult:
			systemAdvertResult = nil
			c.publishDiscoveredSystems()
			c.updateSubscriptions()
		case <-c.stopCh:
			return
		}
	}
}

// Stop cancels every timer and closes the sockets.
func (c *Consumer) Stop() {
	close(c.stopCh)
	if c.sock4 != nil {
		_ = c.sock4.Close()
	}
	if c.sock6 != nil {
		_ = c.sock6.Close()
	}
	c.wg.Wait()
	log.Infof("consumer %s: stopped", c.cfg.Name)
}

func (c *Consumer) readLoop() {
	defer c.wg.Done()
	var ch4, ch6 <-chan otpnet.Datagram
	if c.sock4 != nil {
		ch4 = c.sock4.Received()
	}
	if c.sock6 != nil {
		ch6 = c.sock6.Received()
	}
	for {
		select {
		case d, ok := <-ch4:
			if !ok {
				ch4 = nil
				continue
			}
			c.handleDatagram(d)
		case d, ok := <-ch6:
			if !ok {
				ch6 = nil
				continue
			}
			c.handleDatagram(d)
		case <-c.stopCh:
			return
		}
	}
}

func (c *Consumer) handleDatagram(d otpnet.Datagram) {
	layer, err := codec.DecodeOTPLayer(d.Data)
	if err != nil {
		return
	}
	family := peer.FamilyIPv4
	if d.IPv6 {
		family = peer.FamilyIPv6
	}
	switch layer.Vector {
	case codec.VectorOTPTransform:
		c.handleTransform(layer, family, d.Addr)
	case codec.VectorOTPAdvertisement:
		adv, err := codec.DecodeAdvertisementLayer(layer.Body)
		if err != nil {
			return
		}
		switch adv.Vector {
		case codec.VectorAdvertSystem:
			c.handleSystemAdvertisementResponse(layer, adv, family, d.Addr)
		case codec.VectorAdvertName:
			c.handleNameAdvertisementResponse(layer, adv, family, d.Addr)
		}
	}
}

func (c *Consumer) producerPeer(cid otp.CID, name string) *peer.ProducerPeer {
	pp, ok := c.producers[cid]
	if !ok {
		pp = peer.NewProducerPeer(cid, name)
		c.producers[cid] = pp
	}
	return pp
}

func (c *Consumer) sendTo(body []byte, vector codec.Vector, dst *net.UDPAddr) {
	l := &codec.OTPLayer{
		Vector:        codec.VectorOTPAdvertisement,
		SourceCID:     c.cfg.CID,
		ComponentName: c.cfg.Name,
		Body:          codec.EncodeAdvertisementLayer(vector, body),
	}
	dgram := l.Encode()
	if dst.IP.To4() != nil && c.sock4 != nil {
		_ = c.sock4.SendTo(dgram, dst)
	} else if c.sock6 != nil {
		_ = c.sock6.SendTo(dgram, dst)
	}
}
