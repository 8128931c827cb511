// Package producer implements the Producer engine of ANSI E1.59 §4.2: a
// component that owns a set of points and periodically serializes the
// sampled ones into transform datagrams, while answering discovery
// traffic from consumers.
//
// A struct holding mutex-guarded maps, a dedicated goroutine reading the
// socket's receive channel, and a second goroutine driving periodic work
// with time.After/time.Ticker, generalized to OTP's per-system point
// ownership and three independent timer cadences (transform,
// module-advertisement housekeeping, and data-loss scan).
package producer

import (
	"fmt"
	"math/rand"
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

// IPMode selects which address families a producer listens and sends on.
type IPMode int

const (
	IPv4Only IPMode = iota
	IPv6Only
	IPv4And6
)

const (
	initialWait              = 12 * time.Second
	moduleAdvertHousekeeping = 10 * time.Second
	dataLossScanInterval     = 1 * time.Second
	advertResponseMaxDelay   = 5 * time.Second
	moduleRequestMaxAge      = 30 * time.Second
	fullSetInterval          = 2800 * time.Millisecond
	// ceaseTransmissionTicks is how many consecutive deltas an unchanged
	// point is still included in after a change, before being omitted
	// (ANSI E1.59 §4.2 "Transform emission").
	ceaseTransmissionTicks = 4
)

// Config configures a Producer's identity and timing.
type Config struct {
	Name            string
	CID             otp.CID
	Mode            IPMode
	DefaultPriority otp.Priority
	TransformPeriod time.Duration // clamped to [1ms, 50ms]
	Addressing      otpnet.Addressing
	Port            int
	Metrics         *otpmetrics.Metrics
}

func (c Config) clampedTransformPeriod() time.Duration {
	switch {
	case c.TransformPeriod < time.Millisecond:
		return time.Millisecond
	case c.TransformPeriod > 50*time.Millisecond:
		return 50 * time.Millisecond
	default:
		return c.TransformPeriod
	}
}

// ownedPoint wraps an otp.Point with the producer-local bookkeeping the
// transform timer needs: whether it changed since the last tick, and how
// many more ticks it should still be included in after a change stops.
type ownedPoint struct {
	point                *otp.Point
	changedSinceLastTick bool
	ceaseCountdown       int
	hasRequestedModule   bool
}

func (op *ownedPoint) key() pointKey {
	return pointKey{addr: op.point.Address, priority: op.point.Priority}
}

type pointKey struct {
	addr     otp.Address
	priority otp.Priority
}

// Producer owns a set of points and periodically transmits them.
type Producer struct {
	cfg        Config
	registry   *modules.Registry
	timeOrigin time.Time

	sock4 *otpnet.Socket
	sock6 *otpnet.Socket

	mu        sync.RWMutex
	points    map[pointKey]*ownedPoint
	consumers map[otp.CID]*peer.ConsumerPeer

	fullSetCounter time.Duration
	systemFolios   map[uint8]otp.FolioNumber
	advertFolio    otp.FolioNumber

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Producer in the stopped state.
func New(cfg Config, registry *modules.Registry) *Producer {
	if cfg.DefaultPriority == 0 {
		cfg.DefaultPriority = 100
	}
	return &Producer{
		cfg:          cfg,
		registry:     registry,
		timeOrigin:   time.Unix(0, 0),
		points:       map[pointKey]*ownedPoint{},
		consumers:    map[otp.CID]*peer.ConsumerPeer{},
		systemFolios: map[uint8]otp.FolioNumber{},
		stopCh:       make(chan struct{}),
	}
}

// Start binds sockets, joins the advertisement multicast group on each
// enabled family, and begins the producer's timers after the 12s initial
// wait (ANSI E1.59 §4.2 "On start").
func (p *Producer) Start() error {
	ifaces, err := otpnet.MulticastInterfaces()
	if err != nil {
		return err
	}

	if p.cfg.Mode != IPv6Only {
		sock, err := otpnet.Open(p.cfg.Port)
		if err != nil {
			return fmt.Errorf("%w: %v", otp.ErrCouldNotBind, err)
		}
		if err := sock.JoinIPv4(p.cfg.Addressing.AdvertisementIPv4, ifaces); err != nil {
			return err
		}
		p.sock4 = sock
		p.wg.Add(1)
		go func() { defer p.wg.Done(); sock.Serve() }()
	}
	if p.cfg.Mode != IPv4Only {
		sock, err := otpnet.Open(p.cfg.Port)
		if err != nil {
			return fmt.Errorf("%w: %v", otp.ErrCouldNotBind, err)
		}
		if err := sock.JoinIPv6(p.cfg.Addressing.AdvertisementIPv6, ifaces); err != nil {
			return err
		}
		p.sock6 = sock
		p.wg.Add(1)
		go func() { defer p.wg.Done(); sock.Serve() }()
	}

	p.wg.Add(1)
	go p.readLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case <-time.After(initialWait):
		case <-p.stopCh:
			return
		}
		p.runTimers()
	}()

	log.Infof("producer %s: started on port %d", p.cfg.Name, p.cfg.Port)
	return nil
}

// Stop cancels every timer and closes the sockets (ANSI E1.59 §5
// "Cancellation and timeouts").
func (p *Producer) Stop() {
	close(p.stopCh)
	if p.sock4 != nil {
		_ = p.sock4.Close()
	}
	if p.sock6 != nil {
		_ = p.sock6.Close()
	}
	p.wg.Wait()
	log.Infof("producer %s: stopped", p.cfg.Name)
}

func (p *Producer) runTimers() {
	transformTick := time.NewTicker(p.cfg.clampedTransformPeriod())
	defer transformTick.Stop()
	housekeeping := time.NewTicker(moduleAdvertHousekeeping)
	defer housekeeping.Stop()
	dataLoss := time.NewTicker(dataLossScanInterval)
	defer dataLoss.Stop()

	last := time.Now()
	for {
		select {
		case now := <-transformTick.C:
			elapsed := now.Sub(last)
			last = now
			p.emitTransforms(elapsed)
		case <-housekeeping.C:
			p.refreshModuleRequests()
		case <-dataLoss.C:
			p.scanDataLoss()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Producer) readLoop() {
	defer p.wg.Done()
	var ch4, ch6 <-chan otpnet.Datagram
	if p.sock4 != nil {
		ch4 = p.sock4.Received()
	}
	if p.sock6 != nil {
		ch6 = p.sock6.Received()
	}
	for {
		select {
		case d, ok := <-ch4:
			if !ok {
				ch4 = nil
				continue
			}
			p.handleDatagram(d)
		case d, ok := <-ch6:
			if !ok {
				ch6 = nil
				continue
			}
			p.handleDatagram(d)
		case <-p.stopCh:
			return
		}
	}
}

func (p *Producer) handleDatagram(d otpnet.Datagram) {
	layer, err := codec.DecodeOTPLayer(d.Data)
	if err != nil {
		// packet identifier mismatch or structurally invalid: dropped
		// silently per ANSI E1.59 §7.
		return
	}
	if layer.Vector != codec.VectorOTPAdvertisement {
		return
	}
	adv, err := codec.DecodeAdvertisementLayer(layer.Body)
	if err != nil {
		return
	}
	family := peer.FamilyIPv4
	if d.IPv6 {
		family = peer.FamilyIPv6
	}
	switch adv.Vector {
	case codec.VectorAdvertModule:
		p.handleModuleAdvertisement(layer, adv, family, d.Addr)
	case codec.VectorAdvertSystem:
		p.handleSystemAdvertisementRequest(layer, adv, family, d.Addr)
	case codec.VectorAdvertName:
		p.handleNameAdvertisementRequest(layer, adv, family, d.Addr)
	}
}

func (p *Producer) consumerPeer(cid otp.CID, name string) *peer.ConsumerPeer {
	cp, ok := p.consumers[cid]
	if !ok {
		cp = peer.NewConsumerPeer(cid, name)
		p.consumers[cid] = cp
	}
	return cp
}

func randomBackoff() time.Duration {
	return time.Duration(rand.Int63n(int64(advertResponseMaxDelay)))
}
