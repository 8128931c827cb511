package main

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/consumer"
	"github.com/burgrp-go/otp/pkg/modules"
	"github.com/burgrp-go/otp/pkg/otpmetrics"
	"github.com/burgrp-go/otp/pkg/otpnet"
	"github.com/burgrp-go/otp/pkg/peer"
)

type loggingDelegate struct{}

func (loggingDelegate) DiscoveredSystemNumbers(systems []uint8) {
	log.Infof("discovered systems: %v", systems)
}

func (loggingDelegate) ReplaceAllPoints(points []*otp.Point) {
	log.Infof("full refresh: %d points", len(points))
}

func (loggingDelegate) PointsChanged(points []*otp.Point) {
	for _, p := range points {
		pos, _ := p.Modules[otp.ModulePosition].(*modules.Position)
		log.Infof("%s %q: %+v", p.Address, p.Name, pos)
	}
}

func (loggingDelegate) ProducerStatusChanged(cid otp.CID, visibility peer.Visibility) {
	log.Infof("producer %s: visibility %d", cid, visibility)
}

func main() {
	name := os.Getenv("OTP_NAME")
	if name == "" {
		name = "otpd-consumer"
	}

	metrics := otpmetrics.New()
	go func() {
		if err := metrics.Serve(9101); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()

	registry := modules.NewRegistry()
	con := consumer.New(consumer.Config{
		Name:             name,
		CID:              otp.NewCID(),
		Mode:             consumer.IPv4And6,
		SupportedModules: []otp.ModuleIdentifier{otp.ModulePosition, otp.ModuleRotation},
		ObservedSystems:  []uint8{1},
		DelegateInterval: 200 * time.Millisecond,
		Addressing:       otpnet.DefaultAddressing(),
		Port:             5568,
		Metrics:          metrics,
		Delegate:         loggingDelegate{},
	}, registry)

	if err := con.Start(); err != nil {
		log.Fatalf("starting consumer: %v", err)
	}
	defer con.Stop()

	log.Infof("%s: watching system 1", name)
	select {}
}
