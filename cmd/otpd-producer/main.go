package main

import (
	"math"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/modules"
	"github.com/burgrp-go/otp/pkg/otpmetrics"
	"github.com/burgrp-go/otp/pkg/otpnet"
	"github.com/burgrp-go/otp/pkg/producer"
)

func main() {
	name := os.Getenv("OTP_NAME")
	if name == "" {
		name = "otpd-producer"
	}

	metrics := otpmetrics.New()
	go func() {
		if err := metrics.Serve(9100); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()

	registry := modules.NewRegistry()
	prod := producer.New(producer.Config{
		Name:       name,
		CID:        otp.NewCID(),
		Mode:       producer.IPv4And6,
		Addressing: otpnet.DefaultAddressing(),
		Port:       5568,
		Metrics:    metrics,
	}, registry)

	if err := prod.Start(); err != nil {
		log.Fatalf("starting producer: %v", err)
	}
	defer prod.Stop()

	addr, err := otp.NewAddress(1, 1, 1)
	if err != nil {
		log.Fatalf("address: %v", err)
	}
	if err := prod.AddPoint(addr, otp.DefaultPriority, "demo-point"); err != nil {
		log.Fatalf("adding point: %v", err)
	}
	if err := prod.AddModule(addr, otp.DefaultPriority, &modules.Position{}); err != nil {
		log.Fatalf("adding position module: %v", err)
	}

	log.Infof("%s: orbiting point %s", name, addr)
	t := 0.0
	for {
		x := int32(1000 * math.Cos(t))
		y := int32(1000 * math.Sin(t))
		if err := prod.UpdateModule(addr, otp.DefaultPriority, &modules.Position{X: x, Y: y}); err != nil {
			log.Errorf("updating position: %v", err)
		}
		t += 0.1
		time.Sleep(500 * time.Millisecond)
	}
}
