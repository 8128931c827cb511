package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/consumer"
	"github.com/burgrp-go/otp/pkg/modules"
	"github.com/burgrp-go/otp/pkg/otpnet"
	"github.com/burgrp-go/otp/pkg/peer"
)

func GetSystemsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "systems",
		Short: "List system numbers currently advertised by producers",
		Long: `Starts a Consumer that requests and listens for system advertisements,
then prints the first non-empty set of discovered system numbers as soon
as it is reported, or an empty list once --timeout elapses.`,
		RunE: runSystems,
	}
	cmd.Flags().DurationP("timeout", "t", 15*time.Second, "How long to listen before reporting")
	return cmd
}

type systemsDelegate struct {
	done chan []uint8
}

func (d systemsDelegate) DiscoveredSystemNumbers(systems []uint8) {
	select {
	case d.done <- systems:
	default:
	}
}
func (systemsDelegate) ReplaceAllPoints(points []*otp.Point)                        {}
func (systemsDelegate) PointsChanged(points []*otp.Point)                           {}
func (systemsDelegate) ProducerStatusChanged(cid otp.CID, visibility peer.Visibility) {}

func runSystems(cmd *cobra.Command, args []string) error {
	env, err := GetEnvironment()
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	registry := modules.NewRegistry()
	latest := make(chan []uint8, 1)
	con := consumer.New(consumer.Config{
		Name:             env.Name,
		CID:              env.CID,
		Mode:             consumer.IPv4And6,
		DelegateInterval: 200 * time.Millisecond,
		Addressing:       otpnet.DefaultAddressing(),
		Port:             env.Port,
		Delegate:         systemsDelegate{done: latest},
	}, registry)

	if err := con.Start(); err != nil {
		return err
	}
	defer con.Stop()

	var systems []uint8
	select {
	case systems = <-latest:
	case <-time.After(timeout):
	}
	fmt.Printf("systems: %v\n", systems)
	return nil
}
