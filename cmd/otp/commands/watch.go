package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/consumer"
	"github.com/burgrp-go/otp/pkg/modules"
	"github.com/burgrp-go/otp/pkg/otpnet"
	"github.com/burgrp-go/otp/pkg/peer"
)

func GetWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <system> [<system> ...]",
		Short: "Watch merged points on the given system numbers",
		Long: `Starts a Consumer observing the given system numbers and prints each
merged point as it changes. Runs until interrupted or --timeout elapses.`,
		RunE: runWatch,
		Args: cobra.MinimumNArgs(1),
	}

	cmd.Flags().DurationP("timeout", "t", 0, "Stop after this long (0 = run until interrupted)")

	return cmd
}

type printingDelegate struct{}

func (printingDelegate) DiscoveredSystemNumbers(systems []uint8) {
	fmt.Printf("discovered systems: %v\n", systems)
}

func (printingDelegate) ReplaceAllPoints(points []*otp.Point) {
	fmt.Printf("-- full refresh: %d points --\n", len(points))
	for _, p := range points {
		printPoint(p)
	}
}

func (printingDelegate) PointsChanged(points []*otp.Point) {
	for _, p := range points {
		printPoint(p)
	}
}

func (printingDelegate) ProducerStatusChanged(cid otp.CID, visibility peer.Visibility) {
	fmt.Printf("producer %s: %s\n", cid, visibilityName(visibility))
}

func visibilityName(v peer.Visibility) string {
	switch v {
	case peer.Online:
		return "online"
	case peer.Advertising:
		return "advertising"
	default:
		return "offline"
	}
}

func printPoint(p *otp.Point) {
	fmt.Printf("%s %q priority=%d", p.Address, p.Name, p.Priority)
	if pos, ok := p.Modules[otp.ModulePosition].(*modules.Position); ok {
		fmt.Printf(" position=(%d,%d,%d)", pos.X, pos.Y, pos.Z)
	}
	fmt.Println()
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := GetEnvironment()
	if err != nil {
		return err
	}

	var systems []uint8
	for _, a := range args {
		n, err := strconv.ParseUint(a, 10, 8)
		if err != nil {
			return fmt.Errorf("system %q: %w", a, err)
		}
		systems = append(systems, uint8(n))
	}

	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	registry := modules.NewRegistry()
	con := consumer.New(consumer.Config{
		Name:             env.Name,
		CID:              env.CID,
		Mode:             consumer.IPv4And6,
		SupportedModules: []otp.ModuleIdentifier{otp.ModulePosition, otp.ModuleRotation},
		ObservedSystems:  systems,
		DelegateInterval: 200 * time.Millisecond,
		Addressing:       otpnet.DefaultAddressing(),
		Port:             env.Port,
		Delegate:         printingDelegate{},
	}, registry)

	if err := con.Start(); err != nil {
		return err
	}
	defer con.Stop()

	if timeout > 0 {
		<-time.After(timeout)
		return nil
	}
	<-cmd.Context().Done()
	return nil
}
