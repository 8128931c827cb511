package commands

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/modules"
	"github.com/burgrp-go/otp/pkg/otpnet"
	"github.com/burgrp-go/otp/pkg/producer"
)

func GetProduceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "produce <system> <group> <point>",
		Short: "Produce a single point with a position module",
		Long: `Starts a Producer advertising one point at the given address with a
Position module. The initial position is 0,0,0 (micrometers). With --stay,
subsequent "x y z" lines read from stdin update the position; otherwise
the command stops the producer and exits as soon as the point is added.`,
		RunE: runProduce,
		Args: cobra.ExactArgs(3),
	}

	cmd.Flags().BoolP("stay", "s", false, "Stay running, reading \"x y z\" updates from stdin")
	cmd.Flags().Uint8("priority", uint8(otp.DefaultPriority), "Point priority (0-200)")
	cmd.Flags().String("name", "", "Point name")

	return cmd
}

func runProduce(cmd *cobra.Command, args []string) error {
	env, err := GetEnvironment()
	if err != nil {
		return err
	}

	addr, err := parseAddressArgs(args)
	if err != nil {
		return err
	}

	priorityFlag, err := cmd.Flags().GetUint8("priority")
	if err != nil {
		return err
	}
	priority, err := otp.NewPriority(int(priorityFlag))
	if err != nil {
		return err
	}
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}
	stay, err := cmd.Flags().GetBool("stay")
	if err != nil {
		return err
	}

	registry := modules.NewRegistry()
	prod := producer.New(producer.Config{
		Name:       env.Name,
		CID:        env.CID,
		Mode:       producer.IPv4And6,
		Addressing: otpnet.DefaultAddressing(),
		Port:       env.Port,
	}, registry)

	if err := prod.Start(); err != nil {
		return err
	}
	defer prod.Stop()

	if err := prod.AddPoint(addr, priority, name); err != nil {
		return err
	}
	position := &modules.Position{}
	if err := prod.AddModule(addr, priority, position); err != nil {
		return err
	}
	fmt.Printf("producing %s at priority %d\n", addr, priority)

	if !stay {
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 {
			fmt.Println("expected: x y z")
			continue
		}
		x, errX := strconv.ParseInt(fields[0], 10, 32)
		y, errY := strconv.ParseInt(fields[1], 10, 32)
		z, errZ := strconv.ParseInt(fields[2], 10, 32)
		if errX != nil || errY != nil || errZ != nil {
			fmt.Println("expected three integers: x y z")
			continue
		}
		if err := prod.UpdateModule(addr, priority, &modules.Position{X: int32(x), Y: int32(y), Z: int32(z)}); err != nil {
			fmt.Println(err)
		}
	}
	return scanner.Err()
}

func parseAddressArgs(args []string) (otp.Address, error) {
	system, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return otp.Address{}, fmt.Errorf("system: %w", err)
	}
	group, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return otp.Address{}, fmt.Errorf("group: %w", err)
	}
	point, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return otp.Address{}, fmt.Errorf("point: %w", err)
	}
	return otp.NewAddress(uint16(system), uint32(group), uint32(point))
}
