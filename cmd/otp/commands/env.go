package commands

import (
	"fmt"
	"os"

	otp "github.com/burgrp-go/otp/pkg"
)

// Environment holds the identity and network settings every subcommand
// needs to start a Producer or Consumer. OTP_CID persists a component's
// identity across restarts; without it, a fresh random CID is minted
// every run and peers see a new component on each invocation.
type Environment struct {
	Name string
	CID  otp.CID
	Port int
}

const defaultPort = 5568

// GetEnvironment reads the process environment, generating a random CID
// when OTP_CID is unset rather than failing, since a throwaway CLI
// invocation has no natural place to persist one.
func GetEnvironment() (*Environment, error) {
	env := &Environment{
		Name: os.Getenv("OTP_NAME"),
		Port: defaultPort,
		CID:  otp.NewCID(),
	}
	if env.Name == "" {
		env.Name = "otp-cli"
	}
	if s := os.Getenv("OTP_CID"); s != "" {
		cid, err := otp.ParseCID(s)
		if err != nil {
			return nil, fmt.Errorf("OTP_CID: %w", err)
		}
		env.CID = cid
	}
	return env, nil
}
