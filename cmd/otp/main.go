package main

import (
	"os"

	"github.com/burgrp-go/otp/cmd/otp/commands"
)

func main() {
	if err := commands.GetRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
