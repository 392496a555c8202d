package main

import (
	"os"

	"regulus/internal/cli"
	"regulus/internal/platform/config"
)

func main() {
	if err := cli.NewRootCmd(config.FromEnv()).Execute(); err != nil {
		os.Exit(1)
	}
}
