// Package main provides wayfarerctl, the administration CLI: it imports
// catalog content and sweeps cooldowns against the configured store, and
// drives a running game server for player, character, and action commands.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	addr       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:          "wayfarerctl",
		Short:        "Administer a wayfarer world",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "configs/dev.yaml", "path to configuration file")
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "game server address (defaults to gameserver.grpc_host:grpc_port)")

	root.AddCommand(importCmd(flags))
	root.AddCommand(sweepCmd(flags))
	root.AddCommand(playerCmd(flags))
	root.AddCommand(characterCmd(flags))
	root.AddCommand(actionCmd(flags))
	return root
}
