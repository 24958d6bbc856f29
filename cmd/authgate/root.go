// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/authgate/internal/config"
)

// NewRootCmd creates the root command for the authgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authgate",
		Short: "authgate - pluggable authentication for an HTTP API",
		Long: `authgate serves a JSON API behind a configurable authentication
strategy: none, HTTP Basic, or cookie sessions kept in memory,
with expiry, or in PostgreSQL or Redis.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig resolves configuration for cmd from its file, environment
// and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	//nolint:wrapcheck // config errors already carry codes
	return config.Load(config.ConfigPath(flags), flags)
}
