// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holomush/authgate/internal/auth"
	"github.com/holomush/authgate/internal/config"
)

// Status is the resolved configuration as reported by the status command.
type Status struct {
	Strategy        string   `json:"strategy"`
	SessionCookie   string   `json:"session_cookie"`
	SessionLifetime string   `json:"session_lifetime"`
	UserStore       string   `json:"user_store"`
	SessionStore    string   `json:"session_store,omitempty"`
	DatabaseURL     string   `json:"database_url,omitempty"`
	RedisAddr       string   `json:"redis_addr,omitempty"`
	Addr            string   `json:"addr"`
	MetricsAddr     string   `json:"metrics_addr,omitempty"`
	ExcludedPaths   []string `json:"excluded_paths"`
	Valid           bool     `json:"valid"`
	Error           string   `json:"error,omitempty"`
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the resolved configuration",
		Long:  `Show the configuration serve would use, with credentials redacted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st := buildStatus(cfg)
			if jsonOutput {
				return writeStatusJSON(cmd, st)
			}
			writeStatusTable(cmd, st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")
	return cmd
}

func buildStatus(cfg *config.Config) Status {
	kind := auth.ParseKind(cfg.AuthType)
	st := Status{
		Strategy:        kind.String(),
		SessionCookie:   cfg.SessionName,
		SessionLifetime: "unlimited",
		UserStore:       cfg.UserStore,
		DatabaseURL:     redactURL(cfg.DatabaseURL),
		RedisAddr:       cfg.RedisAddr,
		Addr:            cfg.Addr,
		MetricsAddr:     cfg.MetricsAddr,
		ExcludedPaths:   cfg.ExcludedPaths,
		Valid:           true,
	}
	if lifetime := cfg.SessionLifetime(); lifetime > 0 && (kind == auth.KindSessionExp || kind == auth.KindSessionDB) {
		st.SessionLifetime = lifetime.String()
	}
	switch kind {
	case auth.KindSessionDB:
		st.SessionStore = cfg.SessionStore
	case auth.KindSession, auth.KindSessionExp:
		st.SessionStore = config.StoreMemory
	}
	if err := cfg.Validate(); err != nil {
		st.Valid = false
		st.Error = err.Error()
	}
	return st
}

// redactURL hides the password of a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparsable>"
	}
	return u.Redacted()
}

func writeStatusJSON(cmd *cobra.Command, st Status) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	return nil
}

func writeStatusTable(cmd *cobra.Command, st Status) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"STRATEGY", st.Strategy},
		{"SESSION COOKIE", st.SessionCookie},
		{"SESSION LIFETIME", st.SessionLifetime},
		{"USER STORE", st.UserStore},
		{"SESSION STORE", st.SessionStore},
		{"DATABASE URL", st.DatabaseURL},
		{"REDIS ADDR", st.RedisAddr},
		{"ADDR", st.Addr},
		{"METRICS ADDR", st.MetricsAddr},
		{"EXCLUDED PATHS", strings.Join(st.ExcludedPaths, ", ")},
	}
	for _, row := range rows {
		if row[1] == "" {
			row[1] = "-"
		}
		fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	if st.Valid {
		fmt.Fprintln(w, "CONFIG\tvalid")
	} else {
		fmt.Fprintf(w, "CONFIG\tinvalid: %s\n", st.Error)
	}
	//nolint:errcheck // best-effort flush to the command output
	w.Flush()
}
