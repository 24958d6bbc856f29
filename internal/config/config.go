// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authgate configuration from defaults, an optional YAML
// file, the environment and command-line flags, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/authgate/internal/xdg"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Defaults.
const (
	DefaultAddr         = "0.0.0.0:5000"
	DefaultMetricsAddr  = "127.0.0.1:9100"
	DefaultLogFormat    = "json"
	DefaultSessionName  = "_my_session_id"
	DefaultUserStore    = StoreMemory
	DefaultSessionStore = StorePostgres
)

// DefaultExcludedPaths are the API routes reachable without credentials.
var DefaultExcludedPaths = []string{
	"/api/v1/status/",
	"/api/v1/unauthorized/",
	"/api/v1/forbidden/",
	"/api/v1/register/",
	"/api/v1/auth_session/*",
	"/api/v1/sessions/",
	"/api/v1/profile/",
	"/api/v1/reset_password/",
}

// envKeys maps environment variables to configuration keys.
var envKeys = map[string]string{
	"AUTH_TYPE":               "auth_type",
	"SESSION_NAME":            "session_name",
	"SESSION_DURATION":        "session_duration",
	"DATABASE_URL":            "database_url",
	"REDIS_ADDR":              "redis_addr",
	"AUTHGATE_ADDR":           "addr",
	"AUTHGATE_METRICS_ADDR":   "metrics_addr",
	"AUTHGATE_LOG_FORMAT":     "log_format",
	"AUTHGATE_USER_STORE":     "user_store",
	"AUTHGATE_SESSION_STORE":  "session_store",
	"AUTHGATE_EXCLUDED_PATHS": "excluded_paths",
}

// Config is the resolved service configuration.
type Config struct {
	AuthType        string   `koanf:"auth_type"`
	SessionName     string   `koanf:"session_name"`
	SessionDuration int      `koanf:"session_duration"` // seconds; <= 0 disables expiry
	DatabaseURL     string   `koanf:"database_url"`
	RedisAddr       string   `koanf:"redis_addr"`
	Addr            string   `koanf:"addr"`
	MetricsAddr     string   `koanf:"metrics_addr"` // empty disables the metrics server
	LogFormat       string   `koanf:"log_format"`
	UserStore       string   `koanf:"user_store"`
	SessionStore    string   `koanf:"session_store"`
	ExcludedPaths   []string `koanf:"excluded_paths"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		SessionName:   DefaultSessionName,
		Addr:          DefaultAddr,
		MetricsAddr:   DefaultMetricsAddr,
		LogFormat:     DefaultLogFormat,
		UserStore:     DefaultUserStore,
		SessionStore:  DefaultSessionStore,
		ExcludedPaths: append([]string(nil), DefaultExcludedPaths...),
	}
}

// mapstructure merges into a pre-filled slice instead of replacing it, so
// Load decodes into a base without excluded paths and fills them in after.
func loadBase() *Config {
	cfg := Default()
	cfg.ExcludedPaths = nil
	return cfg
}

// Load resolves the configuration. path names an optional YAML file; flags,
// when non-nil, contributes only the flags the user actually set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := loadBase()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}
	if cfg.ExcludedPaths == nil {
		cfg.ExcludedPaths = append([]string(nil), DefaultExcludedPaths...)
	}
	return cfg, nil
}

func envValue(name, value string) (string, any) {
	key, ok := envKeys[name]
	if !ok || value == "" {
		return "", nil
	}
	switch key {
	case "session_duration":
		seconds, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return key, 0
		}
		return key, seconds
	case "excluded_paths":
		return key, strings.Split(value, ",")
	}
	return key, value
}

// SessionLifetime returns SessionDuration as a duration.
func (c *Config) SessionLifetime() time.Duration {
	if c.SessionDuration <= 0 {
		return 0
	}
	return time.Duration(c.SessionDuration) * time.Second
}

// NeedsDatabase reports whether any configured store is PostgreSQL.
func (c *Config) NeedsDatabase() bool {
	return c.UserStore == StorePostgres || c.usesSessionStore(StorePostgres)
}

// NeedsRedis reports whether sessions are kept in Redis.
func (c *Config) NeedsRedis() bool {
	return c.usesSessionStore(StoreRedis)
}

func (c *Config) usesSessionStore(kind string) bool {
	return c.AuthType == "session_db_auth" && c.SessionStore == kind
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.UserStore != StoreMemory && c.UserStore != StorePostgres {
		return fmt.Errorf("user-store must be %q or %q, got %q", StoreMemory, StorePostgres, c.UserStore)
	}
	if c.SessionStore != StorePostgres && c.SessionStore != StoreRedis {
		return fmt.Errorf("session-store must be %q or %q, got %q", StorePostgres, StoreRedis, c.SessionStore)
	}
	if c.NeedsDatabase() && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	if c.NeedsRedis() && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis session store")
	}
	return nil
}

// Warnings lists settings that are valid but probably not what the operator
// meant. Each entry is a complete sentence suitable for a log message.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.AuthType == "session_db_auth" && c.UserStore == StoreMemory {
		warnings = append(warnings, fmt.Sprintf(
			"sessions persist in the %s store but users live in memory; "+
				"every restart drops the users and strands their sessions (set user-store=%s)",
			c.SessionStore, StorePostgres))
	}
	return warnings
}

// RegisterFlags adds the configuration flags to fs. Defaults shown in help
// come from Default; unset flags never override other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a YAML configuration file")
	fs.String("auth-type", d.AuthType, "authentication strategy (basic_auth, session_auth, session_exp_auth, session_db_auth)")
	fs.String("session-name", d.SessionName, "session cookie name")
	fs.Int("session-duration", d.SessionDuration, "session lifetime in seconds (0 = unlimited)")
	fs.String("addr", d.Addr, "API listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("user-store", d.UserStore, "user store (memory or postgres)")
	fs.String("session-store", d.SessionStore, "persistent session store (postgres or redis)")
	fs.StringSlice("excluded-paths", d.ExcludedPaths, "paths served without authentication")
}

// ConfigPath returns the --config flag value, falling back to AUTHGATE_CONFIG
// and then to an existing $XDG_CONFIG_HOME/authgate/config.yaml.
func ConfigPath(fs *pflag.FlagSet) string {
	if fs != nil {
		if p, err := fs.GetString("config"); err == nil && p != "" {
			return p
		}
	}
	if p := os.Getenv("AUTHGATE_CONFIG"); p != "" {
		return p
	}
	return xdg.ConfigFile()
}
