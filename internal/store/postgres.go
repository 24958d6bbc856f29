// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry defaults. The database frequently starts alongside the
// service, so the first pings may fail.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 200 * time.Millisecond
)

type openOptions struct {
	attempts uint64
	backoff  time.Duration
	logger   *slog.Logger
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithConnectRetry sets how many pings are attempted and the initial backoff
// between them. Attempts below 1 are treated as 1.
func WithConnectRetry(attempts int, backoff time.Duration) OpenOption {
	return func(o *openOptions) {
		if attempts < 1 {
			attempts = 1
		}
		o.attempts = uint64(attempts)
		if backoff > 0 {
			o.backoff = backoff
		}
	}
}

// WithOpenLogger sets the logger used to report failed connection attempts.
func WithOpenLogger(logger *slog.Logger) OpenOption {
	return func(o *openOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open creates a pgx pool for dsn and waits until the database answers a ping.
func Open(ctx context.Context, dsn string, opts ...OpenOption) (*pgxpool.Pool, error) {
	o := openOptions{
		attempts: DefaultConnectAttempts,
		backoff:  DefaultConnectBackoff,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(o.attempts-1, retry.NewExponential(o.backoff))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			o.logger.WarnContext(ctx, "database ping failed",
				"attempt", attempt,
				"max_attempts", o.attempts,
				"error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return pool, nil
}
