// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/authgate/internal/auth"
	"github.com/holomush/authgate/internal/auth/memory"
	"github.com/holomush/authgate/internal/auth/postgres"
	"github.com/holomush/authgate/internal/auth/redisstore"
	"github.com/holomush/authgate/internal/config"
)

// backends holds the stores selected by configuration and the handles that
// must be closed on shutdown.
type backends struct {
	users    auth.UserRepository
	sessions auth.SessionStore // nil unless the strategy persists sessions
	pool     Pool
	redis    RedisClient
}

func (b *backends) Close() {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			slog.Warn("error closing redis client", "error", err)
		}
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// ready reports whether the persistent backends answer.
func (b *backends) ready(ctx context.Context) bool {
	if b.pool != nil && b.pool.Ping(ctx) != nil {
		return false
	}
	if b.redis != nil && b.redis.Ping(ctx).Err() != nil {
		return false
	}
	return true
}

func openBackends(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	if cfg.NeedsDatabase() {
		pool, err := deps.PoolOpener(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
		}
		b.pool = pool
	}

	switch cfg.UserStore {
	case config.StorePostgres:
		b.users = postgres.NewUserRepository(b.pool)
	default:
		b.users = memory.NewUserRepository()
	}

	if auth.ParseKind(cfg.AuthType) == auth.KindSessionDB {
		switch cfg.SessionStore {
		case config.StoreRedis:
			b.redis = deps.RedisFactory(cfg.RedisAddr)
			b.sessions = redisstore.New(b.redis, redisstore.WithTTL(redisTTL(cfg)))
		default:
			b.sessions = postgres.NewSessionStore(b.pool, logger)
		}
	}
	return b, nil
}

// redisTTL keeps logically expired sessions around for one extra lifetime
// before Redis reaps them.
func redisTTL(cfg *config.Config) time.Duration {
	return 2 * cfg.SessionLifetime()
}

func newAuthenticator(cfg *config.Config, b *backends, hasher auth.PasswordHasher, logger *slog.Logger) (*auth.Authenticator, error) {
	//nolint:wrapcheck // auth.New errors carry codes
	return auth.New(auth.ParseKind(cfg.AuthType), auth.Dependencies{
		Users:           b.users,
		Hasher:          hasher,
		SessionStore:    b.sessions,
		SessionLifetime: cfg.SessionLifetime(),
		Options: []auth.Option{
			auth.WithCookieName(cfg.SessionName),
			auth.WithLogger(logger),
		},
	})
}
