// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/holomush/authgate/pkg/errutil"
)

// SessionManager implements SessionLifecycle over any SessionStore.
//
// Expiration is lazy: a session older than the configured lifetime stops
// resolving but stays in the store until it is removed explicitly.
type SessionManager struct {
	store    SessionStore
	lifetime time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionManager creates a SessionManager. A non-positive lifetime means
// sessions never expire. Only the WithClock and WithLogger options apply.
func NewSessionManager(store SessionStore, lifetime time.Duration, opts ...Option) *SessionManager {
	o := buildOptions(opts)
	return &SessionManager{
		store:    store,
		lifetime: lifetime,
		now:      o.now,
		logger:   o.logger,
	}
}

// Lifetime returns the configured session lifetime (0 = unlimited).
func (m *SessionManager) Lifetime() time.Duration {
	if m.lifetime < 0 {
		return 0
	}
	return m.lifetime
}

// CreateSession starts a session for userID and returns its identifier.
func (m *SessionManager) CreateSession(ctx context.Context, userID string) (string, bool) {
	if userID == "" {
		return "", false
	}

	id, err := GenerateSessionID()
	if err != nil {
		errutil.LogErrorContext(ctx, m.logger, "session id generation failed", err)
		return "", false
	}

	session := &Session{ID: id, UserID: userID, CreatedAt: m.now()}
	if err := m.store.Put(ctx, session); err != nil {
		errutil.LogErrorContext(ctx, m.logger, "session store put failed", err)
		return "", false
	}
	return id, true
}

// UserIDForSession resolves a session identifier to its user identifier.
func (m *SessionManager) UserIDForSession(ctx context.Context, sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}

	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		errutil.LogErrorContext(ctx, m.logger, "session store get failed", err)
		return "", false
	}
	if session == nil {
		return "", false
	}
	if session.ExpiredAt(m.now(), m.lifetime) {
		m.logger.DebugContext(ctx, "session expired", "user_id", session.UserID)
		return "", false
	}
	return session.UserID, true
}

// DestroySession removes a session and reports whether it existed.
func (m *SessionManager) DestroySession(ctx context.Context, sessionID string) bool {
	if sessionID == "" {
		return false
	}

	removed, err := m.store.Remove(ctx, sessionID)
	if err != nil {
		errutil.LogErrorContext(ctx, m.logger, "session store remove failed", err)
		return false
	}
	return removed
}

// Compile-time interface check.
var _ SessionLifecycle = (*SessionManager)(nil)
