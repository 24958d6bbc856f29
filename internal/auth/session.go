// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// SessionIDBytes is the entropy of a session identifier (64 hex chars).
const SessionIDBytes = 32

// Session binds an opaque session identifier to a user.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time // zero when the creation time is unknown
}

// ExpiredAt reports whether the session is past its lifetime at t.
// A non-positive lifetime never expires. A session exactly at
// CreatedAt+lifetime is still valid.
func (s *Session) ExpiredAt(t time.Time, lifetime time.Duration) bool {
	if lifetime <= 0 {
		return false
	}
	if s.CreatedAt.IsZero() {
		return true
	}
	return t.After(s.CreatedAt.Add(lifetime))
}

// GenerateSessionID creates a fresh, unguessable session identifier.
func GenerateSessionID() (string, error) {
	b := make([]byte, SessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SESSION_ID_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionIDBytes).
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// SessionStore holds the mapping from session identifier to session record.
//
// Get returns (nil, nil) for unknown identifiers. Implementations must be safe
// for concurrent use.
type SessionStore interface {
	// Put stores a session under its ID. Identifiers are fresh per session, so
	// stores may append rather than replace.
	Put(ctx context.Context, session *Session) error

	// Get retrieves the session stored under id.
	Get(ctx context.Context, id string) (*Session, error)

	// Remove deletes the session stored under id and reports whether it existed.
	Remove(ctx context.Context, id string) (bool, error)
}
