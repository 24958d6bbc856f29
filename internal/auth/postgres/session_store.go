// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authgate/internal/auth"
	"github.com/holomush/authgate/internal/observability"
)

// storeName labels this store in metrics.
const storeName = "postgres"

// SessionStore implements auth.SessionStore on the user_sessions table.
//
// session_id is not unique in the schema. Lookups that find several rows use
// the oldest one and report the anomaly instead of failing the request.
type SessionStore struct {
	db     DBTX
	logger *slog.Logger
}

// NewSessionStore creates a new SessionStore. A nil logger uses slog.Default().
func NewSessionStore(db DBTX, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{db: db, logger: logger}
}

// Put inserts a session record.
func (s *SessionStore) Put(ctx context.Context, session *auth.Session) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_sessions (id, session_id, user_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, ulid.Make().String(), session.ID, session.UserID, session.CreatedAt)
	if err != nil {
		return oops.Code("SESSION_PUT_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// Get returns the oldest record stored under id, or nil.
func (s *SessionStore) Get(ctx context.Context, id string) (*auth.Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT session_id, user_id, created_at
		FROM user_sessions
		WHERE session_id = $1
		ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "query session").
			Wrap(err)
	}
	defer rows.Close()

	var (
		first *auth.Session
		count int
	)
	for rows.Next() {
		count++
		if first != nil {
			continue
		}
		var session auth.Session
		if err := rows.Scan(&session.ID, &session.UserID, &session.CreatedAt); err != nil {
			return nil, oops.Code("SESSION_GET_FAILED").
				With("operation", "scan session").
				Wrap(err)
		}
		first = &session
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "iterate sessions").
			Wrap(err)
	}

	if count > 1 {
		s.logger.WarnContext(ctx, "duplicate session records",
			"store", storeName,
			"records", count,
			"user_id", first.UserID)
		observability.RecordSessionAnomaly(storeName)
	}
	return first, nil
}

// Remove deletes every record stored under id.
func (s *SessionStore) Remove(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM user_sessions WHERE session_id = $1`, id)
	if err != nil {
		return false, oops.Code("SESSION_REMOVE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
