// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"log/slog"
	"net/http"

	"github.com/holomush/authgate/pkg/errutil"
)

// SessionResolver resolves principals from the session cookie.
type SessionResolver struct {
	cookieName string
	sessions   SessionLifecycle
	users      UserRepository
	logger     *slog.Logger
}

// Resolve maps the session cookie to a user. Missing cookies, unknown or
// expired sessions and failed user lookups all yield nil.
func (s *SessionResolver) Resolve(r *http.Request) *User {
	sessionID, ok := sessionCookieValue(r, s.cookieName)
	if !ok {
		return nil
	}
	ctx := r.Context()
	userID, ok := s.sessions.UserIDForSession(ctx, sessionID)
	if !ok {
		return nil
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "session user lookup failed", err)
		return nil
	}
	return user
}

// Compile-time interface check.
var _ PrincipalResolver = (*SessionResolver)(nil)
