// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/authgate/pkg/errutil"
)

// Service provides registration and the session-field login flow, where the
// active session id is stored on the user record itself.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewAuthService creates a new Service.
func NewAuthService(users UserRepository, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	o := buildOptions(opts)
	return &Service{
		users:  users,
		hasher: hasher,
		logger: o.logger,
	}, nil
}

// RegisterUser creates a user with the given credentials.
// Returns an error wrapping ErrUserAlreadyExists if the email is taken.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*User, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}
	if existing != nil {
		return nil, oops.Code("AUTH_USER_EXISTS").With("email", email).Wrap(ErrUserAlreadyExists)
	}

	user, err := NewUser(email)
	if err != nil {
		return nil, err
	}
	if err := user.SetPassword(s.hasher, password); err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, oops.Code("AUTH_USER_EXISTS").With("email", email).Wrap(err)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}
	return user, nil
}

// ValidLogin reports whether password is correct for the user with email.
// Unknown emails still pay for a password verification.
func (s *Service) ValidLogin(ctx context.Context, email, password string) bool {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "login lookup failed", err)
		return false
	}
	if user == nil {
		//nolint:errcheck // result is discarded; only the elapsed time matters
		s.hasher.Verify(password, dummyPasswordHash)
		return false
	}
	if !user.IsValidPassword(s.hasher, password) {
		return false
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}
	return true
}

// upgradeHash rehashes password with the current parameters. The write is
// skipped when the stored hash changed since user was read, so a concurrent
// password reset is never overwritten with the old password.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "password hash upgrade failed", err)
		return
	}
	replaced, err := s.users.ReplacePasswordHash(ctx, user.ID, user.PasswordHash, newHash)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "password hash upgrade failed", err)
		return
	}
	if replaced {
		user.PasswordHash = newHash
	}
}

// CreateSession stores a fresh session id on the user with email and returns it.
func (s *Service) CreateSession(ctx context.Context, email string) (string, bool) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "session user lookup failed", err)
		return "", false
	}
	if user == nil {
		return "", false
	}

	id, err := GenerateSessionID()
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "session id generation failed", err)
		return "", false
	}
	if err := s.users.SetSessionID(ctx, user.ID, &id); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "session save failed", err)
		return "", false
	}
	return id, true
}

// UserFromSessionID returns the user holding sessionID, or nil.
func (s *Service) UserFromSessionID(ctx context.Context, sessionID string) *User {
	if sessionID == "" {
		return nil
	}
	user, err := s.users.FindBySessionID(ctx, sessionID)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "session lookup failed", err)
		return nil
	}
	return user
}

// DestroySession clears the session id of the user with userID.
func (s *Service) DestroySession(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "find user by id").
			With("user_id", userID).
			Wrap(err)
	}
	if user == nil {
		return oops.Code("AUTH_LOGOUT_FAILED").With("user_id", userID).Wrap(ErrUserNotFound)
	}

	if err := s.users.SetSessionID(ctx, userID, nil); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "clear session id").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}
