// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"

	"github.com/samber/oops"
)

// PasswordResetService issues and redeems single-use password reset tokens.
type PasswordResetService struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(users UserRepository, hasher PasswordHasher) (*PasswordResetService, error) {
	if users == nil {
		return nil, oops.Code("RESET_INVALID_SERVICE").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_INVALID_SERVICE").Errorf("password hasher is required")
	}
	return &PasswordResetService{
		users:  users,
		hasher: hasher,
	}, nil
}

// RequestReset issues a reset token for the user with email.
// Any previously issued token is overwritten and stops working.
// Returns an error wrapping ErrUserNotFound if no user has that email.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "FindByEmail").
			Wrap(err)
	}
	if user == nil {
		return "", oops.Code("RESET_USER_NOT_FOUND").With("email", email).Wrap(ErrUserNotFound)
	}

	token, err := GenerateResetToken()
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "GenerateResetToken").
			Wrap(err)
	}

	if err := s.users.SetResetToken(ctx, user.ID, &token); err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "SetResetToken").
			With("user_id", user.ID).
			Wrap(err)
	}
	return token, nil
}

// ValidateToken returns the ID of the user currently holding token.
// Returns an error wrapping ErrInvalidToken if nobody holds it.
func (s *PasswordResetService) ValidateToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	user, err := s.users.FindByResetToken(ctx, token)
	if err != nil {
		return "", oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "FindByResetToken").
			Wrap(err)
	}
	if user == nil {
		return "", oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}
	return user.ID, nil
}

// ResetPassword replaces the password of the user holding token and clears
// the token in the same update, so a token redeems at most once even under
// concurrent attempts. Returns an error wrapping ErrInvalidToken if nobody
// holds the token.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "Hash").
			Wrap(err)
	}

	redeemed, err := s.users.RedeemResetToken(ctx, token, hashedPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "RedeemResetToken").
			Wrap(err)
	}
	if !redeemed {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}
	return nil
}
