// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User is an account that can authenticate against the API.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	SessionID    *string // set by the session-field login flow
	ResetToken   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a User with a fresh identifier.
// The password must be set separately with SetPassword.
func NewUser(email string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	now := time.Now()
	return &User{
		ID:        ulid.Make().String(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateEmail performs the minimal shape check applied at registration.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !strings.Contains(email, "@") {
		return oops.Code("USER_INVALID_EMAIL").With("email", email).Errorf("email must contain '@'")
	}
	return nil
}

// SetPassword replaces the stored hash with a fresh hash of password.
func (u *User) SetPassword(hasher PasswordHasher, password string) error {
	hash, err := hasher.Hash(password)
	if err != nil {
		return oops.Code("USER_SET_PASSWORD_FAILED").With("user_id", u.ID).Wrap(err)
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	return nil
}

// IsValidPassword reports whether password matches the stored hash.
// Any verification error counts as a mismatch.
func (u *User) IsValidPassword(hasher PasswordHasher, password string) bool {
	if u == nil || u.PasswordHash == "" || password == "" {
		return false
	}
	ok, err := hasher.Verify(password, u.PasswordHash)
	return err == nil && ok
}

// DisplayName returns the most specific human readable name available.
func (u *User) DisplayName() string {
	first := derefString(u.FirstName)
	last := derefString(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return u.Email
	}
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.FirstName = cloneString(u.FirstName)
	c.LastName = cloneString(u.LastName)
	c.SessionID = cloneString(u.SessionID)
	c.ResetToken = cloneString(u.ResetToken)
	return &c
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// UserFilter selects users by equality on the set fields.
// A zero filter matches every user.
type UserFilter struct {
	Email      *string
	SessionID  *string
	ResetToken *string
}

// Matches reports whether u satisfies every set field of the filter.
func (f UserFilter) Matches(u *User) bool {
	if f.Email != nil && u.Email != *f.Email {
		return false
	}
	if f.SessionID != nil && (u.SessionID == nil || *u.SessionID != *f.SessionID) {
		return false
	}
	if f.ResetToken != nil && (u.ResetToken == nil || *u.ResetToken != *f.ResetToken) {
		return false
	}
	return true
}

// UserRepository manages user persistence.
//
// Finders return (nil, nil) when no user matches; errors are reserved for
// storage failures.
type UserRepository interface {
	// Create stores a new user. Returns ErrUserAlreadyExists if the email is taken.
	Create(ctx context.Context, user *User) error

	// FindByID retrieves a user by ID.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail retrieves a user by email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindBySessionID retrieves the user holding the given session-field id.
	FindBySessionID(ctx context.Context, sessionID string) (*User, error)

	// FindByResetToken retrieves the user holding the given reset token.
	FindByResetToken(ctx context.Context, token string) (*User, error)

	// Update saves every mutable field of an existing user.
	// Flows that change a single field use the targeted setters below so they
	// never write back a stale copy of the others.
	Update(ctx context.Context, user *User) error

	// SetResetToken replaces only the reset token of the user with userID.
	// A nil token clears it. Returns an error wrapping ErrUserNotFound if no
	// such user exists.
	SetResetToken(ctx context.Context, userID string, token *string) error

	// SetSessionID replaces only the session-field id of the user with userID.
	// A nil id clears it. Returns an error wrapping ErrUserNotFound if no such
	// user exists.
	SetSessionID(ctx context.Context, userID string, sessionID *string) error

	// ReplacePasswordHash swaps the password hash of the user with userID from
	// currentHash to newHash. Returns false if the stored hash no longer equals
	// currentHash or the user is gone.
	ReplacePasswordHash(ctx context.Context, userID, currentHash, newHash string) (bool, error)

	// Search returns users matching the filter ordered by creation time.
	Search(ctx context.Context, filter UserFilter) ([]*User, error)

	// RedeemResetToken atomically replaces the password hash and clears the
	// token of the user currently holding token. Returns false if nobody holds it.
	RedeemResetToken(ctx context.Context, token, passwordHash string) (bool, error)
}
