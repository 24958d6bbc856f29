// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides a process-local UserRepository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/authgate/internal/auth"
)

// UserRepository keeps users in a map guarded by a single mutex.
// Users are cloned on the way in and out.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*auth.User
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*auth.User)}
}

// Create stores a new user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return oops.Code("USER_CREATE_FAILED").With("user_id", user.ID).Errorf("user id already in use")
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return oops.With("email", user.Email).Wrap(auth.ErrUserAlreadyExists)
		}
	}
	r.users[user.ID] = user.Clone()
	return nil
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[id].Clone(), nil
}

// FindByEmail retrieves a user by email.
func (r *UserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.first(auth.UserFilter{Email: &email}), nil
}

// FindBySessionID retrieves the user holding a session-field id.
func (r *UserRepository) FindBySessionID(_ context.Context, sessionID string) (*auth.User, error) {
	return r.first(auth.UserFilter{SessionID: &sessionID}), nil
}

// FindByResetToken retrieves the user holding a reset token.
func (r *UserRepository) FindByResetToken(_ context.Context, token string) (*auth.User, error) {
	return r.first(auth.UserFilter{ResetToken: &token}), nil
}

// Update saves every mutable field of an existing user.
func (r *UserRepository) Update(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrap(auth.ErrUserNotFound)
	}
	for id, existing := range r.users {
		if id != user.ID && existing.Email == user.Email {
			return oops.With("email", user.Email).Wrap(auth.ErrUserAlreadyExists)
		}
	}
	r.users[user.ID] = user.Clone()
	return nil
}

// SetResetToken replaces the stored reset token of userID.
func (r *UserRepository) SetResetToken(_ context.Context, userID string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", userID).Wrap(auth.ErrUserNotFound)
	}
	u.ResetToken = cloneString(token)
	u.UpdatedAt = time.Now()
	return nil
}

// SetSessionID replaces the stored session-field id of userID.
func (r *UserRepository) SetSessionID(_ context.Context, userID string, sessionID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", userID).Wrap(auth.ErrUserNotFound)
	}
	u.SessionID = cloneString(sessionID)
	u.UpdatedAt = time.Now()
	return nil
}

// ReplacePasswordHash swaps the hash only while it still equals currentHash.
func (r *UserRepository) ReplacePasswordHash(_ context.Context, userID, currentHash, newHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || u.PasswordHash != currentHash {
		return false, nil
	}
	u.PasswordHash = newHash
	u.UpdatedAt = time.Now()
	return true, nil
}

// Search returns users matching filter ordered by creation time.
func (r *UserRepository) Search(_ context.Context, filter auth.UserFilter) ([]*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.search(filter), nil
}

// RedeemResetToken replaces the password hash of the token holder and clears
// the token while holding the write lock.
func (r *UserRepository) RedeemResetToken(_ context.Context, token, passwordHash string) (bool, error) {
	if token == "" {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			u.PasswordHash = passwordHash
			u.ResetToken = nil
			u.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *UserRepository) first(filter auth.UserFilter) *auth.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := r.search(filter)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// search must be called with r.mu held.
func (r *UserRepository) search(filter auth.UserFilter) []*auth.User {
	matches := make([]*auth.User, 0, len(r.users))
	for _, u := range r.users {
		if filter.Matches(u) {
			matches = append(matches, u.Clone())
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
	return matches
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
