// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks of the auth collaborator interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/authgate/internal/auth"
)

// T is the subset of *testing.T the mock constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a MockUserRepository whose expectations are
// asserted when the test ends.
func NewMockUserRepository(t T) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func userResult(args mock.Arguments) (*auth.User, error) {
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

// Create provides a mock function.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// FindByID provides a mock function.
func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return userResult(m.Called(ctx, id))
}

// FindByEmail provides a mock function.
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return userResult(m.Called(ctx, email))
}

// FindBySessionID provides a mock function.
func (m *MockUserRepository) FindBySessionID(ctx context.Context, sessionID string) (*auth.User, error) {
	return userResult(m.Called(ctx, sessionID))
}

// FindByResetToken provides a mock function.
func (m *MockUserRepository) FindByResetToken(ctx context.Context, token string) (*auth.User, error) {
	return userResult(m.Called(ctx, token))
}

// Update provides a mock function.
func (m *MockUserRepository) Update(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// SetResetToken provides a mock function.
func (m *MockUserRepository) SetResetToken(ctx context.Context, userID string, token *string) error {
	return m.Called(ctx, userID, token).Error(0)
}

// SetSessionID provides a mock function.
func (m *MockUserRepository) SetSessionID(ctx context.Context, userID string, sessionID *string) error {
	return m.Called(ctx, userID, sessionID).Error(0)
}

// ReplacePasswordHash provides a mock function.
func (m *MockUserRepository) ReplacePasswordHash(ctx context.Context, userID, currentHash, newHash string) (bool, error) {
	args := m.Called(ctx, userID, currentHash, newHash)
	return args.Bool(0), args.Error(1)
}

// Search provides a mock function.
func (m *MockUserRepository) Search(ctx context.Context, filter auth.UserFilter) ([]*auth.User, error) {
	args := m.Called(ctx, filter)
	users, _ := args.Get(0).([]*auth.User)
	return users, args.Error(1)
}

// RedeemResetToken provides a mock function.
func (m *MockUserRepository) RedeemResetToken(ctx context.Context, token, passwordHash string) (bool, error) {
	args := m.Called(ctx, token, passwordHash)
	return args.Bool(0), args.Error(1)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted when the test ends.
func NewMockPasswordHasher(t T) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify provides a mock function.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// NeedsUpgrade provides a mock function.
func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockSessionStore is a mock of auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a MockSessionStore whose expectations are
// asserted when the test ends.
func NewMockSessionStore(t T) *MockSessionStore {
	m := &MockSessionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Put provides a mock function.
func (m *MockSessionStore) Put(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

// Get provides a mock function.
func (m *MockSessionStore) Get(ctx context.Context, id string) (*auth.Session, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

// Remove provides a mock function.
func (m *MockSessionStore) Remove(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

var (
	_ auth.UserRepository = (*MockUserRepository)(nil)
	_ auth.PasswordHasher = (*MockPasswordHasher)(nil)
	_ auth.SessionStore   = (*MockSessionStore)(nil)
)
