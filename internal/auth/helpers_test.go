// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holomush/authgate/internal/auth"
	"github.com/holomush/authgate/internal/auth/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cheapHasher keeps argon2id fast enough for unit tests.
func cheapHasher() *auth.Argon2idHasher {
	return auth.NewArgon2idHasher(auth.WithArgon2Params(1, 8*1024, 1))
}

// seedUser registers email/password in a fresh memory repository.
func seedUser(t *testing.T, hasher auth.PasswordHasher, email, password string) (*memory.UserRepository, *auth.User) {
	t.Helper()
	repo := memory.NewUserRepository()
	user, err := auth.NewUser(email)
	require.NoError(t, err)
	require.NoError(t, user.SetPassword(hasher, password))
	require.NoError(t, repo.Create(context.Background(), user))
	return repo, user
}

// interleavedRepo runs afterFind once, right after the next email lookup,
// to let a test slip a concurrent write between a read and a write-back.
type interleavedRepo struct {
	*memory.UserRepository
	afterFind func()
}

func (r *interleavedRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, err := r.UserRepository.FindByEmail(ctx, email)
	if hook := r.afterFind; hook != nil {
		r.afterFind = nil
		hook()
	}
	return user, err
}
