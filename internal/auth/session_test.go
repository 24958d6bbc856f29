// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/authgate/internal/auth"
	"github.com/holomush/authgate/internal/auth/mocks"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGenerateSessionID(t *testing.T) {
	id1, err := auth.GenerateSessionID()
	require.NoError(t, err)
	assert.Len(t, id1, 2*auth.SessionIDBytes)

	id2, err := auth.GenerateSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestSession_ExpiredAt(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &auth.Session{ID: "s", UserID: "u", CreatedAt: created}

	tests := []struct {
		name     string
		at       time.Time
		lifetime time.Duration
		want     bool
	}{
		{name: "unlimited", at: created.Add(1000 * time.Hour), lifetime: 0, want: false},
		{name: "negative is unlimited", at: created.Add(time.Hour), lifetime: -time.Second, want: false},
		{name: "just before deadline", at: created.Add(time.Minute - time.Nanosecond), lifetime: time.Minute, want: false},
		{name: "at deadline", at: created.Add(time.Minute), lifetime: time.Minute, want: false},
		{name: "just after deadline", at: created.Add(time.Minute + time.Nanosecond), lifetime: time.Minute, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ExpiredAt(tt.at, tt.lifetime))
		})
	}

	t.Run("unknown creation time expires", func(t *testing.T) {
		unknown := &auth.Session{ID: "s", UserID: "u"}
		assert.True(t, unknown.ExpiredAt(created, time.Minute))
		assert.False(t, unknown.ExpiredAt(created, 0))
	})
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemorySessionStore()

	got, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	original := &auth.Session{ID: "s1", UserID: "u1", CreatedAt: time.Now()}
	require.NoError(t, store.Put(ctx, original))
	original.UserID = "mutated"

	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	got.UserID = "mutated again"
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", again.UserID)
	assert.Equal(t, 1, store.Len())

	removed, err := store.Remove(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 0, store.Len())
}

func TestMemorySessionStore_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	store := auth.NewMemorySessionStore()
	manager := auth.NewSessionManager(store, 0)

	shared, ok := manager.CreateSession(ctx, "shared")
	require.True(t, ok)

	const workers = 32
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, ok := manager.CreateSession(ctx, fmt.Sprintf("user-%d", i))
			if ok {
				ids[i] = id
			}
			manager.UserIDForSession(ctx, shared)
		}(i)
	}
	wg.Wait()

	assert.True(t, manager.DestroySession(ctx, shared))
	assert.Equal(t, workers, store.Len())
	for i, id := range ids {
		userID, ok := manager.UserIDForSession(ctx, id)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("user-%d", i), userID)
	}

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			manager.DestroySession(ctx, id)
			manager.UserIDForSession(ctx, id)
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 0, store.Len())
}

func TestSessionManager(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip and destroy", func(t *testing.T) {
		manager := auth.NewSessionManager(auth.NewMemorySessionStore(), 0)

		id, ok := manager.CreateSession(ctx, "user-1")
		require.True(t, ok)
		assert.NotEmpty(t, id)

		userID, ok := manager.UserIDForSession(ctx, id)
		require.True(t, ok)
		assert.Equal(t, "user-1", userID)

		assert.True(t, manager.DestroySession(ctx, id))
		_, ok = manager.UserIDForSession(ctx, id)
		assert.False(t, ok)
		assert.False(t, manager.DestroySession(ctx, id))
	})

	t.Run("rejects empty user id", func(t *testing.T) {
		store := auth.NewMemorySessionStore()
		manager := auth.NewSessionManager(store, 0)

		id, ok := manager.CreateSession(ctx, "")
		assert.False(t, ok)
		assert.Empty(t, id)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("fresh id per session", func(t *testing.T) {
		manager := auth.NewSessionManager(auth.NewMemorySessionStore(), 0)
		id1, _ := manager.CreateSession(ctx, "user-1")
		id2, _ := manager.CreateSession(ctx, "user-1")
		assert.NotEqual(t, id1, id2)
	})

	t.Run("empty and unknown ids do not resolve", func(t *testing.T) {
		manager := auth.NewSessionManager(auth.NewMemorySessionStore(), 0)
		_, ok := manager.UserIDForSession(ctx, "")
		assert.False(t, ok)
		_, ok = manager.UserIDForSession(ctx, "unknown")
		assert.False(t, ok)
		assert.False(t, manager.DestroySession(ctx, ""))
	})

	t.Run("strict expiration boundary", func(t *testing.T) {
		clock := newFakeClock()
		store := auth.NewMemorySessionStore()
		manager := auth.NewSessionManager(store, time.Minute, auth.WithClock(clock.Now))
		assert.Equal(t, time.Minute, manager.Lifetime())

		id, ok := manager.CreateSession(ctx, "user-1")
		require.True(t, ok)

		clock.Advance(time.Minute - time.Millisecond)
		_, ok = manager.UserIDForSession(ctx, id)
		assert.True(t, ok, "just before the deadline")

		clock.Advance(time.Millisecond)
		_, ok = manager.UserIDForSession(ctx, id)
		assert.True(t, ok, "exactly at the deadline")

		clock.Advance(time.Millisecond)
		_, ok = manager.UserIDForSession(ctx, id)
		assert.False(t, ok, "just after the deadline")

		// Lazy expiration keeps the record until it is destroyed.
		assert.Equal(t, 1, store.Len())
		assert.True(t, manager.DestroySession(ctx, id))
	})

	t.Run("non-positive lifetime never expires", func(t *testing.T) {
		clock := newFakeClock()
		manager := auth.NewSessionManager(auth.NewMemorySessionStore(), -time.Second, auth.WithClock(clock.Now))
		assert.Equal(t, time.Duration(0), manager.Lifetime())

		id, ok := manager.CreateSession(ctx, "user-1")
		require.True(t, ok)
		clock.Advance(24 * 365 * time.Hour)

		userID, ok := manager.UserIDForSession(ctx, id)
		assert.True(t, ok)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("unknown creation time counts as expired", func(t *testing.T) {
		store := auth.NewMemorySessionStore()
		require.NoError(t, store.Put(ctx, &auth.Session{ID: "legacy", UserID: "user-1"}))
		manager := auth.NewSessionManager(store, time.Hour)

		_, ok := manager.UserIDForSession(ctx, "legacy")
		assert.False(t, ok)
	})

	t.Run("store failures degrade", func(t *testing.T) {
		store := mocks.NewMockSessionStore(t)
		manager := auth.NewSessionManager(store, time.Hour, auth.WithLogger(discardLogger()))

		store.On("Put", ctx, mock.AnythingOfType("*auth.Session")).Return(assert.AnError).Once()
		store.On("Get", ctx, "s1").Return(nil, assert.AnError).Once()
		store.On("Remove", ctx, "s1").Return(false, assert.AnError).Once()

		id, ok := manager.CreateSession(ctx, "user-1")
		assert.False(t, ok)
		assert.Empty(t, id)

		_, ok = manager.UserIDForSession(ctx, "s1")
		assert.False(t, ok)

		assert.False(t, manager.DestroySession(ctx, "s1"))
	})
}
