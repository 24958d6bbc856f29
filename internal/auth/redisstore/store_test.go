// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authgate/internal/auth"
	"github.com/holomush/authgate/internal/auth/redisstore"
	"github.com/holomush/authgate/pkg/errutil"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := redisstore.New(client)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, &auth.Session{ID: "abc", UserID: "u-1", CreatedAt: created}))
	assert.True(t, mr.Exists(redisstore.DefaultKeyPrefix+"abc"))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "u-1", got.UserID)
	assert.True(t, created.Equal(got.CreatedAt))

	removed, err := s.Remove(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_GetMissing(t *testing.T) {
	_, client := newTestRedis(t)
	s := redisstore.New(client)

	got, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_KeyPrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := redisstore.New(client, redisstore.WithKeyPrefix("test:"), redisstore.WithTTL(time.Minute))

	require.NoError(t, s.Put(ctx, &auth.Session{ID: "k", UserID: "u", CreatedAt: time.Now()}))
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	mr.FastForward(2 * time.Minute)
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_CorruptRecord(t *testing.T) {
	mr, client := newTestRedis(t)
	s := redisstore.New(client)
	require.NoError(t, mr.Set(redisstore.DefaultKeyPrefix+"bad", "{not json"))

	_, err := s.Get(context.Background(), "bad")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "SESSION_DECODE_FAILED")
}

func TestStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := redisstore.New(client)
	mr.Close()

	err := s.Put(ctx, &auth.Session{ID: "x", UserID: "u"})
	errutil.AssertErrorCode(t, err, "SESSION_PUT_FAILED")

	_, err = s.Get(ctx, "x")
	errutil.AssertErrorCode(t, err, "SESSION_GET_FAILED")

	_, err = s.Remove(ctx, "x")
	errutil.AssertErrorCode(t, err, "SESSION_REMOVE_FAILED")
}

func TestStore_WithSessionExpiry(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := auth.NewSessionManager(redisstore.New(client), time.Minute, auth.WithClock(clock))

	id, ok := m.CreateSession(ctx, "u-7")
	require.True(t, ok)

	userID, ok := m.UserIDForSession(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "u-7", userID)

	now = now.Add(time.Minute + time.Second)
	_, ok = m.UserIDForSession(ctx, id)
	assert.False(t, ok)

	assert.True(t, m.DestroySession(ctx, id))
}
