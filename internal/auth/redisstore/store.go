// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redisstore keeps authentication sessions in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/authgate/internal/auth"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "authgate:session:"

type record struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store implements auth.SessionStore with one Redis string per session.
//
// Expiry is still decided by the session manager from CreatedAt. The optional
// TTL only bounds how long abandoned records occupy memory.
type Store struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTTL sets a Redis expiry on every stored session. Zero keeps records
// until they are removed.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New creates a Store on client.
func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Put stores session under its identifier.
func (s *Store) Put(ctx context.Context, session *auth.Session) error {
	data, err := json.Marshal(record{UserID: session.UserID, CreatedAt: session.CreatedAt})
	if err != nil {
		return oops.Code("SESSION_PUT_FAILED").With("store", "redis").Wrap(err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err(); err != nil {
		return oops.Code("SESSION_PUT_FAILED").With("store", "redis").Wrap(err)
	}
	return nil
}

// Get returns the session stored under id, or nil.
func (s *Store) Get(ctx context.Context, id string) (*auth.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("store", "redis").Wrap(err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").With("store", "redis").Wrap(err)
	}
	return &auth.Session{ID: id, UserID: rec.UserID, CreatedAt: rec.CreatedAt}, nil
}

// Remove deletes the session stored under id.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, oops.Code("SESSION_REMOVE_FAILED").With("store", "redis").Wrap(err)
	}
	return n > 0, nil
}

var _ auth.SessionStore = (*Store)(nil)
