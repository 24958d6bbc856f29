// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth is the authentication core of authgate.
//
// # Strategies
//
// An Authenticator is assembled from three parts:
//   - PathGate decides whether a path needs authentication
//   - PrincipalResolver maps a request to a User (or nil)
//   - SessionLifecycle creates, resolves and destroys sessions
//
// The variant constructors wire these together:
//   - NewNoAuth - open gate, never resolves a principal
//   - NewBasicAuth - Basic credentials checked against a UserRepository
//   - NewSessionAuth - session cookie over an in-memory SessionStore
//   - NewSessionExpAuth - as NewSessionAuth with lazily evaluated expiration
//   - NewSessionDBAuth - as NewSessionExpAuth over a persistent SessionStore
//
// New selects a variant from a Kind at startup.
//
// # Failures
//
// Resolution failures (missing or malformed credentials, unknown or expired
// sessions, storage errors on the request path) never surface as errors; they
// yield a nil principal or false. Workflow failures (ErrUserNotFound,
// ErrInvalidToken, ErrUserAlreadyExists) are returned as errors wrapped with
// oops codes.
//
// # Services
//
//   - Service - registration and session-field login
//   - PasswordResetService - single-use reset tokens
package auth
