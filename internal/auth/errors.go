// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// Workflow errors. Callers match them with errors.Is; the services wrap them
// with oops codes and context.
var (
	// ErrUserNotFound is returned when a workflow names a user that does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken is returned when no user currently holds a reset token.
	ErrInvalidToken = errors.New("invalid reset token")

	// ErrUserAlreadyExists is returned when registering a taken email.
	ErrUserAlreadyExists = errors.New("user already exists")
)
