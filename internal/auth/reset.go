// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// GenerateResetToken creates a fresh opaque reset token (a random UUID).
func GenerateResetToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	return id.String(), nil
}
