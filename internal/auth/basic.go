// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"log/slog"
	"net/http"

	"github.com/holomush/authgate/pkg/errutil"
)

// dummyPasswordHash is verified when an identifier matches no user so that
// response time does not reveal whether an account exists.
// It never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// BasicResolver resolves principals from a Basic authorization header.
type BasicResolver struct {
	lookup IdentifierLookup
	hasher PasswordHasher
	logger *slog.Logger
}

// Resolve returns the user whose credentials are in the Authorization header,
// or nil at the first failed step.
func (b *BasicResolver) Resolve(r *http.Request) *User {
	header := r.Header.Get(authorizationField)
	if header == "" {
		return nil
	}
	identifier, secret, ok := ParseBasicAuthorization(header)
	if !ok {
		return nil
	}

	user, err := b.lookup(r.Context(), identifier)
	if err != nil {
		errutil.LogErrorContext(r.Context(), b.logger, "basic auth user lookup failed", err)
		return nil
	}
	if user == nil {
		//nolint:errcheck // result is discarded; only the elapsed time matters
		b.hasher.Verify(secret, dummyPasswordHash)
		return nil
	}
	if !user.IsValidPassword(b.hasher, secret) {
		return nil
	}
	return user
}

// Compile-time interface check.
var _ PrincipalResolver = (*BasicResolver)(nil)
