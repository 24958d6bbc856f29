// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// basicSchemePrefix is the literal prefix of a Basic authorization value.
const basicSchemePrefix = "Basic "

// ExtractBasicToken returns the encoded credentials of a Basic authorization
// header value. The scheme prefix is matched case-sensitively.
func ExtractBasicToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, basicSchemePrefix)
	if !ok {
		return "", false
	}
	return token, true
}

// DecodeBasicToken base64-decodes token and returns it as text.
// Invalid base64 and invalid UTF-8 both yield ("", false).
func DecodeBasicToken(token string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// SplitCredentials splits decoded credentials on the first colon, so secrets
// may themselves contain colons.
func SplitCredentials(decoded string) (identifier, secret string, ok bool) {
	identifier, secret, ok = strings.Cut(decoded, ":")
	if !ok {
		return "", "", false
	}
	return identifier, secret, true
}

// ParseBasicAuthorization runs the full Basic pipeline over a header value.
func ParseBasicAuthorization(header string) (identifier, secret string, ok bool) {
	token, ok := ExtractBasicToken(header)
	if !ok {
		return "", "", false
	}
	decoded, ok := DecodeBasicToken(token)
	if !ok {
		return "", "", false
	}
	return SplitCredentials(decoded)
}
