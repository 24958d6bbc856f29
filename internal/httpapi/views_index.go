// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"net/http"

	"github.com/holomush/authgate/internal/auth"
)

func (a *api) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.Search(r.Context(), auth.UserFilter{})
	if err != nil {
		a.internalError(w, r, "count users failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"users": len(users)})
}

func (a *api) unauthorized(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusUnauthorized, "Unauthorized")
}

func (a *api) forbidden(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusForbidden, "Forbidden")
}

func (a *api) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func (a *api) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
