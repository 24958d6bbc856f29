// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"net/http"

	"github.com/holomush/authgate/internal/auth"
)

// sessionLogin validates form credentials and starts a strategy session.
// Strategies without sessions do not serve this route.
func (a *api) sessionLogin(w http.ResponseWriter, r *http.Request) {
	if a.auth == nil || !a.auth.SupportsSessions() || a.hasher == nil {
		a.notFound(w, r)
		return
	}

	email := r.PostFormValue("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email missing")
		return
	}
	password := r.PostFormValue("password")
	if password == "" {
		writeError(w, http.StatusBadRequest, "password missing")
		return
	}

	users, err := a.users.Search(r.Context(), auth.UserFilter{Email: &email})
	if err != nil {
		a.internalError(w, r, "login user lookup failed", err)
		return
	}
	if len(users) == 0 {
		writeError(w, http.StatusNotFound, "no user found for this email")
		return
	}
	user := users[0]
	if !user.IsValidPassword(a.hasher, password) {
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	}

	sessionID, ok := a.auth.CreateSession(r.Context(), user.ID)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.auth.CookieName(),
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, newUserView(user))
}

// sessionLogout ends the session named by the request's cookie.
func (a *api) sessionLogout(w http.ResponseWriter, r *http.Request) {
	if a.auth == nil || !a.auth.DestroySession(r) {
		a.notFound(w, r)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: a.auth.CookieName(), Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{})
}
