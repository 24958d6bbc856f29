// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/holomush/authgate/internal/auth"
)

// AccountCookieName is the cookie of the session-field login flow. It is
// independent of the strategy's session cookie.
const AccountCookieName = "session_id"

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}
	if err := auth.ValidateEmail(email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	if _, err := a.accounts.RegisterUser(r.Context(), email, password); err != nil {
		if errors.Is(err, auth.ErrUserAlreadyExists) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email already registered"})
			return
		}
		a.internalError(w, r, "register user failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "user created"})
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if !a.accounts.ValidLogin(r.Context(), email, password) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID, ok := a.accounts.CreateSession(r.Context(), email)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AccountCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "logged in"})
}

// accountUser resolves the session-field cookie to a user, or nil.
func (a *api) accountUser(r *http.Request) *auth.User {
	c, err := r.Cookie(AccountCookieName)
	if err != nil {
		return nil
	}
	return a.accounts.UserFromSessionID(r.Context(), c.Value)
}

func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	user := a.accountUser(r)
	if user == nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	if err := a.accounts.DestroySession(r.Context(), user.ID); err != nil {
		a.internalError(w, r, "logout failed", err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: AccountCookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (a *api) profile(w http.ResponseWriter, r *http.Request) {
	user := a.accountUser(r)
	if user == nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": user.Email})
}

func (a *api) requestReset(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	token, err := a.resets.RequestReset(r.Context(), email)
	if errors.Is(err, auth.ErrUserNotFound) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	if err != nil {
		a.internalError(w, r, "reset request failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "reset_token": token})
}

// updatePassword redeems a reset token. The token must belong to the
// submitted email.
func (a *api) updatePassword(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	token := r.PostFormValue("reset_token")
	newPassword := r.PostFormValue("new_password")
	if newPassword == "" {
		writeError(w, http.StatusBadRequest, "new_password missing")
		return
	}

	userID, err := a.resets.ValidateToken(r.Context(), token)
	if errors.Is(err, auth.ErrInvalidToken) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	if err != nil {
		a.internalError(w, r, "reset token validation failed", err)
		return
	}

	holder, err := a.users.FindByID(r.Context(), userID)
	if err != nil {
		a.internalError(w, r, "reset token holder lookup failed", err)
		return
	}
	if holder == nil || holder.Email != email {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := a.resets.ResetPassword(r.Context(), token, newPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		a.internalError(w, r, "password reset failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "Password updated"})
}
