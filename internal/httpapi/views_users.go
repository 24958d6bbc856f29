// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/holomush/authgate/internal/auth"
)

func (a *api) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.Search(r.Context(), auth.UserFilter{})
	if err != nil {
		a.internalError(w, r, "list users failed", err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	writeJSON(w, http.StatusOK, views)
}

// viewUser serves one user; the id "me" names the authenticated principal.
func (a *api) viewUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "me" {
		user := UserFromContext(r.Context())
		if user == nil {
			a.notFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, newUserView(user))
		return
	}

	user, err := a.users.FindByID(r.Context(), id)
	if err != nil {
		a.internalError(w, r, "find user failed", err)
		return
	}
	if user == nil {
		a.notFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}
