// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi serves the authgate JSON API under /api/v1.
//
// Every request passes the auth gate before routing, so unknown protected
// paths answer 401 or 403 rather than 404, matching the order in which the
// gate and the router are consulted.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/holomush/authgate/internal/auth"
	"github.com/holomush/authgate/internal/observability"
)

// Prefix is the mount point of the API.
const Prefix = "/api/v1"

// Deps are the collaborators of the API.
type Deps struct {
	Auth          *auth.Authenticator
	Users         auth.UserRepository
	Hasher        auth.PasswordHasher        // verifies form logins on strategy sessions
	Accounts      *auth.Service              // optional: registration and session-field login
	Resets        *auth.PasswordResetService // optional: reset token workflow
	ExcludedPaths []string
	Metrics       *observability.Metrics // optional
	Logger        *slog.Logger           // optional
}

type api struct {
	auth     *auth.Authenticator
	users    auth.UserRepository
	hasher   auth.PasswordHasher
	accounts *auth.Service
	resets   *auth.PasswordResetService
	logger   *slog.Logger
}

// NewRouter builds the API handler.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &api{
		auth:     deps.Auth,
		users:    deps.Users,
		hasher:   deps.Hasher,
		accounts: deps.Accounts,
		resets:   deps.Resets,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogging(logger, deps.Metrics))
	r.Use(chiMiddleware.Recoverer)
	r.Use(gate(deps.Auth, deps.ExcludedPaths))
	r.Use(chiMiddleware.StripSlashes) // routing only; the gate sees the raw path

	r.NotFound(a.notFound)
	r.MethodNotAllowed(a.methodNotAllowed)

	r.Route(Prefix, func(r chi.Router) {
		r.Get("/status", a.status)
		r.Get("/stats", a.stats)
		r.Get("/unauthorized", a.unauthorized)
		r.Get("/forbidden", a.forbidden)

		r.Get("/users", a.listUsers)
		r.Get("/users/{id}", a.viewUser)

		r.Post("/auth_session/login", a.sessionLogin)
		r.Delete("/auth_session/logout", a.sessionLogout)

		if a.accounts != nil {
			r.Post("/register", a.register)
			r.Post("/sessions", a.login)
			r.Delete("/sessions", a.logout)
			r.Get("/profile", a.profile)
		}
		if a.resets != nil {
			r.Post("/reset_password", a.requestReset)
			r.Put("/reset_password", a.updatePassword)
		}
	})

	return r
}
