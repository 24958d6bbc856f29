// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/holomush/authgate/internal/auth"
	"github.com/holomush/authgate/internal/logging"
	"github.com/holomush/authgate/internal/observability"
)

// Gate outcomes recorded in authgate_auth_decisions_total.
const (
	outcomeOpen            = "open"
	outcomeExcluded        = "excluded"
	outcomeUnauthenticated = "unauthenticated"
	outcomeForbidden       = "forbidden"
	outcomeAuthenticated   = "authenticated"
)

type userKey struct{}

// UserFromContext returns the principal the gate resolved for the request,
// or nil when the path was not gated.
func UserFromContext(ctx context.Context) *auth.User {
	user, _ := ctx.Value(userKey{}).(*auth.User)
	return user
}

func withUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// gate rejects gated requests without credentials (401) or whose credentials
// resolve to no user (403). A nil authenticator lets everything through.
func gate(a *auth.Authenticator, excluded []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				next.ServeHTTP(w, r)
				return
			}
			strategy := a.Kind().String()

			if !a.RequiresAuth(r.URL.Path, excluded) {
				outcome := outcomeExcluded
				if a.Kind() == auth.KindNone {
					outcome = outcomeOpen
				}
				observability.RecordAuthDecision(strategy, outcome)
				next.ServeHTTP(w, r)
				return
			}

			_, hasHeader := a.AuthorizationHeader(r)
			_, hasCookie := a.SessionCookie(r)
			if !hasHeader && !hasCookie {
				observability.RecordAuthDecision(strategy, outcomeUnauthenticated)
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			user := a.CurrentUser(r)
			if user == nil {
				observability.RecordAuthDecision(strategy, outcomeForbidden)
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}

			observability.RecordAuthDecision(strategy, outcomeAuthenticated)
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// requestLogging attaches a request-scoped logger, then logs and measures
// every request once it completes.
func requestLogging(logger *slog.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With("request_id", chiMiddleware.GetReqID(r.Context()))
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logging.NewContext(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			metrics.ObserveRequest(r.Method, status, elapsed)
			reqLogger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", elapsed,
			)
		})
	}
}
