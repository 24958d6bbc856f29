// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/authgate/internal/observability"
)

// DefaultSessionCookieName is used when no cookie name is configured.
const DefaultSessionCookieName = "_my_session_id"

// Kind enumerates the authentication strategies.
type Kind string

// Strategy kinds. The values match the AUTH_TYPE names used in deployments.
const (
	KindNone           Kind = "none"
	KindBasic          Kind = "basic_auth"
	KindSession        Kind = "session_auth"
	KindSessionExp     Kind = "session_exp_auth"
	KindSessionDB      Kind = "session_db_auth"
	authorizationField      = "Authorization"
)

// ParseKind maps a configured strategy name to a Kind.
// Empty and unknown names select KindNone.
func ParseKind(name string) Kind {
	switch k := Kind(name); k {
	case KindBasic, KindSession, KindSessionExp, KindSessionDB:
		return k
	default:
		return KindNone
	}
}

// String returns the configured name of the kind.
func (k Kind) String() string {
	return string(k)
}

// PathGate decides whether a request path needs authentication.
type PathGate interface {
	RequiresAuth(path string, excluded []string) bool
}

// PrincipalResolver resolves the user a request is made on behalf of.
// Resolve returns nil for anonymous or unresolvable requests and never panics
// on malformed input.
type PrincipalResolver interface {
	Resolve(r *http.Request) *User
}

// SessionLifecycle creates, resolves and destroys sessions.
type SessionLifecycle interface {
	CreateSession(ctx context.Context, userID string) (string, bool)
	UserIDForSession(ctx context.Context, sessionID string) (string, bool)
	DestroySession(ctx context.Context, sessionID string) bool
}

// OpenGate never requires authentication.
type OpenGate struct{}

// RequiresAuth always returns false.
func (OpenGate) RequiresAuth(string, []string) bool { return false }

// ExcludedPathGate requires authentication everywhere except excluded paths.
// Each distinct exclusion list is compiled once.
type ExcludedPathGate struct {
	cache MatcherCache
}

// NewExcludedPathGate creates an ExcludedPathGate with an empty matcher cache.
func NewExcludedPathGate() *ExcludedPathGate {
	return &ExcludedPathGate{}
}

// RequiresAuth applies the exclusion rules of PathMatcher.
func (g *ExcludedPathGate) RequiresAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return true
	}
	return g.cache.Matcher(excluded).RequiresAuth(path)
}

type anonymousResolver struct{}

func (anonymousResolver) Resolve(*http.Request) *User { return nil }

// IdentifierLookup finds the user named by a Basic credential identifier.
// It returns (nil, nil) when no user matches.
type IdentifierLookup func(ctx context.Context, identifier string) (*User, error)

type options struct {
	cookieName string
	store      SessionStore
	now        func() time.Time
	logger     *slog.Logger
	lookup     IdentifierLookup
}

// Option configures an Authenticator or SessionManager.
type Option func(*options)

// WithCookieName sets the name of the session cookie.
func WithCookieName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.cookieName = name
		}
	}
}

// WithSessionStore replaces the in-memory session store of the session strategies.
func WithSessionStore(store SessionStore) Option {
	return func(o *options) { o.store = store }
}

// WithClock sets the time source used for session creation and expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger for failures that are degraded to "unauthenticated".
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithIdentifierLookup sets how Basic credentials identify a user.
// The default looks the identifier up as an email address.
func WithIdentifierLookup(lookup IdentifierLookup) Option {
	return func(o *options) { o.lookup = lookup }
}

func buildOptions(opts []Option) options {
	o := options{
		cookieName: DefaultSessionCookieName,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Authenticator is an assembled authentication strategy.
type Authenticator struct {
	kind       Kind
	gate       PathGate
	resolver   PrincipalResolver
	sessions   SessionLifecycle // nil for strategies without sessions
	cookieName string
	logger     *slog.Logger
}

// NewNoAuth creates a strategy that never requires authentication and never
// resolves a principal.
func NewNoAuth(opts ...Option) *Authenticator {
	o := buildOptions(opts)
	return &Authenticator{
		kind:       KindNone,
		gate:       OpenGate{},
		resolver:   anonymousResolver{},
		cookieName: o.cookieName,
		logger:     o.logger,
	}
}

// NewBasicAuth creates a strategy that authenticates the Basic scheme.
func NewBasicAuth(users UserRepository, hasher PasswordHasher, opts ...Option) *Authenticator {
	o := buildOptions(opts)
	lookup := o.lookup
	if lookup == nil {
		lookup = users.FindByEmail
	}
	return &Authenticator{
		kind:       KindBasic,
		gate:       NewExcludedPathGate(),
		resolver:   &BasicResolver{lookup: lookup, hasher: hasher, logger: o.logger},
		cookieName: o.cookieName,
		logger:     o.logger,
	}
}

// NewSessionAuth creates a cookie session strategy backed by a fresh
// in-memory store. Sessions never expire.
func NewSessionAuth(users UserRepository, opts ...Option) *Authenticator {
	return newSessionAuthenticator(KindSession, users, 0, opts)
}

// NewSessionExpAuth creates a cookie session strategy whose sessions expire
// after lifetime. A non-positive lifetime means no expiration.
func NewSessionExpAuth(users UserRepository, lifetime time.Duration, opts ...Option) *Authenticator {
	return newSessionAuthenticator(KindSessionExp, users, lifetime, opts)
}

// NewSessionDBAuth creates an expiring cookie session strategy whose sessions
// are kept in a persistent store.
func NewSessionDBAuth(users UserRepository, store SessionStore, lifetime time.Duration, opts ...Option) *Authenticator {
	opts = append(opts, WithSessionStore(store))
	return newSessionAuthenticator(KindSessionDB, users, lifetime, opts)
}

func newSessionAuthenticator(kind Kind, users UserRepository, lifetime time.Duration, opts []Option) *Authenticator {
	o := buildOptions(opts)
	store := o.store
	if store == nil {
		store = NewMemorySessionStore()
	}
	manager := NewSessionManager(store, lifetime, opts...)
	resolver := &SessionResolver{
		cookieName: o.cookieName,
		sessions:   manager,
		users:      users,
		logger:     o.logger,
	}
	return &Authenticator{
		kind:       kind,
		gate:       NewExcludedPathGate(),
		resolver:   resolver,
		sessions:   manager,
		cookieName: o.cookieName,
		logger:     o.logger,
	}
}

// Dependencies are the collaborators the New factory may need.
type Dependencies struct {
	Users           UserRepository
	Hasher          PasswordHasher
	SessionStore    SessionStore  // required for KindSessionDB
	SessionLifetime time.Duration // used by KindSessionExp and KindSessionDB
	Options         []Option
}

// New assembles the strategy selected by kind.
func New(kind Kind, deps Dependencies) (*Authenticator, error) {
	if kind != KindNone && deps.Users == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").With("kind", kind.String()).Errorf("user repository is required")
	}

	switch kind {
	case KindNone:
		return NewNoAuth(deps.Options...), nil
	case KindBasic:
		if deps.Hasher == nil {
			return nil, oops.Code("AUTH_CONFIG_INVALID").With("kind", kind.String()).Errorf("password hasher is required")
		}
		return NewBasicAuth(deps.Users, deps.Hasher, deps.Options...), nil
	case KindSession:
		return NewSessionAuth(deps.Users, deps.Options...), nil
	case KindSessionExp:
		return NewSessionExpAuth(deps.Users, deps.SessionLifetime, deps.Options...), nil
	case KindSessionDB:
		if deps.SessionStore == nil {
			return nil, oops.Code("AUTH_CONFIG_INVALID").With("kind", kind.String()).Errorf("session store is required")
		}
		return NewSessionDBAuth(deps.Users, deps.SessionStore, deps.SessionLifetime, deps.Options...), nil
	default:
		return nil, oops.Code("AUTH_CONFIG_INVALID").With("kind", kind.String()).Errorf("unknown strategy kind")
	}
}

// Kind returns the strategy kind.
func (a *Authenticator) Kind() Kind {
	return a.kind
}

// CookieName returns the name of the session cookie.
func (a *Authenticator) CookieName() string {
	return a.cookieName
}

// SupportsSessions reports whether the strategy can start sessions.
func (a *Authenticator) SupportsSessions() bool {
	return a.sessions != nil
}

// RequiresAuth reports whether path needs authentication.
func (a *Authenticator) RequiresAuth(path string, excluded []string) bool {
	return a.gate.RequiresAuth(path, excluded)
}

// AuthorizationHeader returns the Authorization header value, if present.
func (a *Authenticator) AuthorizationHeader(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	values := r.Header.Values(authorizationField)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// SessionCookie returns the session cookie value, if present.
func (a *Authenticator) SessionCookie(r *http.Request) (string, bool) {
	return sessionCookieValue(r, a.cookieName)
}

// CurrentUser resolves the principal of r, or nil.
func (a *Authenticator) CurrentUser(r *http.Request) *User {
	if r == nil {
		return nil
	}
	return a.resolver.Resolve(r)
}

// CreateSession starts a session for userID.
func (a *Authenticator) CreateSession(ctx context.Context, userID string) (string, bool) {
	if a.sessions == nil {
		return "", false
	}
	id, ok := a.sessions.CreateSession(ctx, userID)
	if ok {
		observability.RecordSessionEvent(a.kind.String(), "created")
	}
	return id, ok
}

// UserIDForSession resolves a session identifier to a user identifier.
func (a *Authenticator) UserIDForSession(ctx context.Context, sessionID string) (string, bool) {
	if a.sessions == nil {
		return "", false
	}
	return a.sessions.UserIDForSession(ctx, sessionID)
}

// DestroySession ends the session named by the request's cookie.
func (a *Authenticator) DestroySession(r *http.Request) bool {
	if r == nil || a.sessions == nil {
		return false
	}
	sessionID, ok := a.SessionCookie(r)
	if !ok {
		return false
	}
	if !a.sessions.DestroySession(r.Context(), sessionID) {
		return false
	}
	observability.RecordSessionEvent(a.kind.String(), "destroyed")
	return true
}

// sessionCookieValue reads the named cookie. A nil request has no cookies.
func sessionCookieValue(r *http.Request, name string) (string, bool) {
	if r == nil || name == "" {
		return "", false
	}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}
