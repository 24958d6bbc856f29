// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/authgate/internal/auth"
	"github.com/holomush/authgate/internal/auth/memory"
	"github.com/holomush/authgate/internal/config"
	"github.com/holomush/authgate/internal/httpapi"
)

type client struct {
	base string
	http *http.Client
}

func (c *client) send(method, path string, form url.Values) (int, map[string]any) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, c.base+path, body)
	Expect(err).NotTo(HaveOccurred())
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	if len(raw) > 0 && raw[0] == '{' {
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
	}
	return resp.StatusCode, decoded
}

func newClient(server *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &client{base: server.URL, http: &http.Client{Jar: jar}}
}

var _ = Describe("user authentication service", func() {
	const (
		email       = "guillaume@holberton.io"
		password    = "b4l0u"
		newPassword = "t4rt1fl3tt3"
	)

	var (
		server *httptest.Server
		c      *client
	)

	BeforeEach(func() {
		users := memory.NewUserRepository()
		hasher := auth.NewArgon2idHasher(auth.WithArgon2Params(1, 8*1024, 1))
		accounts, err := auth.NewAuthService(users, hasher)
		Expect(err).NotTo(HaveOccurred())
		resets, err := auth.NewPasswordResetService(users, hasher)
		Expect(err).NotTo(HaveOccurred())

		server = httptest.NewServer(httpapi.NewRouter(httpapi.Deps{
			Auth:          auth.NewSessionAuth(users),
			Users:         users,
			Hasher:        hasher,
			Accounts:      accounts,
			Resets:        resets,
			ExcludedPaths: config.DefaultExcludedPaths,
			Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		}))
		DeferCleanup(server.Close)
		c = newClient(server)
	})

	It("registers, logs in, resets the password and logs in again", func() {
		status, body := c.send(http.MethodPost, "/api/v1/register", url.Values{"email": {email}, "password": {password}})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(Equal(map[string]any{"email": email, "message": "user created"}))

		status, _ = c.send(http.MethodPost, "/api/v1/sessions", url.Values{"email": {email}, "password": {newPassword}})
		Expect(status).To(Equal(http.StatusUnauthorized))

		status, _ = c.send(http.MethodGet, "/api/v1/profile", nil)
		Expect(status).To(Equal(http.StatusForbidden))

		status, body = c.send(http.MethodPost, "/api/v1/sessions", url.Values{"email": {email}, "password": {password}})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("message", "logged in"))

		status, body = c.send(http.MethodGet, "/api/v1/profile", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("email", email))

		status, _ = c.send(http.MethodDelete, "/api/v1/sessions", nil)
		Expect(status).To(Equal(http.StatusOK))

		status, body = c.send(http.MethodPost, "/api/v1/reset_password", url.Values{"email": {email}})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("email", email))
		token, ok := body["reset_token"].(string)
		Expect(ok).To(BeTrue())

		status, body = c.send(http.MethodPut, "/api/v1/reset_password", url.Values{
			"email": {email}, "reset_token": {token}, "new_password": {newPassword},
		})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(Equal(map[string]any{"email": email, "message": "Password updated"}))

		status, _ = c.send(http.MethodPost, "/api/v1/sessions", url.Values{"email": {email}, "password": {newPassword}})
		Expect(status).To(Equal(http.StatusOK))
	})

	It("gates protected routes behind the strategy session", func() {
		status, _ := c.send(http.MethodPost, "/api/v1/register", url.Values{"email": {email}, "password": {password}})
		Expect(status).To(Equal(http.StatusOK))

		status, body := c.send(http.MethodGet, "/api/v1/users", nil)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(HaveKeyWithValue("error", "Unauthorized"))

		status, _ = c.send(http.MethodPost, "/api/v1/auth_session/login", url.Values{"email": {email}, "password": {password}})
		Expect(status).To(Equal(http.StatusOK))

		status, body = c.send(http.MethodGet, "/api/v1/users/me", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("email", email))

		status, _ = c.send(http.MethodDelete, "/api/v1/auth_session/logout", nil)
		Expect(status).To(Equal(http.StatusOK))

		status, _ = c.send(http.MethodGet, "/api/v1/users/me", nil)
		Expect(status).To(Equal(http.StatusUnauthorized), "the logout response cleared the cookie")
	})
})

var _ = Describe("expiring sessions", func() {
	It("stops resolving a session strictly after its lifetime", func() {
		users := memory.NewUserRepository()
		hasher := auth.NewArgon2idHasher(auth.WithArgon2Params(1, 8*1024, 1))
		user, err := auth.NewUser("exp@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(user.SetPassword(hasher, "pw")).To(Succeed())
		Expect(users.Create(context.Background(), user)).To(Succeed())

		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		var offset atomic.Int64
		clock := func() time.Time { return start.Add(time.Duration(offset.Load())) }
		a := auth.NewSessionExpAuth(users, time.Minute, auth.WithClock(clock))
		server := httptest.NewServer(httpapi.NewRouter(httpapi.Deps{
			Auth:          a,
			Users:         users,
			Hasher:        hasher,
			ExcludedPaths: config.DefaultExcludedPaths,
			Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		}))
		DeferCleanup(server.Close)
		c := newClient(server)

		status, _ := c.send(http.MethodPost, "/api/v1/auth_session/login", url.Values{"email": {"exp@example.com"}, "password": {"pw"}})
		Expect(status).To(Equal(http.StatusOK))

		offset.Store(int64(time.Minute))
		status, _ = c.send(http.MethodGet, "/api/v1/users/me", nil)
		Expect(status).To(Equal(http.StatusOK), "valid at exactly the lifetime")

		offset.Store(int64(time.Minute + time.Second))
		status, _ = c.send(http.MethodGet, "/api/v1/users/me", nil)
		Expect(status).To(Equal(http.StatusForbidden))
	})
})
