// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package graph_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reppit/reppit/internal/auth"
	"github.com/reppit/reppit/internal/graph"
	"github.com/reppit/reppit/internal/kv"
	"github.com/reppit/reppit/internal/session"
)

// memUserRepo is an in-memory auth.UserRepository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[ulid.ULID]*auth.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return &auth.ConflictError{Field: "username"}
		}
		if u.Email == user.Email {
			return &auth.ConflictError{Field: "email"}
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, auth.ErrNotFound
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// stubHasher is a transparent hasher; argon2 is exercised in its own tests.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "h:" + password, nil }

func (stubHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "h:"+password, nil
}

// captureMailer records outgoing mail.
type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *captureMailer) Send(_ context.Context, _, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, htmlBody)
	return nil
}

func (m *captureMailer) lastBody(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "expected a mail to have been sent")
	return m.sent[len(m.sent)-1]
}

type testAPI struct {
	handler *graph.Handler
	mailer  *captureMailer
	repo    *memUserRepo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	repo := newMemUserRepo()
	store := kv.NewMemory()
	mailer := &captureMailer{}

	svc, err := auth.NewService(repo, store, stubHasher{}, mailer, "http://localhost:3000")
	require.NoError(t, err)

	sessions, err := session.NewManager(store, session.Config{}, nil)
	require.NoError(t, err)

	schema, err := graph.NewSchema(svc, nil)
	require.NoError(t, err)

	handler, err := graph.NewHandler(schema, sessions, nil, nil)
	require.NoError(t, err)

	return &testAPI{handler: handler, mailer: mailer, repo: repo}
}

// do posts a GraphQL request, optionally with a session cookie, and decodes
// the response body.
func (api *testAPI) do(t *testing.T, query string, variables map[string]any, cookie *http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

const registerMutation = `
	mutation Register($options: UsernamePasswordInput!) {
		register(options: $options) {
			errors { field message }
			user { id username email }
		}
	}`

func registerVars(username, email, password string) map[string]any {
	return map[string]any{"options": map[string]any{
		"username": username,
		"email":    email,
		"password": password,
	}}
}

func dig(t *testing.T, m map[string]any, path ...string) any {
	t.Helper()
	var cur any = m
	for _, key := range path {
		node, ok := cur.(map[string]any)
		require.True(t, ok, "expected object at %q", key)
		cur = node[key]
	}
	return cur
}

func TestHandler_Register(t *testing.T) {
	t.Run("creates user and issues a session cookie", func(t *testing.T) {
		api := newTestAPI(t)

		rec, resp := api.do(t, registerMutation, registerVars("ben", "ben@ben.com", "hunter42"), nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		assert.Nil(t, dig(t, resp, "data", "register", "errors"))
		assert.Equal(t, "ben", dig(t, resp, "data", "register", "user", "username"))

		c := sessionCookie(t, rec)
		assert.NotEmpty(t, c.Value)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, "/", c.Path)
	})

	t.Run("validation failure returns field errors and no cookie", func(t *testing.T) {
		api := newTestAPI(t)

		rec, resp := api.do(t, registerMutation, registerVars("ab", "ab@ab.com", "hunter42"), nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		errs, ok := dig(t, resp, "data", "register", "errors").([]any)
		require.True(t, ok)
		require.Len(t, errs, 1)
		fe := errs[0].(map[string]any)
		assert.Equal(t, "username", fe["field"])
		assert.Equal(t, "username must be longer than 2 characters", fe["message"])
		assert.Nil(t, dig(t, resp, "data", "register", "user"))
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("duplicate username returns field error", func(t *testing.T) {
		api := newTestAPI(t)

		api.do(t, registerMutation, registerVars("ben", "ben@ben.com", "hunter42"), nil)
		_, resp := api.do(t, registerMutation, registerVars("ben", "other@ben.com", "hunter42"), nil)

		errs := dig(t, resp, "data", "register", "errors").([]any)
		require.Len(t, errs, 1)
		assert.Equal(t, "username already exists", errs[0].(map[string]any)["message"])
	})
}

func TestHandler_LoginAndMe(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, registerMutation, registerVars("ben", "ben@ben.com", "hunter42"), nil)

	login := `
		mutation Login($usernameOrEmail: String!, $password: String!) {
			login(usernameOrEmail: $usernameOrEmail, password: $password) {
				errors { field message }
				user { username }
			}
		}`

	t.Run("login by username then me", func(t *testing.T) {
		rec, resp := api.do(t, login, map[string]any{"usernameOrEmail": "ben", "password": "hunter42"}, nil)
		assert.Equal(t, "ben", dig(t, resp, "data", "login", "user", "username"))

		cookie := sessionCookie(t, rec)
		_, resp = api.do(t, `{ me { username email } }`, nil, cookie)
		assert.Equal(t, "ben", dig(t, resp, "data", "me", "username"))
		assert.Equal(t, "ben@ben.com", dig(t, resp, "data", "me", "email"))
	})

	t.Run("login by email", func(t *testing.T) {
		_, resp := api.do(t, login, map[string]any{"usernameOrEmail": "ben@ben.com", "password": "hunter42"}, nil)
		assert.Equal(t, "ben", dig(t, resp, "data", "login", "user", "username"))
	})

	t.Run("wrong password", func(t *testing.T) {
		rec, resp := api.do(t, login, map[string]any{"usernameOrEmail": "ben", "password": "nope"}, nil)
		errs := dig(t, resp, "data", "login", "errors").([]any)
		require.Len(t, errs, 1)
		fe := errs[0].(map[string]any)
		assert.Equal(t, "password", fe["field"])
		assert.Equal(t, "incorrect password", fe["message"])
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("unknown user", func(t *testing.T) {
		_, resp := api.do(t, login, map[string]any{"usernameOrEmail": "ghost", "password": "hunter42"}, nil)
		errs := dig(t, resp, "data", "login", "errors").([]any)
		require.Len(t, errs, 1)
		assert.Equal(t, "that username does not exist", errs[0].(map[string]any)["message"])
	})

	t.Run("me without a cookie is null", func(t *testing.T) {
		rec, resp := api.do(t, `{ me { username } }`, nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, dig(t, resp, "data", "me"))
		_, hasErrors := resp["errors"]
		assert.False(t, hasErrors)
	})
}

func TestHandler_Logout(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := api.do(t, registerMutation, registerVars("ben", "ben@ben.com", "hunter42"), nil)
	cookie := sessionCookie(t, rec)

	rec, resp := api.do(t, `mutation { logout }`, nil, cookie)
	assert.Equal(t, true, dig(t, resp, "data", "logout"))

	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)

	// The old cookie no longer resolves to a user.
	_, resp = api.do(t, `{ me { username } }`, nil, cookie)
	assert.Nil(t, dig(t, resp, "data", "me"))
}

var resetLinkRe = regexp.MustCompile(`change-password/([0-9a-f]+)`)

func TestHandler_PasswordReset(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, registerMutation, registerVars("ben", "ben@ben.com", "hunter42"), nil)

	forgot := `mutation Forgot($email: String!) { forgotPassword(email: $email) }`
	change := `
		mutation Change($token: String!, $newPassword: String!) {
			changePassword(token: $token, newPassword: $newPassword) {
				errors { field message }
				user { username }
			}
		}`

	t.Run("full reset flow", func(t *testing.T) {
		_, resp := api.do(t, forgot, map[string]any{"email": "ben@ben.com"}, nil)
		assert.Equal(t, true, dig(t, resp, "data", "forgotPassword"))

		body := api.mailer.lastBody(t)
		assert.True(t, strings.Contains(body, "http://localhost:3000/change-password/"))
		match := resetLinkRe.FindStringSubmatch(body)
		require.Len(t, match, 2)
		token := match[1]

		rec, resp := api.do(t, change, map[string]any{"token": token, "newPassword": "newpass"}, nil)
		assert.Nil(t, dig(t, resp, "data", "changePassword", "errors"))
		assert.Equal(t, "ben", dig(t, resp, "data", "changePassword", "user", "username"))

		// The reset logs the user in.
		cookie := sessionCookie(t, rec)
		_, resp = api.do(t, `{ me { username } }`, nil, cookie)
		assert.Equal(t, "ben", dig(t, resp, "data", "me", "username"))

		// Old password is gone, new one works.
		login := `
			mutation Login($usernameOrEmail: String!, $password: String!) {
				login(usernameOrEmail: $usernameOrEmail, password: $password) {
					errors { message }
					user { username }
				}
			}`
		_, resp = api.do(t, login, map[string]any{"usernameOrEmail": "ben", "password": "hunter42"}, nil)
		assert.NotNil(t, dig(t, resp, "data", "login", "errors"))
		_, resp = api.do(t, login, map[string]any{"usernameOrEmail": "ben", "password": "newpass"}, nil)
		assert.Equal(t, "ben", dig(t, resp, "data", "login", "user", "username"))

		// The token was consumed.
		_, resp = api.do(t, change, map[string]any{"token": token, "newPassword": "another1"}, nil)
		errs := dig(t, resp, "data", "changePassword", "errors").([]any)
		require.Len(t, errs, 1)
		assert.Equal(t, "token expired", errs[0].(map[string]any)["message"])
	})

	t.Run("forgotPassword does not reveal unknown emails", func(t *testing.T) {
		_, resp := api.do(t, forgot, map[string]any{"email": "ghost@nowhere.com"}, nil)
		assert.Equal(t, true, dig(t, resp, "data", "forgotPassword"))
	})

	t.Run("bogus token reports token expired", func(t *testing.T) {
		_, resp := api.do(t, change, map[string]any{"token": "bogus", "newPassword": "newpass"}, nil)
		errs := dig(t, resp, "data", "changePassword", "errors").([]any)
		require.Len(t, errs, 1)
		fe := errs[0].(map[string]any)
		assert.Equal(t, "token", fe["field"])
		assert.Equal(t, "token expired", fe["message"])
	})

	t.Run("short new password does not consume the token", func(t *testing.T) {
		_, resp := api.do(t, forgot, map[string]any{"email": "ben@ben.com"}, nil)
		assert.Equal(t, true, dig(t, resp, "data", "forgotPassword"))
		token := resetLinkRe.FindStringSubmatch(api.mailer.lastBody(t))[1]

		_, resp = api.do(t, change, map[string]any{"token": token, "newPassword": "abc"}, nil)
		errs := dig(t, resp, "data", "changePassword", "errors").([]any)
		require.Len(t, errs, 1)
		fe := errs[0].(map[string]any)
		assert.Equal(t, "newPassword", fe["field"])
		assert.Equal(t, "password must be longer than 3 characters", fe["message"])

		// The same token still works afterwards.
		_, resp = api.do(t, change, map[string]any{"token": token, "newPassword": "longenough"}, nil)
		assert.Nil(t, dig(t, resp, "data", "changePassword", "errors"))
	})
}

func TestHandler_Transport(t *testing.T) {
	api := newTestAPI(t)

	t.Run("rejects non-POST", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/query", nil)
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("password hash is never exposed", func(t *testing.T) {
		rec, _ := api.do(t, registerMutation, registerVars("eve", "eve@eve.com", "hunter42"), nil)
		assert.NotContains(t, rec.Body.String(), "h:hunter42")
		assert.NotContains(t, rec.Body.String(), "passwordHash")
	})
}
