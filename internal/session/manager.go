// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/reppit/reppit/internal/kv"
)

// Cookie and store defaults. The cookie effectively never expires; the
// store-side TTL matches it.
const (
	DefaultCookieName = "qid"
	DefaultTTL        = 10 * 365 * 24 * time.Hour // 10 years
)

// Config carries cookie parameters for a Manager.
type Config struct {
	// CookieName is the session cookie name. Defaults to DefaultCookieName.
	CookieName string

	// Secure marks the cookie HTTPS-only.
	Secure bool

	// Domain scopes the cookie; empty means host-only.
	Domain string

	// TTL is both the cookie max age and the store-side expiry.
	// Defaults to DefaultTTL.
	TTL time.Duration
}

// Manager loads and saves sessions against a kv.Store and issues the
// matching cookies.
type Manager struct {
	store      kv.Store
	cookieName string
	secure     bool
	domain     string
	ttl        time.Duration
	logger     *slog.Logger
}

// NewManager creates a Manager over the given store.
func NewManager(store kv.Store, cfg Config, logger *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Manager{
		store:      store,
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
		domain:     cfg.Domain,
		ttl:        cfg.TTL,
		logger:     logger.With("component", "session"),
	}, nil
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Load resolves a client-held token to a Session. An empty or unknown token
// yields a fresh anonymous session; a fresh session gets its token on first
// Save, never reusing a token the server did not issue.
func (m *Manager) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return &Session{store: m.store}, nil
	}

	value, ok, err := m.store.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		return nil, oops.Code("SESSION_LOAD_FAILED").
			With("operation", "get session state").
			Wrap(err)
	}
	if !ok {
		return &Session{store: m.store}, nil
	}

	sess := &Session{store: m.store, token: token}
	if value != "" {
		id, err := ulid.Parse(value)
		if err != nil {
			// Corrupt state: treat as anonymous rather than failing the
			// request.
			m.logger.Warn("discarding unparsable session state")
			return &Session{store: m.store}, nil
		}
		sess.userID = &id
	}
	return sess, nil
}

// Save persists a modified session, assigning a token on first save.
// Destroyed or unmodified sessions are left alone.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s.destroyed || !s.dirty {
		return nil
	}

	if s.token == "" {
		token, err := generateToken()
		if err != nil {
			return err
		}
		s.token = token
	}

	var value string
	if s.userID != nil {
		value = s.userID.String()
	}
	if err := m.store.Set(ctx, sessionKeyPrefix+s.token, value, m.ttl); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "set session state").
			Wrap(err)
	}
	s.dirty = false
	return nil
}

// Cookie returns the cookie binding the client to s. Valid only after Save
// has assigned a token.
func (m *Manager) Cookie(s *Session) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    s.token,
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie returns a cookie that instructs the client to drop its
// session cookie.
func (m *Manager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
