// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

// Package session binds server-side per-client session state to a cookie
// token. A Session is an explicit per-request handle: the transport loads it
// from the request cookie, operations mutate it, and the transport saves it
// and sets or clears the cookie before responding. Nothing holds a Session
// past its request.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/reppit/reppit/internal/kv"
)

// Session token configuration.
const (
	TokenBytes = 32 // 32 bytes = 64 hex chars

	// sessionKeyPrefix namespaces session state in the backing store.
	sessionKeyPrefix = "sess:"
)

// Session is the mutable per-request session. It holds at most one field:
// the authenticated user id. A zero-value user id means anonymous.
type Session struct {
	store kv.Store
	token string

	userID *ulid.ULID
	dirty  bool

	destroyOnce sync.Once
	destroyed   bool
	destroyErr  error
}

// UserID returns the authenticated user id, or ok=false for an anonymous
// session.
func (s *Session) UserID() (ulid.ULID, bool) {
	if s.userID == nil {
		return ulid.ULID{}, false
	}
	return *s.userID, true
}

// SetUserID binds a user id into the session. The change is persisted on
// the next Manager.Save.
func (s *Session) SetUserID(id ulid.ULID) {
	s.userID = &id
	s.dirty = true
}

// Destroy deletes the session's server-side state. It settles exactly once:
// the deletion runs on the first call and every call returns that first
// outcome. Even on failure the session is marked destroyed, so the
// transport still clears the cookie.
func (s *Session) Destroy(ctx context.Context) error {
	s.destroyOnce.Do(func() {
		s.destroyed = true
		if s.token == "" {
			// Never persisted: nothing to delete.
			return
		}
		if err := s.store.Del(ctx, sessionKeyPrefix+s.token); err != nil {
			s.destroyErr = oops.Code("SESSION_DESTROY_FAILED").
				With("operation", "delete session state").
				Wrap(err)
		}
	})
	return s.destroyErr
}

// Destroyed reports whether Destroy has been called.
func (s *Session) Destroyed() bool {
	return s.destroyed
}

// Modified reports whether the session has unsaved changes.
func (s *Session) Modified() bool {
	return s.dirty
}

// Token returns the opaque client-held token, or "" if the session has
// never been persisted.
func (s *Session) Token() string {
	return s.token
}

// generateToken creates a cryptographically random session token.
func generateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}
