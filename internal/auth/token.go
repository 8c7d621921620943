// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes = 32        // 32 bytes = 64 hex chars
	ResetTokenTTL   = time.Hour // 1 hour expiry

	// resetTokenPrefix namespaces reset tokens in the token store.
	resetTokenPrefix = "forget-password:"
)

// TokenStore is a key-value store with per-key expiry, used for one-time
// reset tokens. Keys carry the "forget-password:" prefix.
type TokenStore interface {
	// Set stores value under key with the given time-to-live.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key, or ok=false if the key is missing or
	// expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// GetDel atomically returns and removes the value for key. A missing or
	// expired key yields ok=false. This is the strict single-use primitive:
	// two concurrent consumers of the same key cannot both observe it.
	GetDel(ctx context.Context, key string) (value string, ok bool, err error)

	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
}

// GenerateResetToken creates a cryptographically random reset token.
func GenerateResetToken() (string, error) {
	b := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// resetTokenKey maps a token to its store key.
func resetTokenKey(token string) string {
	return resetTokenPrefix + token
}
