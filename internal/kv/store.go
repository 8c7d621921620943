// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

// Package kv provides key-value stores with per-key expiry, backing both
// session state and one-time reset tokens.
package kv

import (
	"context"
	"time"
)

// Store is a string key-value store with per-key time-to-live.
type Store interface {
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key; ok is false if the key is missing or
	// expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// GetDel atomically returns and removes the value for key; ok is false
	// if the key is missing or expired.
	GetDel(ctx context.Context, key string) (value string, ok bool, err error)

	// Del removes key. Removing an absent key is not an error.
	Del(ctx context.Context, key string) error
}
