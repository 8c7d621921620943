// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package kv

import (
	"context"
	"sync"
	"time"
)

// Memory implements Store in process memory. It is used in tests and when
// running without Redis; expired keys are dropped lazily on access.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// Clock returns the current time. Overridable in tests; defaults to
	// time.Now.
	Clock func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		Clock:   time.Now,
	}
}

// Set stores value under key. A zero ttl means no expiry.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.Clock().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

// Get returns the value for key, or ok=false if absent or expired.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

// GetDel returns and removes the value for key in one step.
func (m *Memory) GetDel(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return "", false, nil
	}
	delete(m.entries, key)
	return entry.value, true, nil
}

// Del removes key.
func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// lookup returns the live entry for key, dropping it if expired.
// Callers must hold mu.
func (m *Memory) lookup(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && m.Clock().After(entry.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// Compile-time interface check.
var _ Store = (*Memory)(nil)
