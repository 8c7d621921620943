// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// User represents a registered account. PasswordHash is opaque and must
// never be exposed through the API surface.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a User with a fresh ID and timestamps. Field validation
// is the Service's job; this only assembles the record.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// UserRepository manages user persistence.
//
// Uniqueness of username and email is enforced by the store at creation
// time, not pre-checked by callers; Create reports a recognized duplicate
// as a *ConflictError.
type UserRepository interface {
	// Create stores a new user. A duplicate username or email yields a
	// *ConflictError; any other failure is an infrastructure fault.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces only the password hash for a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
