// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package auth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ConflictError reports a uniqueness violation on user creation. Field names
// the conflicting column ("username" or "email"), determined by which
// constraint the store reported.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}
