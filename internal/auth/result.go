// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package auth

import "strings"

// FieldError identifies which input was invalid and why. It is reported to
// the caller inside a UserResult, never returned as a Go error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// UserResult is the discriminated outcome of an operation that either
// produces a user or rejects the input: exactly one of User and Errors is
// populated. Operations short-circuit on the first violated rule, so Errors
// never holds more than one element.
type UserResult struct {
	User   *User
	Errors []FieldError
}

func fieldErrors(field, message string) UserResult {
	return UserResult{Errors: []FieldError{{Field: field, Message: message}}}
}

// RegisterInput carries the raw registration fields.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// validateRegister applies the registration rules in order and returns the
// first violation, or nil if all pass.
func validateRegister(in RegisterInput) *FieldError {
	if len(in.Username) <= 2 {
		return &FieldError{Field: "username", Message: "username must be longer than 2 characters"}
	}
	if strings.Contains(in.Username, "@") {
		return &FieldError{Field: "username", Message: "invalid username"}
	}
	if len(in.Password) <= 3 {
		return &FieldError{Field: "password", Message: "password must be longer than 3 characters"}
	}
	if !strings.Contains(in.Email, "@") {
		return &FieldError{Field: "email", Message: "invalid email"}
	}
	return nil
}
