// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

// Package auth provides user registration, authentication, and credential
// recovery for Reppit.
//
// # Domain Types
//
// User is the identity record. Operations report validation and business
// failures as FieldError values inside a UserResult; infrastructure faults
// are returned as errors.
//
// # Service
//
// Service orchestrates the collaborators (UserRepository, TokenStore,
// PasswordHasher, Mailer, Session) into the exposed operations: Register,
// Login, Logout, ForgotPassword, ChangePassword, and Me. Dependencies flow
// strictly downward; no collaborator calls back into the Service.
package auth
