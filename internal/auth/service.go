// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/reppit/reppit/pkg/errutil"
)

// Session is the per-request mutable session bound to a client via a cookie.
// The Service mutates it during a request and must not retain it afterwards.
type Session interface {
	// UserID returns the authenticated user id, or ok=false for an
	// anonymous session.
	UserID() (id ulid.ULID, ok bool)

	// SetUserID binds a user id into the session, logging the user in.
	SetUserID(id ulid.ULID)

	// Destroy deletes the session's server-side state. It settles exactly
	// once: repeated calls return the first outcome without re-running the
	// deletion.
	Destroy(ctx context.Context) error
}

// Mailer delivers a message to an address. Dispatch is fire-and-forget from
// the Service's perspective.
type Mailer interface {
	Send(ctx context.Context, to, htmlBody string) error
}

// Service orchestrates registration, authentication, and credential
// recovery.
type Service struct {
	users       UserRepository
	tokens      TokenStore
	hasher      PasswordHasher
	mailer      Mailer
	frontendURL string
	logger      *slog.Logger
}

// NewService creates a Service using the default logger. frontendURL is the
// base URL embedded in password-reset links.
func NewService(users UserRepository, tokens TokenStore, hasher PasswordHasher, mailer Mailer, frontendURL string) (*Service, error) {
	return NewServiceWithLogger(users, tokens, hasher, mailer, frontendURL, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, tokens TokenStore, hasher PasswordHasher, mailer Mailer, frontendURL string, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:       users,
		tokens:      tokens,
		hasher:      hasher,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger.With("component", "auth"),
	}, nil
}

// Register validates the input, creates the user, and logs them in by
// binding the new id into sess. Rule violations and duplicate
// username/email are reported as field errors; any other persistence
// failure propagates as an infrastructure fault.
func (s *Service) Register(ctx context.Context, in RegisterInput, sess Session) (UserResult, error) {
	if fe := validateRegister(in); fe != nil {
		return UserResult{Errors: []FieldError{*fe}}, nil
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return UserResult{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user := NewUser(in.Username, in.Email, hash)
	if err := s.users.Create(ctx, user); err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			switch conflict.Field {
			case "username":
				return fieldErrors("username", "username already exists"), nil
			case "email":
				return fieldErrors("email", "email already exists"), nil
			}
		}
		return UserResult{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			With("username", in.Username).
			Wrap(err)
	}

	sess.SetUserID(user.ID)

	s.logger.Info("user registered", "user_id", user.ID.String(), "username", user.Username)
	return UserResult{User: user}, nil
}

// Login authenticates by username or email. Input containing '@' selects
// the email lookup, otherwise the username lookup; exactly one strategy
// runs. On success the user id is bound into sess.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string, sess Session) (UserResult, error) {
	var (
		user *User
		err  error
	)
	if strings.Contains(usernameOrEmail, "@") {
		user, err = s.users.GetByEmail(ctx, usernameOrEmail)
	} else {
		user, err = s.users.GetByUsername(ctx, usernameOrEmail)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fieldErrors("usernameOrEmail", "that username does not exist"), nil
		}
		return UserResult{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user").
			Wrap(err)
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return UserResult{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if !valid {
		return fieldErrors("password", "incorrect password"), nil
	}

	sess.SetUserID(user.ID)

	s.logger.Info("user logged in", "user_id", user.ID.String())
	return UserResult{User: user}, nil
}

// Logout destroys the session's server-side state. It reports success or
// failure but never errors; a failed destroy is logged. The transport clears
// the session cookie in either case.
func (s *Service) Logout(ctx context.Context, sess Session) bool {
	if err := sess.Destroy(ctx); err != nil {
		errutil.LogError(s.logger, "session destroy failed", err)
		return false
	}
	return true
}

// Me resolves the session's user. An anonymous session yields (nil, nil)
// without a directory lookup; an id that no longer resolves also yields
// (nil, nil) rather than an error.
func (s *Service) Me(ctx context.Context, sess Session) (*User, error) {
	id, ok := sess.UserID()
	if !ok {
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("AUTH_ME_FAILED").
			With("operation", "get user by id").
			With("user_id", id.String()).
			Wrap(err)
	}
	return user, nil
}
