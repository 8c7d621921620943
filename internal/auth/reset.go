// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/reppit/reppit/pkg/errutil"
)

// ForgotPassword issues a one-time reset token for the account registered
// under email and mails a reset link. It returns true whether or not the
// email is registered, so callers cannot probe which addresses exist; for an
// unknown email no token is created. Mail dispatch failures are logged, not
// reported.
func (s *Service) ForgotPassword(ctx context.Context, email string) (bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Do not reveal that the email is unregistered.
			return true, nil
		}
		return false, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, err := GenerateResetToken()
	if err != nil {
		return false, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	if err := s.tokens.Set(ctx, resetTokenKey(token), user.ID.String(), ResetTokenTTL); err != nil {
		return false, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store token").
			Wrap(err)
	}

	body := fmt.Sprintf(`<a href="%s/change-password/%s">reset password</a>`, s.frontendURL, token)
	if err := s.mailer.Send(ctx, email, body); err != nil {
		errutil.LogError(s.logger, "reset email dispatch failed", err)
	}

	s.logger.Info("password reset requested", "user_id", user.ID.String())
	return true, nil
}

// ChangePassword consumes a reset token and sets a new password for the
// token's user, then logs that user in by binding their id into sess.
//
// The password length rule runs before any token lookup, so a rejected
// password never consumes the token. Token consumption itself is atomic
// (GetDel): once this call has resolved a token, a concurrent duplicate
// observes it as expired.
func (s *Service) ChangePassword(ctx context.Context, token, newPassword string, sess Session) (UserResult, error) {
	if len(newPassword) <= 3 {
		return fieldErrors("newPassword", "password must be longer than 3 characters"), nil
	}

	idStr, ok, err := s.tokens.GetDel(ctx, resetTokenKey(token))
	if err != nil {
		return UserResult{}, oops.Code("RESET_CHANGE_FAILED").
			With("operation", "consume token").
			Wrap(err)
	}
	if !ok {
		// Used, expired, or never issued: indistinguishable.
		return fieldErrors("token", "token expired"), nil
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return UserResult{}, oops.Code("RESET_CHANGE_FAILED").
			With("operation", "parse user id").
			With("value", idStr).
			Wrap(err)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fieldErrors("token", "user no longer exists"), nil
		}
		return UserResult{}, oops.Code("RESET_CHANGE_FAILED").
			With("operation", "get user by id").
			With("user_id", id.String()).
			Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return UserResult{}, oops.Code("RESET_CHANGE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fieldErrors("token", "user no longer exists"), nil
		}
		return UserResult{}, oops.Code("RESET_CHANGE_FAILED").
			With("operation", "update password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	user.PasswordHash = hash

	// Log the user in after resetting the password.
	sess.SetUserID(user.ID)

	s.logger.Info("password changed via reset token", "user_id", user.ID.String())
	return UserResult{User: user}, nil
}
