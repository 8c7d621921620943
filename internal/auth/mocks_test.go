// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package auth_test

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/reppit/reppit/internal/auth"
)

// mockUserRepository is a mock for auth.UserRepository.
type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// mockTokenStore is a mock for auth.TokenStore.
type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *mockTokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockTokenStore) GetDel(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockTokenStore) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// mockHasher is a mock for auth.PasswordHasher.
type mockHasher struct {
	mock.Mock
}

func (m *mockHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockHasher) Verify(password, encoded string) (bool, error) {
	args := m.Called(password, encoded)
	return args.Bool(0), args.Error(1)
}

// mockMailer is a mock for auth.Mailer.
type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, htmlBody string) error {
	args := m.Called(ctx, to, htmlBody)
	return args.Error(0)
}

// fakeSession is an in-memory auth.Session for tests.
type fakeSession struct {
	userID     *ulid.ULID
	destroyed  bool
	destroyErr error
}

func (s *fakeSession) UserID() (ulid.ULID, bool) {
	if s.userID == nil {
		return ulid.ULID{}, false
	}
	return *s.userID, true
}

func (s *fakeSession) SetUserID(id ulid.ULID) {
	s.userID = &id
}

func (s *fakeSession) Destroy(_ context.Context) error {
	s.destroyed = true
	return s.destroyErr
}
