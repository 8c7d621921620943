// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Redis implements Store on a Redis client. GetDel maps to the GETDEL
// command, so one-time reads are atomic server-side.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis creates a Store backed by an existing Redis client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Connect creates a Redis client and verifies connectivity, retrying the
// initial ping with exponential backoff while the server comes up.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, oops.Code("KV_CONNECT_FAILED").
			With("addr", addr).
			Wrap(err)
	}

	return client, nil
}

// Set stores value under key. A zero ttl means no expiry.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return oops.Code("KV_SET_FAILED").With("key", key).Wrap(err)
	}
	return nil
}

// Get returns the value for key, or ok=false if absent.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.Code("KV_GET_FAILED").With("key", key).Wrap(err)
	}
	return value, true, nil
}

// GetDel atomically returns and removes the value for key.
func (r *Redis) GetDel(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.Code("KV_GETDEL_FAILED").With("key", key).Wrap(err)
	}
	return value, true, nil
}

// Del removes key.
func (r *Redis) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return oops.Code("KV_DEL_FAILED").With("key", key).Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ Store = (*Redis)(nil)
