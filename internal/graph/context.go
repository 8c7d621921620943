// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package graph

import (
	"context"

	"github.com/reppit/reppit/internal/session"
)

type contextKey int

const sessionContextKey contextKey = iota

// WithSession returns a context carrying the request's session handle.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFrom extracts the request's session handle from the context.
func SessionFrom(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*session.Session)
	return sess, ok
}
