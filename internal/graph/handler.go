// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package graph

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/samber/oops"

	"github.com/reppit/reppit/internal/observability"
	"github.com/reppit/reppit/internal/session"
	"github.com/reppit/reppit/pkg/errutil"
)

// request is the standard GraphQL-over-HTTP POST body.
type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler serves GraphQL over HTTP POST. It loads the session from the
// request cookie before execution and, after execution, saves the session
// and sets the session cookie — or clears it if the session was destroyed.
type Handler struct {
	schema   graphql.Schema
	sessions *session.Manager
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewHandler creates a Handler. metrics may be nil.
func NewHandler(schema graphql.Schema, sessions *session.Manager, metrics *observability.Metrics, logger *slog.Logger) (*Handler, error) {
	if sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		schema:   schema,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger.With("component", "graph"),
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countRequest("bad_request")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var token string
	if cookie, err := r.Cookie(h.sessions.CookieName()); err == nil {
		token = cookie.Value
	}

	ctx := r.Context()
	sess, err := h.sessions.Load(ctx, token)
	if err != nil {
		errutil.LogError(h.logger, "session load failed", err)
		h.countRequest("error")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        WithSession(ctx, sess),
	})

	// Cookie headers must be written before the body. A destroyed session
	// always clears the cookie, even when the destroy itself failed.
	switch {
	case sess.Destroyed():
		http.SetCookie(w, h.sessions.ClearCookie())
	case sess.Modified():
		if err := h.sessions.Save(ctx, sess); err != nil {
			errutil.LogError(h.logger, "session save failed", err)
			h.countRequest("error")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, h.sessions.Cookie(sess))
	}

	if result.HasErrors() {
		h.countRequest("error")
		for _, gqlErr := range result.Errors {
			h.logger.Error("graphql execution error", "error", gqlErr.Error())
		}
	} else {
		h.countRequest("ok")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("response write failed", "error", err)
	}
}

func (h *Handler) countRequest(status string) {
	if h.metrics != nil {
		h.metrics.GraphQLRequestsTotal.WithLabelValues(status).Inc()
	}
}
