// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/reppit/reppit/internal/auth"
	"github.com/reppit/reppit/internal/auth/postgres"
	"github.com/reppit/reppit/internal/config"
	"github.com/reppit/reppit/internal/graph"
	"github.com/reppit/reppit/internal/kv"
	"github.com/reppit/reppit/internal/logging"
	"github.com/reppit/reppit/internal/mail"
	"github.com/reppit/reppit/internal/observability"
	"github.com/reppit/reppit/internal/session"
	"github.com/reppit/reppit/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the GraphQL API server together with the observability
endpoints. Pending database migrations are applied on startup.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("reppit", version, cfg.Log.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := store.NewMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close() //nolint:errcheck // migration failure takes precedence
		return err
	}
	if err := migrator.Close(); err != nil {
		return err
	}
	logger.Info("database ready")

	redisClient, err := kv.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	kvStore := kv.NewRedis(redisClient)

	obs := observability.NewServer(cfg.Observability.Addr, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil && redisClient.Ping(pingCtx).Err() == nil
	})
	obsErrs, err := obs.Start()
	if err != nil {
		return err
	}
	logger.Info("observability server listening", "addr", obs.Addr())

	var mailer auth.Mailer
	if cfg.SMTP.Addr != "" {
		mailer = mail.NewSMTP(cfg.SMTP.Addr, cfg.SMTP.From, nil)
	} else {
		mailer = mail.NewLog(logger)
	}

	svc, err := auth.NewServiceWithLogger(
		postgres.NewUserRepository(pool),
		kvStore,
		auth.NewArgon2idHasher(),
		mailer,
		cfg.Frontend.URL,
		logger,
	)
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(kvStore, session.Config{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
		Domain:     cfg.Session.Domain,
	}, logger)
	if err != nil {
		return err
	}

	schema, err := graph.NewSchema(svc, obs.Metrics())
	if err != nil {
		return err
	}
	handler, err := graph.NewHandler(schema, sessions, obs.Metrics(), logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/query", handler)

	// Credentialed CORS: the cookie only flows if the origin is listed
	// explicitly, never via a wildcard.
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.Origins,
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           corsMiddleware.Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErrs := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErrs <- err
		}
		close(srvErrs)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-srvErrs:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
	case err := <-obsErrs:
		if err != nil {
			return oops.Code("SERVER_FAILED").With("component", "observability").Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", "error", err)
	}
	if err := obs.Stop(shutdownCtx); err != nil {
		logger.Error("observability server shutdown failed", "error", err)
	}
	return nil
}
