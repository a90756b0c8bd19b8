// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Stella authentication API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) and Redis.
//  4. Run database migrations (idempotent).
//  5. Build the token issuer, session store, cache and guard.
//  6. Bind social providers and the event publisher.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/stella/internal/api"
	"github.com/taibuivan/stella/internal/auth"
	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/platform/config"
	"github.com/taibuivan/stella/internal/platform/constants"
	"github.com/taibuivan/stella/internal/platform/events"
	"github.com/taibuivan/stella/internal/platform/metrics"
	"github.com/taibuivan/stella/internal/platform/migration"
	pgstore "github.com/taibuivan/stella/internal/platform/postgres"
	redisstore "github.com/taibuivan/stella/internal/platform/redis"
	"github.com/taibuivan/stella/internal/platform/sec"
	"github.com/taibuivan/stella/internal/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[Stella] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	if cfg.CacheOutlivesAccessToken() {
		log.Warn("user_session_cache_ttl_exceeds_access_lifetime",
			slog.Duration("cache_ttl", cfg.UserSessionCacheTTL),
			slog.Duration("access_lifetime", cfg.UserAuth.AccessTTL()),
		)
	}

	// Root context for startup; misconfiguration fails fast instead of hanging.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Lives as long as the process; stops background goroutines on shutdown.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.Up(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Tokens & Sessions ──────────────────────────────────────────────
	issuer, err := sec.NewTokenIssuer(constants.AuthIssuer, map[sec.Kind]sec.KindSecrets{
		sec.KindAdmin: kindSecrets(cfg.AdminAuth),
		sec.KindUser:  kindSecrets(cfg.UserAuth),
	})
	must(log, err, "initialize token issuer")

	m := metrics.New()

	admins := identity.NewAdminRepository(pool)
	users := identity.NewUserRepository(pool)
	store := session.NewPostgresStore(pool, issuer)
	guard := session.NewGuard(store, session.NewRedisCache(rdb), issuer, cfg.UserSessionCacheTTL, m)

	// ── 7. Social Providers ───────────────────────────────────────────────
	available := map[auth.Provider]auth.ProfileExchanger{
		auth.ProviderGoogle: auth.NewGoogleExchanger(cfg.GoogleUserInfoURL, nil),
	}
	if cfg.OIDCIssuerURL != "" {
		exchanger, err := auth.NewOIDCExchanger(startupCtx, cfg.OIDCIssuerURL, nil)
		must(log, err, "discover oidc provider")
		available[auth.ProviderOIDC] = exchanger
	}

	factory, err := auth.NewSocialFactory(available, map[sec.Kind][]string{
		sec.KindAdmin: cfg.AdminSocialProviders,
		sec.KindUser:  cfg.UserSocialProviders,
	})
	must(log, err, "bind social providers")

	log.Info("social_providers_enabled",
		slog.Any("admin", factory.Providers(sec.KindAdmin)),
		slog.Any("user", factory.Providers(sec.KindUser)),
	)

	// ── 8. Session Events ─────────────────────────────────────────────────
	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPSessionQueue, log)
		must(log, err, "connect to message broker")
		publisher = amqpPublisher
	}
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			log.Error("event publisher close error", slog.Any("error", cerr))
		}
	}()

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	manager := auth.NewManager(auth.NewVerifier(admins, users, factory), admins, store, issuer, publisher, m)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	server := api.NewServer(appCtx, cfg, log, m, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(manager, guard),
	})

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

func kindSecrets(settings config.AuthConfig) sec.KindSecrets {
	return sec.KindSecrets{
		AccessSecret:    []byte(settings.AccessTokenSecret),
		AccessLifetime:  settings.AccessTTL(),
		RefreshSecret:   []byte(settings.RefreshTokenSecret),
		RefreshLifetime: settings.RefreshTTL(),
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
