// main is the entry point of the Students API.
//
// STARTUP SEQUENCE:
//  1. Load configuration (defaults, optional YAML file, .env, environment)
//  2. Initialise the logger
//  3. Open the database (SQLite or PostgreSQL) and migrate the schema
//  4. Connect to Redis when REDIS_ADDR is set (enables POST /auth/logout)
//  5. Build the services and the chi router
//  6. Serve until SIGINT/SIGTERM, then drain in-flight requests
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
//
// or, with environment variables only:
//
//	JWT_SECRET=change-me PORT=3000 go run ./cmd/students-api
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/http/router"
	"github.com/aanand-mishra/students-api/internal/observability"
	"github.com/aanand-mishra/students-api/internal/security"
	"github.com/aanand-mishra/students-api/internal/service"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/storage/postgres"
	"github.com/aanand-mishra/students-api/internal/storage/redis"
	"github.com/aanand-mishra/students-api/internal/storage/sqlite"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-api",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
	)

	if err := run(cfg, log); err != nil {
		log.Error("students-api stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// ── Storage ──────────────────────────────────────────────────────────
	store, db, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialise storage: %w", err)
	}
	defer store.Close()

	// ── Token revocation (optional) ──────────────────────────────────────
	// The service takes an interface; leave it nil unless Redis is configured.
	var revoked service.RevocationStore
	if cfg.Redis.Addr != "" {
		rs, err := redis.New(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer rs.Close()
		revoked = rs
		log.Info("token revocation enabled")
	}

	// ── Services ─────────────────────────────────────────────────────────
	hasher := security.NewHasher(cfg.Auth.BcryptCost)
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, nil)

	authSvc := service.NewAuthService(store, hasher, tokens, revoked, log)
	studentSvc := service.NewStudentService(store, log)

	metrics := observability.NewMetrics()
	metrics.Registerer().MustRegister(collectors.NewDBStatsCollector(db, cfg.Storage.Driver))

	handler := router.New(router.Options{
		Logger:             log,
		Auth:               authSvc,
		Students:           studentSvc,
		Metrics:            metrics,
		AuthRateLimit:      cfg.AuthRateLimit,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Production:         cfg.IsProduction(),
	})

	// ── HTTP server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("server encountered an error: %w", err)
	case <-done:
	}

	log.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// openStorage returns the configured backend and its pool.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, *sql.DB, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pg, err := postgres.New(ctx, cfg.Storage.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("storage initialised", slog.String("driver", "postgres"))
		return pg, pg.DB(), nil
	default:
		lite, err := sqlite.New(ctx, cfg.Storage.Path, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("storage initialised", slog.String("driver", "sqlite"), slog.String("path", cfg.Storage.Path))
		return lite, lite.Db, nil
	}
}

// setupLogger returns a text logger at DEBUG in dev and JSON elsewhere:
// DEBUG in staging, INFO in prod.
func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case config.EnvStaging:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
