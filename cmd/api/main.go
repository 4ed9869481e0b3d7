// Package main is the entry point for the crew console API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/crewdesk/console/internal/cache"
	"github.com/crewdesk/console/internal/config"
	"github.com/crewdesk/console/internal/handler"
	"github.com/crewdesk/console/internal/middleware"
	"github.com/crewdesk/console/internal/notify"
	"github.com/crewdesk/console/internal/repo"
	"github.com/crewdesk/console/internal/service"
	"github.com/crewdesk/console/migrations"
	"github.com/crewdesk/console/openapi"
)

const cacheKeyPrefix = "crew:views"

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Default logger writes to stderr before ours is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if err := migrate(ctx, cfg.DatabaseURL); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// --- View cache -------------------------------------------------------
	views, closeCache, err := newViewCache(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up view cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	// --- Services ---------------------------------------------------------
	tours := repo.NewTourRepo(pool)
	dates := repo.NewTourDateRepo(pool)
	jobs := repo.NewJobRepo(pool)
	locations := repo.NewLocationRepo(pool)
	feed := notify.NewFeed(notify.DefaultCapacity, logger)

	builder := service.NewGraphBuilder(service.GraphRepos{
		Tours:       tours,
		Dates:       dates,
		Jobs:        jobs,
		Departments: repo.NewJobDepartmentRepo(pool),
		Locations:   locations,
	}, service.GraphOptions{
		Rollback:        cfg.ProvisionRollback,
		DateTitleFormat: cfg.TourDateTitleFormat,
	}, logger)

	provisioner := service.NewProvisionService(service.ProvisionDeps{
		Builder:  builder,
		Tours:    tours,
		Runs:     repo.NewProvisioningRunRepo(pool),
		Cache:    views,
		Notifier: feed,
		Location: cfg.TourTimezone,
		Logger:   logger,

		ClaimWait: cfg.ProvisionClaimWait,
	})
	catalog := service.NewCatalogService(tours, dates, jobs, locations, views, logger)

	// --- Router -----------------------------------------------------------
	// RequestID must run before the logger so every log line carries it.
	// Recoverer turns handler panics into a 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(middleware.NewRequestMetrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	srv := handler.NewServer(handler.Deps{
		Provisioner:   provisioner,
		Catalog:       catalog,
		Notifications: feed,
		DB:            pool,
		APIDoc:        openapi.Document,
		Logger:        logger,
	})
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr,
			"rollback", cfg.ProvisionRollback, "timezone", cfg.TourTimezone.String())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	// In-flight provisioning runs are detached from their requests, so give
	// them the full grace period to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies pending goose migrations. goose drives database/sql, so it
// gets its own short-lived handle rather than the pool.
func migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration db: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, res := range results {
		slog.Info("migration applied", "version", res.Source.Version, "duration", res.Duration)
	}
	return nil
}

// newViewCache returns a Redis-backed cache when REDIS_URL is set and an
// in-process one otherwise. The returned func releases the cache's resources.
func newViewCache(ctx context.Context, cfg config.Config) (service.ViewCache, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("view cache: in-memory", "ttl", cfg.CacheTTL)
		return cache.NewMemory(cfg.CacheTTL), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("view cache: redis", "addr", opts.Addr, "ttl", cfg.CacheTTL)
	return cache.NewRedis(client, cacheKeyPrefix, cfg.CacheTTL), func() { _ = client.Close() }, nil
}
