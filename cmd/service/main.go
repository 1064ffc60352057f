package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-insights/internal/analytics"
	"github-insights/internal/api"
	"github-insights/internal/config"
	"github-insights/internal/githubapi"
	"github-insights/internal/insight"
	"github-insights/internal/store"
	"github-insights/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	db := store.NewPostgres(dbpool)
	aggregator := analytics.NewAggregator(db, logger)

	newClient := func(token string) syncer.RemoteClient {
		return githubapi.NewClient(token, logger, cfg.StatsFetchDelay)
	}
	appSyncer := syncer.NewSyncer(db, newClient, aggregator, logger, syncer.Options{
		Concurrency:      cfg.SyncConcurrency,
		StatsBudget:      cfg.StatsBudget,
		RecentWindow:     time.Duration(cfg.RecentWindowDays) * 24 * time.Hour,
		MinRateRemaining: cfg.MinRateRemaining,
	})

	var insights api.InsightService
	if cfg.GeminiAPIKey != "" {
		gen, err := insight.NewGenerator(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("failed to create insight generator: %w", err)
		}
		defer gen.Close()
		insights = gen
	} else {
		logger.Warn("GEMINI_API_KEY not set, insight generation disabled")
	}

	// 6. Start the HTTP server
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(db, appSyncer, aggregator, insights, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 7. Wait for shutdown signal
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received. Exiting.")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
