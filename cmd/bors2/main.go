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

	"golang.org/x/sync/errgroup"

	"github.com/alexcrichton/bors2/internal/adapter/appveyor"
	"github.com/alexcrichton/bors2/internal/adapter/github"
	bnats "github.com/alexcrichton/bors2/internal/adapter/nats"
	"github.com/alexcrichton/bors2/internal/adapter/otel"
	"github.com/alexcrichton/bors2/internal/adapter/postgres"
	"github.com/alexcrichton/bors2/internal/adapter/travis"
	"github.com/alexcrichton/bors2/internal/config"
	"github.com/alexcrichton/bors2/internal/logger"
	"github.com/alexcrichton/bors2/internal/port/messagequeue"
	"github.com/alexcrichton/bors2/internal/service"
	"github.com/alexcrichton/bors2/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.InitTracer(ctx, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS fanout is optional: ingestion is durable without it.
	var queue messagequeue.Publisher
	if cfg.NATS.URL != "" {
		q, err := bnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = q.Close() }()
		queue = q
	}

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// Stores and gateways
	store := postgres.NewStore(pool)
	eventLog := postgres.NewEventLog(pool)
	githubClient := github.NewClient(cfg.GitHub)
	travisClient := travis.NewClient(cfg.Travis.APIURL)
	appveyorClient := appveyor.NewClient(cfg.AppVeyor.APIURL)

	// Services
	onboarding := service.NewOnboardingService(store, githubClient, travisClient, appveyorClient, cfg.Server.Host, metrics)
	ingest := service.NewIngestService(store, eventLog, travisClient, queue, metrics)

	// HTTP
	flash := web.NewFlashCodec(cfg.Server.SessionKey)
	handlers := web.NewHandlers(store, onboarding, ingest, flash)
	pipeline := web.NewPipeline(pool, flash)
	router := web.NewRouter(pipeline, handlers, cfg.Logging.Service)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
