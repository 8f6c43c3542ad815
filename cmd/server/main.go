package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Ballot/internal/api/middleware"
	"Ballot/internal/api/routes"
	"Ballot/internal/config"
	"Ballot/internal/core/events"
	"Ballot/internal/core/votes"
	"Ballot/internal/db/sqlstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, cfg.Store(), logger)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("failed to close database", "error", closeErr)
		}
	}()

	logger.Info("connected to vote database",
		"driver", store.Dialect(),
		"table", store.Table())

	if err := store.Migrate(ctx); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	registry, err := cfg.Registry()
	if err != nil {
		log.Fatal("Invalid type configuration: ", err)
	}

	metricsRegistry := events.NewRegistry()
	sink := events.NewFanout(
		events.NewLogSink(logger, slog.LevelDebug),
		events.NewMetricsSink(metricsRegistry),
	)

	engine, err := votes.NewEngine(store, registry, sink, logger)
	if err != nil {
		log.Fatal("Failed to create vote engine: ", err)
	}

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; every authenticated endpoint will reject requests")
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
		defer limiter.Stop()
	}

	router := routes.NewRouter(routes.RouterOptions{
		Engine:  engine,
		Auth:    middleware.NewVoterAuthMiddleware([]byte(cfg.JWTSecret), cfg.DefaultVoterType, logger),
		Limiter: limiter,
		Metrics: events.Handler(metricsRegistry),
		Health:  func(r *http.Request) error { return store.DB().PingContext(r.Context()) },
		Logger:  logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("Ballot AppView starting",
		"port", cfg.Port,
		"voter_types", registry.Tags(votes.RoleVoter),
		"subject_types", registry.Tags(votes.RoleSubject))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
