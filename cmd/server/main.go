// Package main is the entrypoint for the RenderQA pipeline server.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryakhanna/renderqa/internal/api"
	"github.com/aryakhanna/renderqa/internal/api/handler"
	mw "github.com/aryakhanna/renderqa/internal/api/middleware"
	"github.com/aryakhanna/renderqa/internal/api/response"
	"github.com/aryakhanna/renderqa/internal/cache"
	"github.com/aryakhanna/renderqa/internal/config"
	"github.com/aryakhanna/renderqa/internal/metrics"
	"github.com/aryakhanna/renderqa/internal/pipeline"
	"github.com/aryakhanna/renderqa/internal/publish"
	"github.com/aryakhanna/renderqa/internal/queue"
	"github.com/aryakhanna/renderqa/internal/render"
	"github.com/aryakhanna/renderqa/internal/report"
	"github.com/aryakhanna/renderqa/internal/store"
	"github.com/aryakhanna/renderqa/internal/vision"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "vision_provider", cfg.Vision.Provider,
		"publish_mode", cfg.Publish.Mode, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 3. Create collaborator clients
	visionProvider, err := vision.NewProvider(cfg.Vision)
	if err != nil {
		return fmt.Errorf("create vision provider: %w", err)
	}
	slog.Info("vision provider initialized", "provider", visionProvider.Name())

	renderer := render.NewHTTPClient(cfg.Render.BaseURL, cfg.Render.Timeout)
	reporter := report.NewClient(cfg.Report)

	publisher, err := publish.NewPublisher(cfg.Publish)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	slog.Info("publisher initialized", "mode", publisher.Name())

	// 4. Build the pipeline: store, orchestrator, scheduler
	m := metrics.New(prometheus.DefaultRegisterer)
	jobStore := store.NewMemoryStore(cfg.Pipeline.StoreMaxJobs, cfg.Pipeline.MaxRetries)
	orch := pipeline.NewOrchestrator(jobStore, renderer, visionProvider, reporter, publisher, m)
	sched := queue.NewScheduler(jobStore, orch, redisCache, m, cfg.Pipeline.InterJobDelay)
	defer sched.Close()

	// 5. Build router with dependencies
	rateLimit := mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin)

	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:   healthHandler(redisCache, sched),
		AdmitHandler:    handler.NewAdmitHandler(jobStore, sched, m),
		GetJobHandler:   handler.NewGetJobHandler(jobStore),
		ListJobsHandler: handler.NewListJobsHandler(jobStore, sched),
		QueueHandler:    handler.NewQueueHandler(sched),
		MetricsHandler:  promhttp.Handler(),
	}

	router := api.NewRouter(deps)

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks cache connectivity and reports the worker state.
func healthHandler(c cache.Cache, snap handler.Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"cache": "ok",
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
			"queue":    snap.Snapshot(),
		})
	}
}
