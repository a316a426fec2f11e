package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/geocluster/internal/adapters/http/api"
	"github.com/okian/geocluster/internal/adapters/http/swagger"
	app "github.com/okian/geocluster/internal/app"
	"github.com/okian/geocluster/internal/config"
	"github.com/okian/geocluster/internal/domain/mixture"
	"github.com/okian/geocluster/internal/domain/render"
	"github.com/okian/geocluster/pkg/logger"
	"github.com/okian/geocluster/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 2 * time.Minute
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithOptions(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts, err := serviceOptions(cfg)
	if err != nil {
		log.Fatal(ctx, "invalid service configuration", logger.Error(err))
	}
	svc := app.New(append(opts, app.WithLogger(log))...)
	if err := svc.Start(ctx); err != nil {
		log.Fatal(ctx, "failed to start service", logger.Error(err))
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := newHTTPServer(ctx, cfg, svc, log)

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
}

// serviceOptions translates configuration into service options.
func serviceOptions(cfg *config.Config) ([]app.Option, error) {
	renderOpts := []render.Option{render.WithMaxZoom(cfg.MaxZoom)}
	if len(cfg.Palette) > 0 {
		p, err := render.NewPalette(cfg.Palette...)
		if err != nil {
			return nil, fmt.Errorf("palette: %w", err)
		}
		renderOpts = append(renderOpts, render.WithPalette(p))
	}

	return []app.Option{
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithResultCapacity(cfg.ResultCapacity),
		app.WithMaxRecords(cfg.MaxRecords),
		app.WithJobTimeout(cfg.JobTimeout),
		app.WithFitterOptions(
			mixture.WithMaxIterations(cfg.MaxIterations),
			mixture.WithTolerance(cfg.Tolerance),
			mixture.WithSeed(cfg.Seed),
			mixture.WithRegularization(cfg.Regularization),
			mixture.WithWorkers(cfg.EStepWorkers),
		),
		app.WithRenderOptions(renderOpts...),
	}, nil
}

// newHTTPServer registers the API routes and returns a configured server.
func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater periodically refreshes the system gauges.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
