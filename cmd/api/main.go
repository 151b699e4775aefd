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

	"github.com/harliandi/go-imgfit/internal/config"
	"github.com/harliandi/go-imgfit/internal/converter"
	"github.com/harliandi/go-imgfit/internal/handler"
	"github.com/harliandi/go-imgfit/internal/middleware"
	"github.com/harliandi/go-imgfit/pkg/codec"
	"github.com/harliandi/go-imgfit/pkg/optimizer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := newRouter(cfg, logger, ctx.Done())
	if err != nil {
		logger.Error("building router", "error", err)
		os.Exit(1)
	}

	// Timeouts guard against slowloris and hanging connections.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	logger.Info("starting image optimization API",
		"addr", server.Addr,
		"max_upload_mb", cfg.MaxUploadMB,
		"max_concurrent", cfg.MaxConcurrent,
		"rate_limit", cfg.RateLimitPerSec,
		"tiers", cfg.TierSizes,
		"quality_step", cfg.QualityStep,
		"resize_filter", cfg.ResizeFilter,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
			os.Exit(1)
		}
	}
}

// newRouter wires the optimizer, handlers and middleware chain. done stops
// the rate limiter's background sweep.
func newRouter(cfg *config.Config, logger *slog.Logger, done <-chan struct{}) (http.Handler, error) {
	rs, err := codec.NewResizer(cfg.ResizeFilter)
	if err != nil {
		return nil, err
	}
	opt := optimizer.New(codec.NewEncoder(), rs, optimizer.WithPolicy(cfg.Policy()))
	h := handler.New(converter.New(opt), cfg)

	gzip, err := middleware.Compress()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/optimize", h.Optimize)
	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())

	// Outermost first: security headers, request ID, per-IP rate limit,
	// global concurrency limit, panic recovery, access log, compression.
	return middleware.Security(
		middleware.RequestID(logger)(
			middleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst, done)(
				middleware.ConcurrencyLimit(cfg.MaxConcurrent)(
					middleware.Recovery(
						middleware.Logger(
							gzip(mux),
						),
					),
				),
			),
		),
	), nil
}
