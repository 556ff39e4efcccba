// Package main provides the entry point for the literature watch HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/helixir/literature-watch/internal/aggregator"
	"github.com/helixir/literature-watch/internal/config"
	"github.com/helixir/literature-watch/internal/observability"
	"github.com/helixir/literature-watch/internal/report"
	httpserver "github.com/helixir/literature-watch/internal/server/http"
	"github.com/helixir/literature-watch/internal/sources"
	"github.com/helixir/literature-watch/internal/sources/biorxiv"
	"github.com/helixir/literature-watch/internal/sources/pubmed"
	"github.com/helixir/literature-watch/internal/sources/researchsquare"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("literature-watch server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("litwatch")

	// Register search APIs. Registration order fixes the iteration order
	// of the aggregation pipeline.
	registry := sources.NewRegistry()
	registry.Register(pubmed.New(pubmed.Config{
		BaseURL:     cfg.Sources.PubMed.BaseURL,
		APIKey:      cfg.Sources.PubMed.APIKey,
		Timeout:     cfg.Sources.PubMed.Timeout,
		RateLimit:   cfg.Sources.PubMed.RateLimit,
		MaxAttempts: cfg.Sources.PubMed.MaxAttempts,
		RetryDelay:  cfg.Sources.PubMed.RetryDelay,
		Enabled:     cfg.Sources.PubMed.Enabled,
	}))
	registry.Register(biorxiv.New(biorxiv.Config{
		BaseURL:   cfg.Sources.BioRxiv.BaseURL,
		Timeout:   cfg.Sources.BioRxiv.Timeout,
		RateLimit: cfg.Sources.BioRxiv.RateLimit,
		Enabled:   cfg.Sources.BioRxiv.Enabled,
	}))
	registry.Register(researchsquare.New(researchsquare.Config{
		BaseURL:   cfg.Sources.ResearchSquare.BaseURL,
		Timeout:   cfg.Sources.ResearchSquare.Timeout,
		RateLimit: cfg.Sources.ResearchSquare.RateLimit,
		Enabled:   cfg.Sources.ResearchSquare.Enabled,
	}))

	for _, src := range registry.EnabledSources() {
		logger.Info().Str("source", src.Name()).Msg("search source enabled")
	}

	agg := aggregator.New(registry, metrics, logger)
	renderer := report.NewRenderer()

	srv := httpserver.NewServer(httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsPath:     cfg.Metrics.Path,
		DefaultPerPage:  cfg.Search.ResultsPerPage,
		MaxPerPage:      cfg.Search.MaxResultsPerPage,
		MaxQueries:      cfg.Search.MaxQueries,
		MaxFutureMonths: cfg.Search.MaxFutureMonths,
	}, agg, renderer, metrics, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
