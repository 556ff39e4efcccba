// Package httpserver provides the HTTP surface for the literature watch service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/literature-watch/internal/aggregator"
	"github.com/helixir/literature-watch/internal/observability"
	"github.com/helixir/literature-watch/internal/report"
)

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	MetricsPath     string

	// DefaultPerPage is the per-source page size used when the request
	// does not specify one.
	DefaultPerPage int
	// MaxPerPage caps the per-source page size a request may ask for.
	MaxPerPage int
	// MaxQueries caps the number of q parameters in one request.
	MaxQueries int
	// MaxFutureMonths is handed through to the aggregation pipeline.
	MaxFutureMonths int
}

// Server is the HTTP server serving search reports, health, and metrics.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	aggregator *aggregator.Aggregator
	renderer   *report.Renderer
	metrics    *observability.Metrics
	logger     zerolog.Logger
	cfg        Config
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	agg *aggregator.Aggregator,
	renderer *report.Renderer,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	if cfg.DefaultPerPage <= 0 {
		cfg.DefaultPerPage = 100
	}
	if cfg.MaxPerPage < cfg.DefaultPerPage {
		cfg.MaxPerPage = cfg.DefaultPerPage
	}
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = 10
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	s := &Server{
		aggregator: agg,
		renderer:   renderer,
		metrics:    metrics,
		logger:     logger.With().Str("component", "http-server").Logger(),
		cfg:        cfg,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Router returns the configured chi router. Tests serve requests against it
// directly without binding a listener.
func (s *Server) Router() chi.Router {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.requestLogMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/search", s.searchHandler)

	if s.cfg.MetricsEnabled {
		r.Method(http.MethodGet, s.cfg.MetricsPath, promhttp.Handler())
	}

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
