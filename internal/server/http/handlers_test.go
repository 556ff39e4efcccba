package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/literature-watch/internal/aggregator"
	"github.com/helixir/literature-watch/internal/domain"
	"github.com/helixir/literature-watch/internal/observability"
	"github.com/helixir/literature-watch/internal/report"
	"github.com/helixir/literature-watch/internal/sources"
)

// fakeSource serves one canned article per query, or fails.
type fakeSource struct {
	fail bool
}

func (f *fakeSource) Search(ctx context.Context, params sources.SearchParams) (*sources.FetchResult, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return &sources.FetchResult{
		Articles: []*domain.Article{{
			Title:   "Result for " + params.Query,
			Authors: []string{"Smith J"},
			Date:    time.Now().AddDate(0, 0, -1),
			Source:  domain.SourceTypePubMed,
			Journal: "Nature Medicine",
			PMID:    "38012345",
			Link:    domain.LinkNotAvailable,
		}},
		Source: domain.SourceTypePubMed,
	}, nil
}

func (f *fakeSource) SourceType() domain.SourceType { return domain.SourceTypePubMed }
func (f *fakeSource) Name() string                  { return "PubMed" }
func (f *fakeSource) IsEnabled() bool               { return true }

// newTestServer wires a full server over a fake source registry.
func newTestServer(t *testing.T, src sources.ArticleSource) *Server {
	t.Helper()

	registry := sources.NewRegistry()
	registry.Register(src)

	metrics := observability.NewMetricsWithRegistry("test", prometheus.NewRegistry())
	agg := aggregator.New(registry, metrics, zerolog.Nop())

	return NewServer(Config{
		Address:        "127.0.0.1:0",
		DefaultPerPage: 100,
		MaxPerPage:     200,
		MaxQueries:     5,
	}, agg, report.NewRenderer(), metrics, zerolog.Nop())
}

func doRequest(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestSearchHandler(t *testing.T) {
	t.Run("renders HTML report", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/search?q=covid")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "Search terms: covid")
		assert.Contains(t, rec.Body.String(), "Result for covid")
	})

	t.Run("multiple queries are merged", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/search?q=covid&q=long+covid")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Search terms: covid, long covid")
		assert.Contains(t, rec.Body.String(), "Result for covid")
		assert.Contains(t, rec.Body.String(), "Result for long covid")
	})

	t.Run("missing query parameter", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/search")

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "q parameter")
	})

	t.Run("blank query parameter", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/search?q=+")

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too many queries", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/search?q=a&q=b&q=c&q=d&q=e&q=f")

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid timeframe", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/search?q=covid&timeframe=year")

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("valid timeframes accepted", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		for _, tf := range []string{"today", "week", "month"} {
			rec := doRequest(t, srv, "/search?q=covid&timeframe="+tf)
			assert.Equal(t, http.StatusOK, rec.Code, "timeframe %q", tf)
		}
	})

	t.Run("non-numeric page", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/search?q=covid&page=two")

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("zero page", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/search?q=covid&page=0")

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("per_page above the cap", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/search?q=covid&per_page=500")

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("source failure maps to bad gateway", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{fail: true})
		rec := doRequest(t, srv, "/search?q=covid")

		require.Equal(t, http.StatusBadGateway, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "pubmed")
	})
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(t, &fakeSource{})
	rec := doRequest(t, srv, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestCorrelationIDMiddleware(t *testing.T) {
	t.Run("generates an ID when absent", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/healthz")

		assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("echoes an existing ID", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Correlation-ID", "abc-123")
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))
	})
}

func TestRequestLogMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	registry := sources.NewRegistry()
	registry.Register(&fakeSource{})
	metrics := observability.NewMetricsWithRegistry("test", prometheus.NewRegistry())
	agg := aggregator.New(registry, metrics, logger)

	srv := NewServer(Config{
		Address:        "127.0.0.1:0",
		DefaultPerPage: 100,
		MaxPerPage:     200,
		MaxQueries:     5,
	}, agg, report.NewRenderer(), metrics, logger)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-42")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	logLine := buf.String()
	assert.Contains(t, logLine, `"correlation_id":"corr-42"`)
	assert.Contains(t, logLine, `"request_id":`)
	assert.Contains(t, logLine, `"path":"/healthz"`)
	assert.Contains(t, logLine, "request completed")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("disabled by default config", func(t *testing.T) {
		srv := newTestServer(t, &fakeSource{})
		rec := doRequest(t, srv, "/metrics")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("served when enabled", func(t *testing.T) {
		registry := sources.NewRegistry()
		registry.Register(&fakeSource{})
		metrics := observability.NewMetricsWithRegistry("test", prometheus.NewRegistry())
		agg := aggregator.New(registry, metrics, zerolog.Nop())

		srv := NewServer(Config{
			Address:        "127.0.0.1:0",
			DefaultPerPage: 100,
			MaxPerPage:     200,
			MaxQueries:     5,
			MetricsEnabled: true,
		}, agg, report.NewRenderer(), metrics, zerolog.Nop())

		rec := doRequest(t, srv, "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
