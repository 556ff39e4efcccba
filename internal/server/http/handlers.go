package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/literature-watch/internal/aggregator"
	"github.com/helixir/literature-watch/internal/domain"
)

var validate = validator.New()

// searchRequest is the parsed and validated form of GET /search query params.
// Repeated q parameters become separate queries in one aggregation call.
type searchRequest struct {
	Queries   []string `validate:"required,min=1,dive,min=1"`
	Page      int      `validate:"min=1"`
	PerPage   int      `validate:"min=1"`
	Timeframe string   `validate:"omitempty,oneof=today week month"`
}

// searchHandler handles GET /search. It runs the multi-source aggregation
// for the requested queries and writes the merged result as an HTML report.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseSearchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	articles, err := s.aggregator.Aggregate(r.Context(), aggregator.AggregateParams{
		Queries:         req.Queries,
		Page:            req.Page,
		ResultsPerPage:  req.PerPage,
		Timeframe:       domain.Timeframe(req.Timeframe),
		MaxFutureMonths: s.cfg.MaxFutureMonths,
	})
	if err != nil {
		var unavailable *domain.SourceUnavailableError
		if errors.As(err, &unavailable) {
			s.logger.Error().Err(err).
				Str("source", string(unavailable.Source)).
				Strs("queries", req.Queries).
				Msg("source unavailable during aggregation")
			writeError(w, http.StatusBadGateway, fmt.Sprintf("source %s unavailable", unavailable.Source))
			return
		}
		s.logger.Error().Err(err).Strs("queries", req.Queries).Msg("aggregation failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	// Render into a buffer first so a template failure does not leave a
	// half-written 200 response.
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, articles, req.Queries, req.Page, domain.Timeframe(req.Timeframe)); err != nil {
		s.logger.Error().Err(err).Msg("report rendering failed")
		writeError(w, http.StatusInternalServerError, "report rendering failed")
		return
	}
	s.metrics.ReportsRendered.Inc()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// parseSearchRequest extracts and validates search parameters from the request.
func (s *Server) parseSearchRequest(r *http.Request) (*searchRequest, error) {
	q := r.URL.Query()

	req := &searchRequest{
		Page:      1,
		PerPage:   s.cfg.DefaultPerPage,
		Timeframe: strings.TrimSpace(q.Get("timeframe")),
	}

	for _, raw := range q["q"] {
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			req.Queries = append(req.Queries, trimmed)
		}
	}
	if len(req.Queries) == 0 {
		return nil, errors.New("at least one non-empty q parameter is required")
	}
	if len(req.Queries) > s.cfg.MaxQueries {
		return nil, fmt.Errorf("at most %d q parameters are allowed", s.cfg.MaxQueries)
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("page must be an integer, got %q", raw)
		}
		req.Page = page
	}

	if raw := q.Get("per_page"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("per_page must be an integer, got %q", raw)
		}
		req.PerPage = perPage
	}
	if req.PerPage > s.cfg.MaxPerPage {
		return nil, fmt.Errorf("per_page must be at most %d, got %d", s.cfg.MaxPerPage, req.PerPage)
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid %s parameter", strings.ToLower(verrs[0].Field()))
		}
		return nil, err
	}

	return req, nil
}
