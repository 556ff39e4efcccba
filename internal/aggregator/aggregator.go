// Package aggregator runs the multi-source, multi-query search pipeline:
// fetch, validity filter, color, timeframe filter, then cross-query merge.
package aggregator

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/literature-watch/internal/domain"
	"github.com/helixir/literature-watch/internal/observability"
	"github.com/helixir/literature-watch/internal/recency"
	"github.com/helixir/literature-watch/internal/sources"
)

const (
	// DefaultResultsPerPage is the per-source page size when the caller
	// does not specify one.
	DefaultResultsPerPage = 100

	// DefaultMaxFutureMonths bounds how far in the future an article date
	// may lie before the validity filter drops it.
	DefaultMaxFutureMonths = 6
)

// AggregateParams are the parameters for one aggregation call.
type AggregateParams struct {
	// Queries is the ordered list of search queries. Order matters: it is
	// the provenance order recorded in MatchingQueries.
	Queries []string

	// Page is the 1-based page number applied to every source.
	Page int

	// ResultsPerPage is the per-source page size.
	ResultsPerPage int

	// Timeframe restricts results to a coarse recency window. The zero
	// value means all time.
	Timeframe domain.Timeframe

	// MaxFutureMonths bounds the future end of the validity window.
	MaxFutureMonths int
}

// applyDefaults fills in unset parameters.
func (p *AggregateParams) applyDefaults() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.ResultsPerPage <= 0 {
		p.ResultsPerPage = DefaultResultsPerPage
	}
	if p.MaxFutureMonths <= 0 {
		p.MaxFutureMonths = DefaultMaxFutureMonths
	}
}

// Aggregator coordinates the search pipeline across the registered sources.
//
// Sources are queried sequentially in registration order, and queries are
// processed in caller order. This is deliberate: first-seen insertion order
// is the tie-break for equal dates in the merged sort, so determinism
// requires a fixed traversal order.
type Aggregator struct {
	registry *sources.Registry
	metrics  *observability.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates an Aggregator over the given source registry.
func New(registry *sources.Registry, metrics *observability.Metrics, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		metrics:  metrics,
		logger:   logger.With().Str("component", "aggregator").Logger(),
		now:      time.Now,
	}
}

// SearchArticles runs the single-query pipeline: fetch from every enabled
// source, drop articles outside the validity window, assign recency colors,
// then apply the timeframe filter.
//
// Any source failure fails the whole call: a query either aggregates fully
// or not at all. Malformed records never do; they are dropped inside the
// adapters and surface only as counters.
func (a *Aggregator) SearchArticles(ctx context.Context, query string, params AggregateParams) ([]*domain.Article, error) {
	params.applyDefaults()
	now := a.now()

	searchParams := sources.SearchParams{
		Query:          query,
		Page:           params.Page,
		ResultsPerPage: params.ResultsPerPage,
		Timeframe:      params.Timeframe,
	}

	var articles []*domain.Article
	for _, source := range a.registry.EnabledSources() {
		st := source.SourceType()
		logger := observability.WithSearchContext(a.logger, query, string(st))
		a.metrics.SearchesStarted.WithLabelValues(string(st)).Inc()

		result, err := source.Search(ctx, searchParams)
		if err != nil {
			a.metrics.SearchesFailed.WithLabelValues(string(st)).Inc()
			logger.Error().Err(err).Msg("source search failed")
			return nil, domain.NewSourceUnavailableError(st, err)
		}

		a.metrics.SearchesCompleted.WithLabelValues(string(st)).Inc()
		a.metrics.SearchDuration.WithLabelValues(string(st)).Observe(result.Duration.Seconds())
		if result.Dropped > 0 {
			a.metrics.RecordsDropped.WithLabelValues(string(st)).Add(float64(result.Dropped))
		}

		kept := 0
		for _, article := range result.Articles {
			if !recency.IsValidDate(article.Date, now, params.MaxFutureMonths) {
				continue
			}
			color := recency.ColorFor(article.Source, article.Date, now)
			article.ColorTier = color.Tier
			article.ColorHex = color.Hex
			articles = append(articles, article)
			kept++
		}

		a.metrics.ArticlesFetched.WithLabelValues(string(st)).Add(float64(kept))
		logger.Debug().
			Str("request_url", result.RequestURL).
			Int("fetched", len(result.Articles)).
			Int("kept", kept).
			Int("dropped", result.Dropped).
			Msg("source search completed")
	}

	return recency.FilterByTimeframe(articles, params.Timeframe, now), nil
}

// Aggregate runs the full pipeline for every query, deduplicates by title
// across queries, and returns the merged articles sorted by date descending
// (ties broken by first-seen order).
//
// Deduplication keys on the canonical Title field: exact string match, no
// case folding. The first occurrence of a title wins; later occurrences
// only extend its MatchingQueries list, repeats of the same query string
// included.
func (a *Aggregator) Aggregate(ctx context.Context, params AggregateParams) ([]*domain.Article, error) {
	params.applyDefaults()

	seen := make(map[string]*domain.Article)
	var merged []*domain.Article

	for _, query := range params.Queries {
		articles, err := a.SearchArticles(ctx, query, params)
		if err != nil {
			return nil, err
		}

		for _, article := range articles {
			if existing, ok := seen[article.Title]; ok {
				existing.MatchingQueries = append(existing.MatchingQueries, query)
				a.metrics.DuplicateTitles.Inc()
				continue
			}
			article.MatchingQueries = []string{query}
			seen[article.Title] = article
			merged = append(merged, article)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})

	a.logger.Info().
		Strs("queries", params.Queries).
		Int("page", params.Page).
		Str("timeframe", string(params.Timeframe)).
		Int("total", len(merged)).
		Msg("aggregation completed")

	return merged, nil
}
