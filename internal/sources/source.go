// Package sources provides interfaces and shared plumbing for literature
// search API clients.
//
// Each search API (PubMed, the bioRxiv COVID-19 portal, Research Square)
// implements the ArticleSource interface. Adapters normalize raw records
// into domain.Article values as they parse the response; malformed records
// are dropped and counted rather than failing the batch.
//
// Example usage:
//
//	source := pubmed.New(cfg)
//	params := sources.SearchParams{Query: "long covid", Page: 1, ResultsPerPage: 100}
//	result, err := source.Search(ctx, params)
package sources

import (
	"context"
	"time"

	"github.com/helixir/literature-watch/internal/domain"
)

// SearchParams defines the parameters for one source search request.
type SearchParams struct {
	// Query is the search query string (required).
	Query string

	// Page is the 1-based page number. Adapters translate it to the
	// source's offset scheme as (Page-1)*ResultsPerPage.
	Page int

	// ResultsPerPage limits the number of records requested per page.
	ResultsPerPage int

	// Timeframe is the coarse recency window the caller will filter by.
	// Only Research Square uses it when building its rolling posted-date
	// window; the other adapters ignore it.
	Timeframe domain.Timeframe
}

// Offset returns the zero-based record offset for the requested page.
func (p SearchParams) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.ResultsPerPage
}

// FetchResult contains the normalized articles from one source search.
// The request URL travels with the result so diagnostics never depend on
// process-wide state.
type FetchResult struct {
	// Articles contains the normalized records, in response order.
	Articles []*domain.Article

	// RequestURL is the fully-constructed URL of the search request,
	// recorded for diagnostic display.
	RequestURL string

	// Dropped counts raw records skipped because they failed normalization.
	Dropped int

	// Source identifies which adapter produced this result.
	Source domain.SourceType

	// Duration is the time taken to execute the search, including network
	// latency and response parsing.
	Duration time.Duration
}

// ArticleSource defines the interface that all search API adapters implement.
type ArticleSource interface {
	// Search queries the source and returns normalized articles.
	// A transport or API failure is returned as a SourceUnavailableError;
	// malformed individual records are dropped and counted instead.
	Search(ctx context.Context, params SearchParams) (*FetchResult, error)

	// SourceType returns the type identifier for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this source.
	Name() string

	// IsEnabled returns whether this source participates in searches.
	IsEnabled() bool
}
