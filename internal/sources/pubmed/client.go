package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/literature-watch/internal/domain"
	"github.com/helixir/literature-watch/internal/sources"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	// With an API key, the limit increases to 10 requests/second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the total request budget, the initial attempt
	// included. PubMed is the only source that retries; the E-utilities
	// endpoints intermittently return 500s under load.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the delay before the first retry. It doubles on
	// each subsequent attempt.
	DefaultRetryDelay = time.Second

	// Placeholder values for records missing expected fields.
	titleFallback   = "No Title Available"
	journalFallback = "Unknown Journal"
	pmidFallback    = "Unknown PMID"

	// publishedStatus is the history PubStatus tag used as the online
	// publication date.
	publishedStatus = "pubmed"

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	// Optional but recommended for production use.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxAttempts is the total request budget, the initial attempt included.
	// Defaults to DefaultMaxAttempts if zero; 1 makes the client single-shot.
	MaxAttempts int

	// RetryDelay is the initial retry backoff delay.
	RetryDelay time.Duration

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// Client implements the sources.ArticleSource interface for PubMed.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Compile-time check that Client implements ArticleSource.
var _ sources.ArticleSource = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:     cfg.Timeout,
		RateLimit:   cfg.RateLimit,
		BurstSize:   cfg.BurstSize,
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
		UserAgent:   "Helixir-LiteratureWatch/1.0 (mailto:support@helixir.io)",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries PubMed for articles matching the given parameters.
// It performs a two-step search:
//  1. esearch.fcgi - retrieves PMIDs matching the query, sorted by date
//  2. efetch.fcgi - retrieves full article metadata for the PMIDs
//
// Both steps share the retry policy. Records that fail normalization are
// dropped and counted in FetchResult.Dropped.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.FetchResult, error) {
	if !c.config.Enabled {
		return nil, errors.New("pubmed source is disabled")
	}

	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	ids, err := c.esearch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	result := &sources.FetchResult{
		Articles:   []*domain.Article{},
		RequestURL: searchURL,
		Source:     domain.SourceTypePubMed,
	}

	if len(ids) == 0 {
		result.Duration = time.Since(startTime)
		return result, nil
	}

	articleSet, err := c.FetchDetails(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	for i := range articleSet.Articles {
		article, err := recordToArticle(&articleSet.Articles[i])
		if err != nil {
			result.Dropped++
			continue
		}
		result.Articles = append(result.Articles, article)
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// FetchDetails resolves a list of PMIDs to full bibliographic records via
// efetch.fcgi, under the same retry policy as the search step.
func (c *Client) FetchDetails(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var result PubmedArticleSet
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing XML response: %w", err)
	}

	return &result, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the esearch.fcgi URL for the given parameters.
// Results are sorted by date so pagination tracks recency.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	u, err := url.Parse(c.config.BaseURL + "/esearch.fcgi")
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("term", params.Query)
	q.Set("retmax", strconv.Itoa(params.ResultsPerPage))
	q.Set("sort", "date")
	q.Set("retstart", strconv.Itoa(params.Offset()))
	q.Set("retmode", "json")
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// esearch executes the search request and returns the matching PMIDs.
func (c *Client) esearch(ctx context.Context, searchURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var searchResp ESearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return searchResp.ESearchResult.IDList, nil
}

// recordToArticle normalizes a PubmedArticle into a domain.Article.
// The publication date comes from the history entry tagged with the
// "pubmed" status; when absent, the maximum of all parseable history dates
// is used instead. Records without a usable history date are rejected.
func recordToArticle(record *PubmedArticle) (*domain.Article, error) {
	date, err := extractHistoryDate(record.PubmedData.History)
	if err != nil {
		return nil, err
	}

	article := record.MedlineCitation.Article

	title := strings.TrimSpace(article.ArticleTitle)
	if title == "" {
		title = titleFallback
	}

	journal := strings.TrimSpace(article.Journal.Title)
	if journal == "" {
		journal = journalFallback
	}

	pmid := strings.TrimSpace(record.MedlineCitation.PMID.Value)
	if pmid == "" {
		pmid = pmidFallback
	}

	authors, more := domain.FormatAuthors(formatAuthorNames(article.AuthorList))

	link := domain.LinkNotAvailable
	if doi := extractDOI(record.PubmedData.ArticleIdList); doi != "" {
		link = "https://doi.org/" + doi
	}

	return &domain.Article{
		Title:       title,
		Authors:     authors,
		MoreAuthors: more,
		Date:        date,
		Source:      domain.SourceTypePubMed,
		Journal:     journal,
		PMID:        pmid,
		Link:        link,
	}, nil
}

// extractHistoryDate resolves the article's online publication date from
// its history entries.
func extractHistoryDate(history *History) (time.Time, error) {
	if history == nil || len(history.PubMedPubDates) == 0 {
		return time.Time{}, domain.NewMalformedRecordError(domain.SourceTypePubMed, "no publication history")
	}

	for _, d := range history.PubMedPubDates {
		if d.PubStatus == publishedStatus {
			if t, ok := parseHistoryDate(d); ok {
				return t, nil
			}
		}
	}

	// Fall back to the most recent parseable history date.
	var latest time.Time
	found := false
	for _, d := range history.PubMedPubDates {
		if t, ok := parseHistoryDate(d); ok {
			if !found || t.After(latest) {
				latest = t
				found = true
			}
		}
	}
	if !found {
		return time.Time{}, domain.NewMalformedRecordError(domain.SourceTypePubMed, "no parseable history date")
	}
	return latest, nil
}

// parseHistoryDate parses a history date entry. Missing month or day
// components default to 1.
func parseHistoryDate(d PubMedPubDate) (time.Time, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(d.Year))
	if err != nil {
		return time.Time{}, false
	}

	month := 1
	if m := strings.TrimSpace(d.Month); m != "" {
		month, err = strconv.Atoi(m)
		if err != nil || month < 1 || month > 12 {
			return time.Time{}, false
		}
	}

	day := 1
	if dd := strings.TrimSpace(d.Day); dd != "" {
		day, err = strconv.Atoi(dd)
		if err != nil || day < 1 || day > 31 {
			return time.Time{}, false
		}
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// formatAuthorNames formats PubMed authors as "LastName Initials".
func formatAuthorNames(list *AuthorList) []string {
	if list == nil {
		return nil
	}

	names := make([]string, 0, len(list.Authors))
	for _, a := range list.Authors {
		if a.ValidYN == "N" {
			continue
		}
		if a.CollectiveName != "" {
			names = append(names, a.CollectiveName)
			continue
		}
		name := strings.TrimSpace(strings.TrimSpace(a.LastName) + " " + strings.TrimSpace(a.Initials))
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

// extractDOI returns the first DOI-typed identifier from the article id list.
func extractDOI(ids ArticleIdList) string {
	for _, id := range ids.ArticleIds {
		if id.IdType == "doi" {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}
