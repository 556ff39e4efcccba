package biorxiv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/literature-watch/internal/domain"
	"github.com/helixir/literature-watch/internal/sources"
)

const (
	// DefaultBaseURL is the default bioRxiv API base URL.
	DefaultBaseURL = "https://api.biorxiv.org"

	// DefaultRateLimit is the default rate limit (5 requests per second).
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// dateLayout is the strict date format used by the portal.
	dateLayout = "2006-01-02"

	// serverFallback is used when a record omits the originating server.
	serverFallback = "Unknown Server"

	// titleFallback is used when a record omits its title.
	titleFallback = "No Title Available"

	// sourceName is the human-readable name for this source.
	sourceName = "bioRxiv"
)

// Config holds configuration for the bioRxiv COVID-19 portal client.
type Config struct {
	// BaseURL is the portal API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
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
}

// Client implements the sources.ArticleSource interface for the bioRxiv
// COVID-19 portal. The portal is queried single-shot: transport failures
// propagate without retry.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Ensure Client implements ArticleSource interface.
var _ sources.ArticleSource = (*Client)(nil)

// New creates a new portal client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		// The portal rejects default Go user agents.
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new portal client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries the portal for preprints matching the given parameters.
// Pagination is path-encoded as /covid19/{offset}/{limit} with the query in
// the text parameter. Records with malformed dates are dropped and counted.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.FetchResult, error) {
	if !c.config.Enabled {
		return nil, errors.New("biorxiv source is disabled")
	}

	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	result := &sources.FetchResult{
		Articles:   make([]*domain.Article, 0, len(searchResp.Collection)),
		RequestURL: searchURL,
		Source:     domain.SourceTypeBioRxiv,
	}

	for i := range searchResp.Collection {
		article, err := recordToArticle(&searchResp.Collection[i])
		if err != nil {
			result.Dropped++
			continue
		}
		result.Articles = append(result.Articles, article)
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeBioRxiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the portal search URL with path-encoded
// offset/limit pagination.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") +
		fmt.Sprintf("/covid19/%d/%d", params.Offset(), params.ResultsPerPage)

	query := url.Values{}
	query.Set("text", params.Query)
	baseURL.RawQuery = query.Encode()

	return baseURL.String(), nil
}

// recordToArticle normalizes a portal record into a domain.Article.
// Dates are parsed strictly as YYYY-MM-DD; a malformed date rejects the
// record.
func recordToArticle(record *Record) (*domain.Article, error) {
	date, err := time.Parse(dateLayout, record.Date)
	if err != nil {
		return nil, domain.NewMalformedRecordError(domain.SourceTypeBioRxiv, "unparseable date: "+record.Date)
	}

	title := strings.TrimSpace(record.Title)
	if title == "" {
		title = titleFallback
	}

	server := strings.TrimSpace(record.Server)
	if server == "" {
		server = serverFallback
	}

	names := make([]string, 0, len(record.Authors))
	for _, a := range record.Authors {
		names = append(names, a.Name)
	}
	authors, more := domain.FormatAuthors(names)

	link := domain.LinkNotAvailable
	if doi := strings.TrimSpace(record.DOI); doi != "" {
		link = "https://doi.org/" + doi
	}

	return &domain.Article{
		Title:       title,
		Authors:     authors,
		MoreAuthors: more,
		Date:        date,
		Source:      domain.SourceTypeBioRxiv,
		Journal:     server,
		Link:        link,
	}, nil
}
