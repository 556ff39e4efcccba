package researchsquare

import (
	"context"
	"encoding/json"
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
	// DefaultBaseURL is the default Research Square base URL.
	DefaultBaseURL = "https://www.researchsquare.com"

	// DefaultRateLimit is the default rate limit (5 requests per second).
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultWindowDays is the rolling posted-date window: searches cover
	// the last 30 days through tomorrow.
	DefaultWindowDays = 30

	// postedAtLayout is the strict date-time format of the posted_at field.
	postedAtLayout = "2006-01-02 15:04:05"

	// windowLayout is the date format of the postedAfter/postedBefore params.
	windowLayout = "2006-01-02"

	// titleFallback is used when a record omits its title.
	titleFallback = "No Title Available"

	// serverName is the fixed journal label for this source.
	serverName = "Research Square"

	// sourceName is the human-readable name for this source.
	sourceName = "Research Square"
)

// Config holds configuration for the Research Square client.
type Config struct {
	// BaseURL is the Research Square base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// WindowDays is how many days back the posted-date window reaches.
	WindowDays int

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
	if c.WindowDays == 0 {
		c.WindowDays = DefaultWindowDays
	}
}

// Client implements the sources.ArticleSource interface for Research Square.
// Requests are single-shot: transport failures propagate without retry.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
	now        func() time.Time
}

// Ensure Client implements ArticleSource interface.
var _ sources.ArticleSource = (*Client)(nil)

// New creates a new Research Square client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "Helixir-LiteratureWatch/1.0",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// NewWithHTTPClient creates a new Research Square client with a custom HTTP
// client. This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Search queries Research Square for preprints matching the given parameters.
// The request carries an explicit rolling posted-date window (last WindowDays
// days through tomorrow). Records with malformed timestamps are dropped and
// counted.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.FetchResult, error) {
	if !c.config.Enabled {
		return nil, errors.New("researchsquare source is disabled")
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
		Articles:   make([]*domain.Article, 0, len(searchResp.Result.Data)),
		RequestURL: searchURL,
		Source:     domain.SourceTypeResearchSquare,
	}

	for i := range searchResp.Result.Data {
		article, err := c.recordToArticle(&searchResp.Result.Data[i])
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
	return domain.SourceTypeResearchSquare
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the search URL, including the rolling
// posted-date window.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/api/search"

	now := c.now()
	query := url.Values{}
	query.Set("unified", params.Query)
	query.Set("limit", strconv.Itoa(params.ResultsPerPage))
	query.Set("offset", strconv.Itoa(params.Offset()))
	query.Set("postedAfter", now.AddDate(0, 0, -c.config.WindowDays).Format(windowLayout))
	query.Set("postedBefore", now.AddDate(0, 0, 1).Format(windowLayout))
	baseURL.RawQuery = query.Encode()

	return baseURL.String(), nil
}

// recordToArticle normalizes a Research Square record into a domain.Article.
// Timestamps are parsed strictly as "YYYY-MM-DD HH:MM:SS"; a malformed
// timestamp rejects the record. The permalink is built from the article
// identity and version, version defaulting to "1".
func (c *Client) recordToArticle(record *Record) (*domain.Article, error) {
	date, err := time.Parse(postedAtLayout, record.PostedAt)
	if err != nil {
		return nil, domain.NewMalformedRecordError(domain.SourceTypeResearchSquare, "unparseable posted_at: "+record.PostedAt)
	}

	title := strings.TrimSpace(record.Title)
	if title == "" {
		title = titleFallback
	}

	authors, more := domain.FormatAuthors(strings.Split(record.Authors, ","))

	link := domain.LinkNotAvailable
	if identity := strings.TrimSpace(record.ArticleIdentity); identity != "" {
		version := strings.TrimSpace(record.DOIVersion)
		if version == "" {
			version = "1"
		}
		link = fmt.Sprintf("https://www.researchsquare.com/article/%s/v%s", identity, version)
	}

	return &domain.Article{
		Title:       title,
		Authors:     authors,
		MoreAuthors: more,
		Date:        date,
		Source:      domain.SourceTypeResearchSquare,
		Journal:     serverName,
		Link:        link,
	}, nil
}
