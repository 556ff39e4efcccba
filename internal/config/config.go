// Package config provides configuration management for the literature watch service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the literature watch service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Search contains aggregation pipeline settings.
	Search SearchConfig `mapstructure:"search"`
	// Sources contains search API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// Port is the HTTP server port (default: 8080).
	Port int `mapstructure:"port"`
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// SearchConfig holds aggregation pipeline settings.
type SearchConfig struct {
	// ResultsPerPage is the default per-source page size.
	ResultsPerPage int `mapstructure:"results_per_page"`
	// MaxResultsPerPage caps the per-source page size a request may ask for.
	MaxResultsPerPage int `mapstructure:"max_results_per_page"`
	// MaxQueries caps the number of queries in one aggregation call.
	MaxQueries int `mapstructure:"max_queries"`
	// MaxFutureMonths bounds how far in the future an article date may lie
	// before validity filtering drops it.
	MaxFutureMonths int `mapstructure:"max_future_months"`
}

// SourcesConfig holds configuration for all search APIs.
type SourcesConfig struct {
	// PubMed contains NCBI E-utilities settings.
	PubMed SourceConfig `mapstructure:"pubmed"`
	// BioRxiv contains bioRxiv COVID-19 portal settings.
	BioRxiv SourceConfig `mapstructure:"biorxiv"`
	// ResearchSquare contains Research Square settings.
	ResearchSquare SourceConfig `mapstructure:"researchsquare"`
}

// SourceConfig holds configuration for a single search API.
type SourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key, loaded exclusively from the environment
	// (e.g. LITWATCH_SOURCES_PUBMED_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxAttempts is the total request budget per call, the initial attempt
	// included. Only PubMed retries; the preprint sources keep this at 1.
	MaxAttempts int `mapstructure:"max_attempts"`
	// RetryDelay is the initial retry backoff delay.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LITWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/literature-watch")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Sources.PubMed.APIKey = os.Getenv("LITWATCH_SOURCES_PUBMED_API_KEY")
	cfg.Sources.BioRxiv.APIKey = os.Getenv("LITWATCH_SOURCES_BIORXIV_API_KEY")
	cfg.Sources.ResearchSquare.APIKey = os.Getenv("LITWATCH_SOURCES_RESEARCHSQUARE_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Search defaults
	v.SetDefault("search.results_per_page", 100)
	v.SetDefault("search.max_results_per_page", 200)
	v.SetDefault("search.max_queries", 10)
	v.SetDefault("search.max_future_months", 6)

	// Source defaults - PubMed
	v.SetDefault("sources.pubmed.enabled", true)
	v.SetDefault("sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.pubmed.timeout", "30s")
	v.SetDefault("sources.pubmed.rate_limit", 3.0) // NCBI recommends max 3 req/sec without API key
	v.SetDefault("sources.pubmed.max_attempts", 3)
	v.SetDefault("sources.pubmed.retry_delay", "1s")

	// Source defaults - bioRxiv COVID-19 portal (single-shot, no retry)
	v.SetDefault("sources.biorxiv.enabled", true)
	v.SetDefault("sources.biorxiv.base_url", "https://api.biorxiv.org")
	v.SetDefault("sources.biorxiv.timeout", "30s")
	v.SetDefault("sources.biorxiv.rate_limit", 5.0)
	v.SetDefault("sources.biorxiv.max_attempts", 1)

	// Source defaults - Research Square (single-shot, no retry)
	v.SetDefault("sources.researchsquare.enabled", true)
	v.SetDefault("sources.researchsquare.base_url", "https://www.researchsquare.com")
	v.SetDefault("sources.researchsquare.timeout", "30s")
	v.SetDefault("sources.researchsquare.rate_limit", 5.0)
	v.SetDefault("sources.researchsquare.max_attempts", 1)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.Port)
	}

	if c.Search.ResultsPerPage <= 0 {
		return fmt.Errorf("search.results_per_page must be positive, got %d", c.Search.ResultsPerPage)
	}
	if c.Search.MaxResultsPerPage < c.Search.ResultsPerPage {
		return fmt.Errorf("search.max_results_per_page (%d) must be at least search.results_per_page (%d)",
			c.Search.MaxResultsPerPage, c.Search.ResultsPerPage)
	}
	if c.Search.MaxQueries <= 0 {
		return fmt.Errorf("search.max_queries must be positive, got %d", c.Search.MaxQueries)
	}
	if c.Search.MaxFutureMonths < 0 {
		return fmt.Errorf("search.max_future_months must not be negative, got %d", c.Search.MaxFutureMonths)
	}

	for name, src := range map[string]SourceConfig{
		"pubmed":         c.Sources.PubMed,
		"biorxiv":        c.Sources.BioRxiv,
		"researchsquare": c.Sources.ResearchSquare,
	} {
		if !src.Enabled {
			continue
		}
		if src.BaseURL == "" {
			return fmt.Errorf("sources.%s.base_url is required when the source is enabled", name)
		}
		if src.RateLimit <= 0 {
			return fmt.Errorf("sources.%s.rate_limit must be positive, got %g", name, src.RateLimit)
		}
		if src.MaxAttempts < 1 {
			return fmt.Errorf("sources.%s.max_attempts must be at least 1, got %d", name, src.MaxAttempts)
		}
	}

	return nil
}
