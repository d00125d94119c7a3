package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ISBNPlaceholder marks where the identifier goes in BaseURL.
const ISBNPlaceholder = "{isbn}"

// Config holds ingestion configuration.
type Config struct {
	BaseURL         string        `yaml:"base_url"`
	InputFile       string        `yaml:"input_file"`
	OutputFile      string        `yaml:"output_file"`
	OutputFormat    string        `yaml:"output_format"` // csv, json, or dual
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max"`
	UserAgent       string        `yaml:"user_agent"`
	DedupeMaxSize   int           `yaml:"dedupe_max_size"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	Verbose         bool          `yaml:"verbose"`
}

// DefaultConfig returns defaults matching the public Open Library endpoint.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://openlibrary.org/isbn/{isbn}.json",
		InputFile:       "books-isbns.txt",
		OutputFile:      "output/books.csv",
		OutputFormat:    "csv",
		Timeout:         2 * time.Second,
		MaxRetries:      0,
		RetryBackoff:    200 * time.Millisecond,
		RetryBackoffMax: 2 * time.Second,
		UserAgent:       "go-isbn-stats/1.0 (+https://github.com/aluiziolira/go-isbn-stats)",
		DedupeMaxSize:   10000,
		MetricsAddr:     "",
		Verbose:         false,
	}
}

// LookupURL renders BaseURL for one ISBN.
func (c *Config) LookupURL(isbn string) string {
	return strings.ReplaceAll(c.BaseURL, ISBNPlaceholder, url.PathEscape(isbn))
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if !strings.Contains(c.BaseURL, ISBNPlaceholder) {
		return fmt.Errorf("base URL must contain the %s placeholder", ISBNPlaceholder)
	}

	parsedURL, err := url.Parse(strings.ReplaceAll(c.BaseURL, ISBNPlaceholder, "0"))
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.InputFile == "" {
		return fmt.Errorf("input file cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
