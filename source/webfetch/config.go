package webfetch

import (
	"fmt"
	"time"

	"github.com/c360studio/semfetch/source/weburl"
)

// Defaults applied when a Config field is unset.
const (
	DefaultMaxURLsPerRequest   = 20
	DefaultTimeoutMs           = 30000
	DefaultMaxContentKB        = 1024
	DefaultUserAgent           = "Mozilla/5.0 (compatible; semfetch/1.0)"
	DefaultMaxRedirects        = 3
	DefaultBatchSize           = 5
	DefaultBatchDelayMs        = 200
	DefaultHousekeepingPattern = "@every 5m"
)

// Config holds the fetch tunables. It is embedded in the service
// configuration file and may be replaced at runtime.
type Config struct {
	// MaxURLsPerRequest caps the number of URLs in one batch request.
	MaxURLsPerRequest int `json:"max_urls_per_request" yaml:"max_urls_per_request"`

	// DefaultTimeoutMs bounds each fetch attempt.
	DefaultTimeoutMs int `json:"default_timeout_ms" yaml:"default_timeout_ms"`

	// DefaultMaxContentKB is the body ceiling when a request sets none.
	DefaultMaxContentKB int `json:"default_max_content_kb" yaml:"default_max_content_kb"`

	// AllowedDomains restricts fetching to matching hosts. Empty or ["*"] allows all.
	AllowedDomains []string `json:"allowed_domains" yaml:"allowed_domains"`

	// BlocklistedDomains are always rejected.
	BlocklistedDomains []string `json:"blocklisted_domains" yaml:"blocklisted_domains"`

	// ConvertToMarkdown converts HTML bodies to Markdown. Default true.
	ConvertToMarkdown *bool `json:"convert_to_markdown,omitempty" yaml:"convert_to_markdown,omitempty"`

	UserAgent    string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	MaxRedirects *int   `json:"max_redirects,omitempty" yaml:"max_redirects,omitempty"`
	BatchSize    int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	BatchDelayMs *int   `json:"batch_delay_ms,omitempty" yaml:"batch_delay_ms,omitempty"`

	// Housekeeping is the cron schedule for cache and rate limiter sweeps.
	Housekeeping string `json:"housekeeping,omitempty" yaml:"housekeeping,omitempty"`
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() Config {
	convert := true
	redirects := DefaultMaxRedirects
	delay := DefaultBatchDelayMs
	return Config{
		MaxURLsPerRequest:   DefaultMaxURLsPerRequest,
		DefaultTimeoutMs:    DefaultTimeoutMs,
		DefaultMaxContentKB: DefaultMaxContentKB,
		AllowedDomains:      []string{"*"},
		BlocklistedDomains:  []string{},
		ConvertToMarkdown:   &convert,
		UserAgent:           DefaultUserAgent,
		MaxRedirects:        &redirects,
		BatchSize:           DefaultBatchSize,
		BatchDelayMs:        &delay,
		Housekeeping:        DefaultHousekeepingPattern,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MaxURLsPerRequest < 0 {
		return fmt.Errorf("max_urls_per_request must be non-negative")
	}
	if c.DefaultTimeoutMs < 0 {
		return fmt.Errorf("default_timeout_ms must be non-negative")
	}
	if c.DefaultMaxContentKB < 0 {
		return fmt.Errorf("default_max_content_kb must be non-negative")
	}
	if c.MaxRedirects != nil && *c.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects must be non-negative")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be non-negative")
	}
	if c.BatchDelayMs != nil && *c.BatchDelayMs < 0 {
		return fmt.Errorf("batch_delay_ms must be non-negative")
	}
	return nil
}

// GetMaxURLsPerRequest returns the batch URL cap with default.
func (c *Config) GetMaxURLsPerRequest() int {
	if c.MaxURLsPerRequest <= 0 {
		return DefaultMaxURLsPerRequest
	}
	return c.MaxURLsPerRequest
}

// GetDefaultTimeout returns the per-attempt timeout.
func (c *Config) GetDefaultTimeout() time.Duration {
	if c.DefaultTimeoutMs <= 0 {
		return DefaultTimeoutMs * time.Millisecond
	}
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}

// GetMaxContentBytes returns the default body ceiling in bytes.
func (c *Config) GetMaxContentBytes() int {
	if c.DefaultMaxContentKB <= 0 {
		return DefaultMaxContentKB * 1024
	}
	return c.DefaultMaxContentKB * 1024
}

// GetConvertToMarkdown returns whether HTML is converted by default.
func (c *Config) GetConvertToMarkdown() bool {
	if c.ConvertToMarkdown == nil {
		return true
	}
	return *c.ConvertToMarkdown
}

// GetUserAgent returns the user agent with default.
func (c *Config) GetUserAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

// GetMaxRedirects returns the redirect cap with default.
func (c *Config) GetMaxRedirects() int {
	if c.MaxRedirects == nil {
		return DefaultMaxRedirects
	}
	return *c.MaxRedirects
}

// GetBatchSize returns the number of URLs fetched concurrently.
func (c *Config) GetBatchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// GetBatchDelay returns the pause between batches.
func (c *Config) GetBatchDelay() time.Duration {
	if c.BatchDelayMs == nil {
		return DefaultBatchDelayMs * time.Millisecond
	}
	return time.Duration(*c.BatchDelayMs) * time.Millisecond
}

// GetHousekeeping returns the housekeeping cron schedule.
func (c *Config) GetHousekeeping() string {
	if c.Housekeeping == "" {
		return DefaultHousekeepingPattern
	}
	return c.Housekeeping
}

// Policy returns the validator domain policy for this configuration.
func (c *Config) Policy() weburl.Policy {
	return weburl.Policy{
		AllowedDomains: c.AllowedDomains,
		BlockedDomains: c.BlocklistedDomains,
	}
}
