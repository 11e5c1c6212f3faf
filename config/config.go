// Package config provides configuration loading and management for semfetch.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semfetch/source/webfetch"
)

// Config represents the complete semfetch configuration
type Config struct {
	Fetch   webfetch.Config `yaml:"fetch"`
	Logging LoggingConfig   `yaml:"logging"`
	NATS    NATSConfig      `yaml:"nats"`
	HTTP    HTTPConfig      `yaml:"http"`
	Metrics MetricsConfig   `yaml:"metrics"`
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `yaml:"level"`
	// Format is text or json (default: text)
	Format string `yaml:"format"`
}

// NATSConfig configures the optional NATS connection used by `semfetch serve`
type NATSConfig struct {
	// URL is the server URL list, comma separated. Empty disables the
	// url-fetcher consumer.
	URL string `yaml:"url"`
}

// HTTPConfig configures the HTTP API served by `semfetch serve`
type HTTPConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `yaml:"addr"`
	// Prefix is the path prefix for the fetch API (default: /api/fetch/)
	Prefix string `yaml:"prefix"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Fetch: webfetch.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		HTTP: HTTPConfig{
			Addr:   ":8080",
			Prefix: "/api/fetch/",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if !strings.HasPrefix(c.HTTP.Prefix, "/") || !strings.HasSuffix(c.HTTP.Prefix, "/") {
		return fmt.Errorf("http.prefix must start and end with /")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger builds a logger writing to w in the configured format.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := readInto(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// readInto decodes the YAML file at path into config.
func readInto(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for set values).
// Domain lists are replaced whenever other carries them, so an empty list in a
// later layer clears an earlier one.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Fetch
	f, o := &c.Fetch, other.Fetch
	if o.MaxURLsPerRequest != 0 {
		f.MaxURLsPerRequest = o.MaxURLsPerRequest
	}
	if o.DefaultTimeoutMs != 0 {
		f.DefaultTimeoutMs = o.DefaultTimeoutMs
	}
	if o.DefaultMaxContentKB != 0 {
		f.DefaultMaxContentKB = o.DefaultMaxContentKB
	}
	if o.AllowedDomains != nil {
		f.AllowedDomains = o.AllowedDomains
	}
	if o.BlocklistedDomains != nil {
		f.BlocklistedDomains = o.BlocklistedDomains
	}
	if o.ConvertToMarkdown != nil {
		f.ConvertToMarkdown = o.ConvertToMarkdown
	}
	if o.UserAgent != "" {
		f.UserAgent = o.UserAgent
	}
	if o.MaxRedirects != nil {
		f.MaxRedirects = o.MaxRedirects
	}
	if o.BatchSize != 0 {
		f.BatchSize = o.BatchSize
	}
	if o.BatchDelayMs != nil {
		f.BatchDelayMs = o.BatchDelayMs
	}
	if o.Housekeeping != "" {
		f.Housekeeping = o.Housekeeping
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// HTTP
	if other.HTTP.Addr != "" {
		c.HTTP.Addr = other.HTTP.Addr
	}
	if other.HTTP.Prefix != "" {
		c.HTTP.Prefix = other.HTTP.Prefix
	}

	// Metrics
	if other.Metrics.Path != "" {
		c.Metrics.Path = other.Metrics.Path
		c.Metrics.Enabled = other.Metrics.Enabled
	}
}
