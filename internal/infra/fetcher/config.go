// Package fetcher fetches job posting pages and extracts their text content.
package fetcher

import (
	"fmt"
	"time"

	"jobradar/pkg/config"
)

// ContentFetchConfig controls security and performance of posting-page fetches.
type ContentFetchConfig struct {
	// Enabled toggles content fetching. When false the pipeline uses the
	// feed excerpt directly.
	Enabled bool

	// Threshold is the minimum excerpt length (in characters) below which
	// the full page is fetched. Excerpts at or above it are considered
	// sufficient for analysis.
	Threshold int

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// Parallelism caps concurrent page fetches in the pipeline.
	Parallelism int

	// MaxBodySize caps the response body in bytes. Enforced while reading,
	// not from the Content-Length header.
	MaxBodySize int64

	// MaxRedirects caps the redirect chain. Every target is re-validated.
	MaxRedirects int

	// DenyPrivateIPs blocks URLs resolving to private addresses.
	// SSRF対策。本番では常にtrue。
	DenyPrivateIPs bool
}

// DefaultConfig returns production defaults for content fetching.
func DefaultConfig() ContentFetchConfig {
	return ContentFetchConfig{
		Enabled:        true,
		Threshold:      1500,
		Timeout:        10 * time.Second,
		Parallelism:    10,
		MaxBodySize:    10 * 1024 * 1024, // 10MB
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks configuration bounds.
func (c *ContentFetchConfig) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Parallelism < 1 || c.Parallelism > 50 {
		return fmt.Errorf("parallelism must be between 1 and 50, got %d", c.Parallelism)
	}
	minBodySize := int64(1024)
	maxBodySize := int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d",
			minBodySize, maxBodySize, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv loads the configuration from environment variables,
// falling back to defaults for unset values, and validates the result.
//
// Environment variables: CONTENT_FETCH_ENABLED, CONTENT_FETCH_THRESHOLD,
// CONTENT_FETCH_TIMEOUT, CONTENT_FETCH_PARALLELISM,
// CONTENT_FETCH_MAX_BODY_SIZE, CONTENT_FETCH_MAX_REDIRECTS,
// CONTENT_FETCH_DENY_PRIVATE_IPS.
func LoadConfigFromEnv() (ContentFetchConfig, error) {
	defaults := DefaultConfig()

	cfg := ContentFetchConfig{
		Enabled:        config.GetEnvBool("CONTENT_FETCH_ENABLED", defaults.Enabled),
		Threshold:      config.GetEnvInt("CONTENT_FETCH_THRESHOLD", defaults.Threshold),
		Timeout:        config.GetEnvDuration("CONTENT_FETCH_TIMEOUT", defaults.Timeout),
		Parallelism:    config.GetEnvInt("CONTENT_FETCH_PARALLELISM", defaults.Parallelism),
		MaxBodySize:    int64(config.GetEnvInt("CONTENT_FETCH_MAX_BODY_SIZE", int(defaults.MaxBodySize))),
		MaxRedirects:   config.GetEnvInt("CONTENT_FETCH_MAX_REDIRECTS", defaults.MaxRedirects),
		DenyPrivateIPs: config.GetEnvBool("CONTENT_FETCH_DENY_PRIVATE_IPS", defaults.DenyPrivateIPs),
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
