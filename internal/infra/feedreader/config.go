package feedreader

import (
	"net/http"
	"time"

	"jobradar/pkg/config"
)

const defaultUserAgent = "jobradar/1.0"

// Config holds connection settings for all feed providers.
// Only the fields for the resolved provider need to be populated.
type Config struct {
	MinifluxURL      string
	MinifluxAPIKey   string
	FreshRSSURL      string
	FreshRSSUser     string
	FreshRSSPassword string

	// FetchLimit caps the number of entries requested per fetch cycle.
	FetchLimit int
	// Timeout bounds a single HTTP request to a provider or feed.
	Timeout time.Duration
	// UserAgent is sent on every outgoing request. Some job boards reject
	// the Go default agent.
	UserAgent string
	// DirectRequestsPerSecond paces direct feed fetches across sources.
	DirectRequestsPerSecond float64

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// LoadConfig reads provider settings from the environment.
// Invalid numeric values fall back to defaults with a warning.
func LoadConfig() Config {
	timeout := config.GetEnvDuration("FEEDREADER_TIMEOUT", 30*time.Second)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := config.GetEnvInt("FEEDREADER_FETCH_LIMIT", 100)
	if limit <= 0 {
		limit = 100
	}

	return Config{
		MinifluxURL:             config.GetEnvString("MINIFLUX_URL", ""),
		MinifluxAPIKey:          config.GetEnvString("MINIFLUX_API_KEY", ""),
		FreshRSSURL:             config.GetEnvString("FRESHRSS_URL", ""),
		FreshRSSUser:            config.GetEnvString("FRESHRSS_USER", ""),
		FreshRSSPassword:        config.GetEnvString("FRESHRSS_PASSWORD", ""),
		FetchLimit:              limit,
		Timeout:                 timeout,
		UserAgent:               config.GetEnvString("FEEDREADER_USER_AGENT", defaultUserAgent),
		DirectRequestsPerSecond: 1, // polite pacing for job boards
	}
}

// httpClient returns the configured client or a default with the timeout applied.
func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}
