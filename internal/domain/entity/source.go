package entity

import (
	"fmt"
	"time"
)

// Provider identifies how entries for a source are retrieved.
type Provider string

const (
	// ProviderMiniflux pulls entries from a Miniflux server via its REST API.
	ProviderMiniflux Provider = "miniflux"
	// ProviderFreshRSS pulls entries from a FreshRSS server via the
	// Google-Reader-compatible API.
	ProviderFreshRSS Provider = "freshrss"
	// ProviderDirect fetches and parses the feed URL itself.
	ProviderDirect Provider = "direct"
)

// Source represents a followed job feed.
// For reader-backed providers the FeedURL is what gets synced to the reader;
// entries then arrive through the reader's aggregate endpoint and are matched
// back to sources by feed title.
type Source struct {
	ID            int64
	Name          string
	FeedURL       string
	Provider      Provider
	Category      string
	Active        bool
	LastFetchedAt *time.Time
}

// Validate checks the Source fields.
// 空のProviderはdirectとみなす（後方互換性）
func (s *Source) Validate() error {
	if s.Provider == "" {
		s.Provider = ProviderDirect
	}
	switch s.Provider {
	case ProviderMiniflux, ProviderFreshRSS, ProviderDirect:
	default:
		return fmt.Errorf("invalid provider: %s (must be miniflux, freshrss, or direct)", s.Provider)
	}
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if s.FeedURL == "" {
		return &ValidationError{Field: "feedURL", Message: "is required"}
	}
	return nil
}
