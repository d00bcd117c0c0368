// Package feedreader retrieves job posting entries from followed feeds.
// Three providers are supported: a Miniflux server, a FreshRSS server
// (Google-Reader-compatible API), and direct feed fetching with gofeed.
// All providers are wrapped with retry and circuit breaker logic.
package feedreader

import (
	"context"
	"fmt"
	"time"

	"jobradar/internal/domain/entity"
)

// Entry is one feed item as delivered by a provider, before it becomes a Job.
type Entry struct {
	// SourceID is set when the client resolved the source itself (direct
	// provider). Zero means the caller must match by FeedTitle.
	SourceID    int64
	FeedTitle   string
	Title       string
	URL         string
	Content     string
	PublishedAt time.Time
}

// Client retrieves entries for the followed feeds.
type Client interface {
	// FetchEntries returns entries published after the given time.
	// Reader-backed providers query their aggregate endpoint and ignore
	// the sources argument; the direct client fetches each source itself.
	FetchEntries(ctx context.Context, sources []*entity.Source, after time.Time) ([]Entry, error)

	// SyncSources registers feeds with the backing reader so entries start
	// flowing. The direct client has nothing to register.
	SyncSources(ctx context.Context, sources []*entity.Source) error

	// Provider reports which provider this client talks to.
	Provider() entity.Provider
}

// New returns the client for the given provider.
func New(provider entity.Provider, cfg Config) (Client, error) {
	switch provider {
	case entity.ProviderMiniflux:
		if cfg.MinifluxURL == "" {
			return nil, fmt.Errorf("feedreader: MINIFLUX_URL is required for the miniflux provider")
		}
		return NewMinifluxClient(cfg), nil
	case entity.ProviderFreshRSS:
		if cfg.FreshRSSURL == "" {
			return nil, fmt.Errorf("feedreader: FRESHRSS_URL is required for the freshrss provider")
		}
		return NewFreshRSSClient(cfg), nil
	case entity.ProviderDirect:
		return NewDirectClient(cfg), nil
	default:
		return nil, fmt.Errorf("feedreader: unknown provider: %s", provider)
	}
}
