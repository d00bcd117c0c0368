package feedreader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"jobradar/internal/domain/entity"
	"jobradar/internal/resilience/circuitbreaker"
	"jobradar/internal/resilience/retry"
)

// MinifluxClient pulls entries from a Miniflux server via its REST API.
// Entries arrive through the aggregate /v1/entries endpoint; the feed title
// on each entry is used to match it back to a source.
type MinifluxClient struct {
	baseURL        string
	apiKey         string
	fetchLimit     int
	userAgent      string
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewMinifluxClient creates a client for the given configuration.
func NewMinifluxClient(cfg Config) *MinifluxClient {
	return &MinifluxClient{
		baseURL:        strings.TrimRight(cfg.MinifluxURL, "/"),
		apiKey:         cfg.MinifluxAPIKey,
		fetchLimit:     cfg.FetchLimit,
		userAgent:      cfg.UserAgent,
		client:         cfg.httpClient(),
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedReaderConfig()),
		retryConfig:    retry.FeedReaderConfig(),
	}
}

func (c *MinifluxClient) Provider() entity.Provider { return entity.ProviderMiniflux }

type minifluxFeed struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type minifluxEntry struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Content     string       `json:"content"`
	PublishedAt time.Time    `json:"published_at"`
	Feed        minifluxFeed `json:"feed"`
}

type minifluxEntriesResponse struct {
	Total   int             `json:"total"`
	Entries []minifluxEntry `json:"entries"`
}

// FetchEntries returns entries published after the given time, newest first.
// The sources argument is ignored; Miniflux aggregates all subscribed feeds.
func (c *MinifluxClient) FetchEntries(ctx context.Context, _ []*entity.Source, after time.Time) ([]Entry, error) {
	endpoint := fmt.Sprintf("%s/v1/entries?order=published_at&direction=desc&limit=%d",
		c.baseURL, c.fetchLimit)
	if !after.IsZero() {
		endpoint += fmt.Sprintf("&after=%d", after.Unix())
	}

	var entries []Entry

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doFetch(ctx, endpoint)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed reader circuit breaker open, request rejected",
					slog.String("provider", "miniflux"),
					slog.String("state", c.circuitBreaker.State().String()))
			}
			return err
		}

		entries = cbResult.([]Entry)
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return entries, nil
}

// doFetch performs the actual request without retry or circuit breaker.
func (c *MinifluxClient) doFetch(ctx context.Context, endpoint string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("miniflux: build request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("miniflux: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("miniflux entries: %s", strings.TrimSpace(string(body))),
		}
	}

	var decoded minifluxEntriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("miniflux: decode response: %w", err)
	}

	entries := make([]Entry, 0, len(decoded.Entries))
	for _, e := range decoded.Entries {
		publishedAt := e.PublishedAt
		if publishedAt.IsZero() {
			publishedAt = time.Now()
		}
		entries = append(entries, Entry{
			FeedTitle:   e.Feed.Title,
			Title:       e.Title,
			URL:         e.URL,
			Content:     e.Content,
			PublishedAt: publishedAt,
		})
	}
	return entries, nil
}

// SyncSources subscribes the Miniflux server to any feeds it does not have
// yet. An already-subscribed feed is not an error.
func (c *MinifluxClient) SyncSources(ctx context.Context, sources []*entity.Source) error {
	var failed []string
	for _, source := range sources {
		if err := c.createFeed(ctx, source.FeedURL); err != nil {
			slog.Warn("miniflux feed sync failed",
				slog.String("feed_url", source.FeedURL),
				slog.String("error", err.Error()))
			failed = append(failed, source.Name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("miniflux: sync failed for %d feeds: %s",
			len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func (c *MinifluxClient) createFeed(ctx context.Context, feedURL string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"feed_url":    feedURL,
		"category_id": 1, // Minifluxの既定カテゴリ
	})
	if err != nil {
		return fmt.Errorf("miniflux: marshal feed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/feeds", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("miniflux: build request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("miniflux: create feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// 既に購読済み
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		// Minifluxは重複購読を400で返すバージョンがある
		if strings.Contains(strings.ToLower(string(body)), "already exists") {
			return nil
		}
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(body)}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(body)}
	}
}
