package feedreader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"jobradar/internal/domain/entity"
	"jobradar/internal/resilience/circuitbreaker"
	"jobradar/internal/resilience/retry"
)

// FreshRSSClient pulls entries from a FreshRSS server through its
// Google-Reader-compatible API. Authentication uses the API password
// configured in FreshRSS (basic auth on every request).
type FreshRSSClient struct {
	baseURL        string
	user           string
	password       string
	fetchLimit     int
	userAgent      string
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewFreshRSSClient creates a client for the given configuration.
func NewFreshRSSClient(cfg Config) *FreshRSSClient {
	return &FreshRSSClient{
		baseURL:        strings.TrimRight(cfg.FreshRSSURL, "/"),
		user:           cfg.FreshRSSUser,
		password:       cfg.FreshRSSPassword,
		fetchLimit:     cfg.FetchLimit,
		userAgent:      cfg.UserAgent,
		client:         cfg.httpClient(),
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedReaderConfig()),
		retryConfig:    retry.FeedReaderConfig(),
	}
}

func (c *FreshRSSClient) Provider() entity.Provider { return entity.ProviderFreshRSS }

type greaderLink struct {
	Href string `json:"href"`
}

type greaderItem struct {
	Title     string        `json:"title"`
	Published int64         `json:"published"`
	Canonical []greaderLink `json:"canonical"`
	Alternate []greaderLink `json:"alternate"`
	Summary   struct {
		Content string `json:"content"`
	} `json:"summary"`
	Origin struct {
		Title string `json:"title"`
	} `json:"origin"`
}

type greaderStreamResponse struct {
	Items []greaderItem `json:"items"`
}

// FetchEntries returns reading-list entries published after the given time.
// The sources argument is ignored; the reading-list aggregates all feeds.
func (c *FreshRSSClient) FetchEntries(ctx context.Context, _ []*entity.Source, after time.Time) ([]Entry, error) {
	endpoint := fmt.Sprintf("%s/reader/api/0/stream/contents/reading-list?output=json&n=%d",
		c.baseURL, c.fetchLimit)
	if !after.IsZero() {
		// ot = "older than" exclusion boundary in GReader terms
		endpoint += fmt.Sprintf("&ot=%d", after.Unix())
	}

	var entries []Entry

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doFetch(ctx, endpoint)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed reader circuit breaker open, request rejected",
					slog.String("provider", "freshrss"),
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

func (c *FreshRSSClient) doFetch(ctx context.Context, endpoint string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("freshrss: build request: %w", err)
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("freshrss: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("freshrss reading-list: %s", strings.TrimSpace(string(body))),
		}
	}

	var decoded greaderStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("freshrss: decode response: %w", err)
	}

	entries := make([]Entry, 0, len(decoded.Items))
	for _, item := range decoded.Items {
		link := ""
		if len(item.Canonical) > 0 {
			link = item.Canonical[0].Href
		} else if len(item.Alternate) > 0 {
			link = item.Alternate[0].Href
		}
		if link == "" {
			continue
		}

		publishedAt := time.Now()
		if item.Published > 0 {
			publishedAt = time.Unix(item.Published, 0)
		}

		entries = append(entries, Entry{
			FeedTitle:   item.Origin.Title,
			Title:       item.Title,
			URL:         link,
			Content:     item.Summary.Content,
			PublishedAt: publishedAt,
		})
	}
	return entries, nil
}

// SyncSources subscribes the FreshRSS server to the given feeds using the
// GReader quickadd endpoint. An existing subscription is not an error.
func (c *FreshRSSClient) SyncSources(ctx context.Context, sources []*entity.Source) error {
	var failed []string
	for _, source := range sources {
		if err := c.quickadd(ctx, source.FeedURL); err != nil {
			slog.Warn("freshrss feed sync failed",
				slog.String("feed_url", source.FeedURL),
				slog.String("error", err.Error()))
			failed = append(failed, source.Name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("freshrss: sync failed for %d feeds: %s",
			len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func (c *FreshRSSClient) quickadd(ctx context.Context, feedURL string) error {
	endpoint := fmt.Sprintf("%s/reader/api/0/subscription/quickadd?quickadd=%s",
		c.baseURL, url.QueryEscape(feedURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("freshrss: build request: %w", err)
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("freshrss: quickadd: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	return nil
}
