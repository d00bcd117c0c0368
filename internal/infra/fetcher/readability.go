package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"

	"jobradar/internal/resilience/circuitbreaker"
	"jobradar/internal/usecase/collect"
)

// ReadabilityFetcher fetches job posting pages and extracts their text.
// Extraction runs in two stages: Mozilla's Readability algorithm first,
// then a selector-based pass over the same HTML when Readability finds
// nothing usable. Job boards often wrap postings in layouts Readability
// rejects as non-article, so the fallback matters in practice.
//
// Security: URL and redirect-target validation (SSRF), response size
// limiting, per-request timeout, and a circuit breaker so a misbehaving
// board cannot stall the whole pipeline.
//
// Safe for concurrent use.
type ReadabilityFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         ContentFetchConfig
}

// NewReadabilityFetcher creates a fetcher with the given configuration.
func NewReadabilityFetcher(config ContentFetchConfig) *ReadabilityFetcher {
	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:             "content-fetch",
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	})

	f := &ReadabilityFetcher{
		circuitBreaker: cb,
		config:         config,
	}

	f.client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", collect.ErrTooManyRedirects, len(via))
			}
			// リダイレクト先も毎回検証する
			if err := validateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}

	return f
}

// FetchContent fetches the page at urlStr and returns its extracted text.
// Implements collect.ContentFetcher.
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, urlStr)
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", collect.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "jobradar/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: request exceeded %v", collect.ErrTimeout, f.config.Timeout)
		}
		// CheckRedirectのエラーをそのまま呼び出し側へ返す
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return "", urlErr.Err
		}
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// Read with a hard size limit; Content-Length can lie.
	limitedReader := io.LimitReader(resp.Body, f.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(htmlBytes)) > f.config.MaxBodySize {
		return "", fmt.Errorf("%w: response size %d bytes exceeds limit %d bytes",
			collect.ErrBodyTooLarge, len(htmlBytes), f.config.MaxBodySize)
	}

	// Prefer the final URL after redirects; Readability uses it to resolve
	// relative links.
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		parsedURL = nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		parsedURL = resp.Request.URL
	}

	text, err := f.extract(urlStr, htmlBytes, parsedURL)
	if err != nil {
		return "", err
	}
	return text, nil
}

// extract runs Readability and falls back to selector-based extraction
// on the same HTML when Readability yields nothing substantial.
func (f *ReadabilityFetcher) extract(urlStr string, htmlBytes []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(htmlBytes), pageURL)
	if err == nil {
		text := article.TextContent
		if text == "" {
			text = article.Content
		}
		if isSubstantial(text) {
			return capContent(text), nil
		}
	}

	// 求人ページはReadabilityが記事と認識しないことが多い
	text, selErr := extractBySelectors(bytes.NewReader(htmlBytes))
	if selErr == nil && isSubstantial(text) {
		slog.Debug("readability yielded no content, used selector extraction",
			slog.String("url", urlStr),
			slog.Int("content_length", len(text)))
		return capContent(text), nil
	}

	return "", fmt.Errorf("%w: no readable content found", collect.ErrExtractionFailed)
}
