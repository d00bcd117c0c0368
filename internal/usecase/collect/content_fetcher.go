package collect

import (
	"context"
	"errors"
)

// ContentFetcher fetches full posting text from a job URL.
// RSS entries from job boards usually carry a short excerpt; fetching the
// page itself gives the analyzer the full requirements and description.
//
// Implementations MUST prevent SSRF (validate URLs and redirect targets),
// enforce body size limits, and enforce timeouts. The caller treats every
// error as non-fatal and falls back to the feed excerpt.
type ContentFetcher interface {
	// FetchContent returns the extracted plain text of the page at url.
	FetchContent(ctx context.Context, url string) (string, error)
}

// Sentinel errors for content fetching. They let the pipeline distinguish
// failure modes when deciding what to log; the fallback is the same for all.
var (
	// ErrInvalidURL indicates the URL is malformed or uses a scheme other
	// than http/https.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a loopback, private, or
	// link-local address. SSRF対策。
	ErrPrivateIP = errors.New("private IP access denied")

	// ErrTooManyRedirects indicates the redirect chain exceeded the maximum.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrExtractionFailed indicates no readable content could be extracted
	// from the page. Callers fall back to the feed excerpt.
	ErrExtractionFailed = errors.New("content extraction failed")
)
