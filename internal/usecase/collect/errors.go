// Package collect implements the collection pipeline: pull entries from the
// feed provider, deduplicate, score relevance, fetch full content, analyze,
// and persist job postings.
package collect

import "errors"

// Sentinel errors for collection pipeline operations.
var (
	// ErrFeedFetchFailed indicates that pulling entries from the feed
	// provider failed after retries.
	ErrFeedFetchFailed = errors.New("failed to fetch entries from feed provider")

	// ErrRelevanceCheckFailed indicates the relevance scoring call failed.
	// The posting is kept with status new so a later cycle can retry.
	ErrRelevanceCheckFailed = errors.New("failed to score posting relevance")

	// ErrAnalysisFailed indicates that LLM analysis of a posting failed.
	ErrAnalysisFailed = errors.New("failed to analyze job posting")
)
