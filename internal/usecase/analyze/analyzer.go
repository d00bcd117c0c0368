// Package analyze defines the LLM analysis contract used by the collection
// pipeline: a cheap relevance score to gate postings, and a full structured
// analysis for the ones that pass.
package analyze

import (
	"context"
	"errors"
	"time"
)

// Posting carries the fields of a job posting that the prompts need.
// Content is the extracted page text when available; Description is the
// feed excerpt and serves as the fallback.
type Posting struct {
	Title       string
	Source      string
	URL         string
	Category    string
	PublishedAt time.Time
	Description string
	Content     string
}

// Analyzer scores and analyzes job postings with an LLM.
//
// ScoreRelevance is expected to be cheap (small model, score-only prompt);
// it runs on every new entry. Analyze runs only on postings that pass the
// relevance gate and returns a structured markdown report.
type Analyzer interface {
	// ScoreRelevance returns a relevance score in [0,10].
	ScoreRelevance(ctx context.Context, p Posting) (int, error)

	// Analyze returns a structured markdown analysis of the posting.
	Analyze(ctx context.Context, p Posting) (string, error)
}

// Embedder generates embedding vectors for semantic search.
// Not every provider supports embeddings; use SupportsEmbedding to check.
type Embedder interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbeddingModel returns the model identifier used for embeddings.
	EmbeddingModel() string
}

// Sentinel errors for analyzer operations.
var (
	// ErrEmptyResponse indicates the provider returned no usable output.
	ErrEmptyResponse = errors.New("analyzer returned empty response")

	// ErrInvalidScore indicates the relevance response could not be parsed
	// into a score.
	ErrInvalidScore = errors.New("relevance response is not a score")

	// ErrEmbeddingUnsupported indicates the configured provider cannot
	// generate embeddings.
	ErrEmbeddingUnsupported = errors.New("provider does not support embeddings")
)
