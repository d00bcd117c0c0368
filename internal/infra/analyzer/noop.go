package analyzer

import (
	"context"
	"strings"

	"jobradar/internal/usecase/analyze"
)

// NoOp is an analyzer that performs no LLM calls. Every posting scores at
// the default threshold (kept, matching the fail-open behavior of the
// relevance gate) and analysis returns the posting text trimmed down.
// Useful for tests and for running the pipeline without a model server.
type NoOp struct{}

// NewNoOp creates a new NoOp analyzer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// ScoreRelevance returns the default threshold score.
func (n *NoOp) ScoreRelevance(_ context.Context, _ analyze.Posting) (int, error) {
	return 6, nil
}

// ExpandQuery returns the query unchanged.
func (n *NoOp) ExpandQuery(_ context.Context, query string) (string, error) {
	return query, nil
}

// Analyze returns the posting body truncated to a summary-sized excerpt.
func (n *NoOp) Analyze(_ context.Context, p analyze.Posting) (string, error) {
	const maxLength = 500

	body := p.Content
	if strings.TrimSpace(body) == "" {
		body = p.Description
	}
	if len(body) <= maxLength {
		return body, nil
	}
	return body[:maxLength] + "...", nil
}
