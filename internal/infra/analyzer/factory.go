package analyzer

import (
	"fmt"
	"os"

	"jobradar/internal/usecase/analyze"
)

// New creates the analyzer selected by cfg.Type. Hosted providers read
// their API key from the environment and fail fast when it is missing.
func New(cfg Config) (analyze.Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeOllama:
		return NewOllama(cfg), nil
	case TypeAnthropic:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic analyzer")
		}
		return NewAnthropic(apiKey, cfg), nil
	case TypeOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai analyzer")
		}
		return NewOpenAI(apiKey, cfg), nil
	case TypeNoop:
		return NewNoOp(), nil
	default:
		return nil, fmt.Errorf("unknown analyzer type %q", cfg.Type)
	}
}

// NewEmbedder creates the embedding provider for cfg. OpenAI embeds
// through its own API; every other analyzer type uses the local Ollama
// endpoint (Anthropic offers no embeddings API). The noop type supports
// no embeddings at all.
func NewEmbedder(cfg Config) (analyze.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for openai embeddings")
		}
		return NewOpenAI(apiKey, cfg), nil
	case TypeNoop:
		return nil, analyze.ErrEmbeddingUnsupported
	default:
		return NewOllama(cfg), nil
	}
}
