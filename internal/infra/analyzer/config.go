// Package analyzer provides LLM-backed implementations of the analysis
// contract: a local Ollama endpoint by default, with Anthropic and OpenAI
// as hosted alternatives and a no-op for tests. All providers share the
// same prompts and reliability patterns (retry + circuit breaker).
package analyzer

import (
	"fmt"
	"time"

	"jobradar/pkg/config"
)

// Provider selection values for ANALYZER_TYPE.
const (
	TypeOllama    = "ollama"
	TypeAnthropic = "anthropic"
	TypeOpenAI    = "openai"
	TypeNoop      = "noop"
)

// Profile holds the user's search profile that gets baked into prompts:
// what to look for and which eligibility restrictions matter.
type Profile struct {
	// Keywords the user cares about. Listed in both prompts.
	Keywords []string

	// RequiredDegree is the degree level the user holds (e.g. "PhD").
	RequiredDegree string

	// CitizenshipRequirement describes the user's work-eligibility
	// situation, e.g. "open to international students".
	CitizenshipRequirement string
}

// Config holds analyzer provider configuration.
// Loaded from environment variables; the Profile is usually overridden
// afterwards from the YAML config file.
type Config struct {
	// Type selects the provider: ollama, anthropic, openai, or noop.
	Type string

	// Model is the model used for full posting analysis.
	Model string

	// FilterModel is the (smaller, cheaper) model used for relevance
	// scoring. Empty means use Model.
	FilterModel string

	// EmbeddingModel is the model used for embedding generation.
	EmbeddingModel string

	// Temperature for generation. Low by default: extraction, not prose.
	Temperature float64

	// MaxTokens caps the response length.
	MaxTokens int

	// Timeout bounds a single provider call.
	Timeout time.Duration

	// OllamaURL is the base URL of the local Ollama server.
	OllamaURL string

	// Profile is the user's search profile for prompt construction.
	Profile Profile
}

// knownEmbeddingDims maps embedding models to the vector width they
// produce. Used to catch a model/schema mismatch at startup instead of at
// the first failed insert.
var knownEmbeddingDims = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// KnownEmbeddingDim returns the vector width the given embedding model
// produces, for the commonly used models. Unknown models report false and
// are validated at insert time instead.
func KnownEmbeddingDim(model string) (int, bool) {
	dim, ok := knownEmbeddingDims[model]
	return dim, ok
}

// filterModel returns the model to use for relevance scoring.
func (c Config) filterModel() string {
	if c.FilterModel != "" {
		return c.FilterModel
	}
	return c.Model
}

// Validate checks provider type and bounds.
func (c *Config) Validate() error {
	switch c.Type {
	case TypeOllama, TypeAnthropic, TypeOpenAI, TypeNoop:
	default:
		return fmt.Errorf("unknown analyzer type %q (want ollama, anthropic, openai, or noop)", c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0,2], got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// LoadConfig loads analyzer configuration from environment variables.
//
// Environment variables: ANALYZER_TYPE, ANALYZER_MODEL,
// ANALYZER_FILTER_MODEL, ANALYZER_EMBEDDING_MODEL, ANALYZER_TEMPERATURE,
// ANALYZER_MAX_TOKENS, ANALYZER_TIMEOUT, OLLAMA_URL, ANALYZER_KEYWORDS,
// PROFILE_REQUIRED_DEGREE, PROFILE_CITIZENSHIP.
func LoadConfig() (Config, error) {
	cfg := Config{
		Type:           config.GetEnvString("ANALYZER_TYPE", TypeOllama),
		Model:          config.GetEnvString("ANALYZER_MODEL", "llama3.1:8b"),
		FilterModel:    config.GetEnvString("ANALYZER_FILTER_MODEL", "llama3.2:1b"),
		EmbeddingModel: config.GetEnvString("ANALYZER_EMBEDDING_MODEL", "nomic-embed-text"),
		Temperature:    config.GetEnvFloat("ANALYZER_TEMPERATURE", 0.3),
		MaxTokens:      config.GetEnvInt("ANALYZER_MAX_TOKENS", 2048),
		Timeout:        config.GetEnvDuration("ANALYZER_TIMEOUT", 60*time.Second),
		OllamaURL:      config.GetEnvString("OLLAMA_URL", "http://localhost:11434"),
		Profile: Profile{
			Keywords:               config.GetEnvStringList("ANALYZER_KEYWORDS", nil),
			RequiredDegree:         config.GetEnvString("PROFILE_REQUIRED_DEGREE", "PhD"),
			CitizenshipRequirement: config.GetEnvString("PROFILE_CITIZENSHIP", "open to international students"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("analyzer configuration invalid: %w", err)
	}
	return cfg, nil
}
