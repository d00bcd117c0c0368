package analyzer

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

	"jobradar/internal/resilience/circuitbreaker"
	"jobradar/internal/resilience/retry"
	"jobradar/internal/usecase/analyze"
)

// Ollama implements the analysis contract against a local Ollama server.
// This is the default provider: postings never leave the machine and the
// relevance gate can use a small, fast filter model.
//
// Implements both analyze.Analyzer and analyze.Embedder.
type Ollama struct {
	baseURL         string
	client          *http.Client
	config          Config
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	metricsRecorder AnalysisMetricsRecorder
}

// NewOllama creates an Ollama-backed analyzer.
func NewOllama(cfg Config) *Ollama {
	slog.Info("Initialized Ollama analyzer",
		slog.String("base_url", cfg.OllamaURL),
		slog.String("model", cfg.Model),
		slog.String("filter_model", cfg.filterModel()),
		slog.String("embedding_model", cfg.EmbeddingModel))

	return &Ollama{
		baseURL:         strings.TrimRight(cfg.OllamaURL, "/"),
		client:          &http.Client{Timeout: cfg.Timeout},
		config:          cfg,
		circuitBreaker:  circuitbreaker.New(circuitbreaker.OllamaConfig()),
		retryConfig:     retry.LLMConfig(),
		metricsRecorder: NewPrometheusAnalysisMetrics(),
	}
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// ScoreRelevance runs the score-only prompt against the filter model.
func (o *Ollama) ScoreRelevance(ctx context.Context, p analyze.Posting) (int, error) {
	start := time.Now()

	response, err := o.generate(ctx, o.config.filterModel(), buildRelevancePrompt(o.config.Profile, p), 16)
	if err != nil {
		o.metricsRecorder.RecordFailure("ollama", "relevance")
		return 0, fmt.Errorf("ollama relevance check failed: %w", err)
	}

	score, err := parseScore(response)
	if err != nil {
		o.metricsRecorder.RecordFailure("ollama", "relevance")
		return 0, err
	}

	o.metricsRecorder.RecordScore(score)
	o.metricsRecorder.RecordRelevanceDuration(time.Since(start))
	return score, nil
}

// Analyze runs the structured-extraction prompt against the main model.
func (o *Ollama) Analyze(ctx context.Context, p analyze.Posting) (string, error) {
	start := time.Now()

	slog.InfoContext(ctx, "Starting posting analysis",
		slog.String("provider", "ollama"),
		slog.String("model", o.config.Model),
		slog.String("title", p.Title))

	response, err := o.generate(ctx, o.config.Model, buildAnalysisPrompt(o.config.Profile, p), o.config.MaxTokens)
	if err != nil {
		o.metricsRecorder.RecordFailure("ollama", "analysis")
		return "", fmt.Errorf("ollama analysis failed: %w", err)
	}

	duration := time.Since(start)
	o.metricsRecorder.RecordAnalysisDuration(duration)

	slog.InfoContext(ctx, "Posting analysis completed",
		slog.String("provider", "ollama"),
		slog.Int("response_length", len(response)),
		slog.Duration("duration", duration))

	return response, nil
}

// ExpandQuery rewrites a search query into related search terms. Runs on
// every semantic search, so it uses the cheap filter model.
func (o *Ollama) ExpandQuery(ctx context.Context, query string) (string, error) {
	response, err := o.generate(ctx, o.config.filterModel(), buildQueryExpansionPrompt(query), 128)
	if err != nil {
		o.metricsRecorder.RecordFailure("ollama", "expand")
		return "", fmt.Errorf("ollama query expansion failed: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// Embed generates an embedding vector via the Ollama embeddings endpoint.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doEmbed(ctx, text)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("ollama circuit breaker open, request rejected",
					slog.String("operation", "embed"),
					slog.String("state", o.circuitBreaker.State().String()))
			}
			return err
		}

		vector = cbResult.([]float32)
		return nil
	})

	if retryErr != nil {
		o.metricsRecorder.RecordFailure("ollama", "embed")
		return nil, fmt.Errorf("ollama embedding failed: %w", retryErr)
	}

	return vector, nil
}

// EmbeddingModel implements analyze.Embedder.
func (o *Ollama) EmbeddingModel() string {
	return o.config.EmbeddingModel
}

// generate calls /api/generate with retry and circuit breaker wrapping.
func (o *Ollama) generate(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doGenerate(ctx, model, prompt, maxTokens)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("ollama circuit breaker open, request rejected",
					slog.String("operation", "generate"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("ollama unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	return result, nil
}

// doGenerate performs the actual API call without retry or circuit breaker.
func (o *Ollama) doGenerate(ctx context.Context, model, prompt string, maxTokens int) (interface{}, error) {
	payload, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: o.config.Temperature,
			NumPredict:  maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("ollama generate: %s", strings.TrimSpace(string(body))),
		}
	}

	var decoded ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}

	if strings.TrimSpace(decoded.Response) == "" {
		return "", analyze.ErrEmptyResponse
	}

	return decoded.Response, nil
}

// doEmbed performs the embeddings API call without retry or circuit breaker.
func (o *Ollama) doEmbed(ctx context.Context, text string) (interface{}, error) {
	payload, err := json.Marshal(ollamaEmbeddingRequest{
		Model:  o.config.EmbeddingModel,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("ollama embeddings: %s", strings.TrimSpace(string(body))),
		}
	}

	var decoded ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}

	if len(decoded.Embedding) == 0 {
		return nil, analyze.ErrEmptyResponse
	}

	vector := make([]float32, len(decoded.Embedding))
	for i, v := range decoded.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
