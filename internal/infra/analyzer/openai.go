package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"jobradar/internal/resilience/circuitbreaker"
	"jobradar/internal/resilience/retry"
	"jobradar/internal/usecase/analyze"
)

// OpenAI implements the analysis contract using the OpenAI API.
// Unlike Anthropic it also offers an embeddings endpoint, so this
// provider implements both analyze.Analyzer and analyze.Embedder.
type OpenAI struct {
	client          *openai.Client
	config          Config
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	metricsRecorder AnalysisMetricsRecorder
}

// NewOpenAI creates an OpenAI-backed analyzer with the given API key.
func NewOpenAI(apiKey string, cfg Config) *OpenAI {
	slog.Info("Initialized OpenAI analyzer",
		slog.String("model", cfg.Model),
		slog.String("filter_model", cfg.filterModel()),
		slog.String("embedding_model", cfg.EmbeddingModel))

	return &OpenAI{
		client:          openai.NewClient(apiKey),
		config:          cfg,
		circuitBreaker:  circuitbreaker.New(circuitbreaker.OpenAIConfig()),
		retryConfig:     retry.LLMConfig(),
		metricsRecorder: NewPrometheusAnalysisMetrics(),
	}
}

// ScoreRelevance runs the score-only prompt against the filter model.
func (o *OpenAI) ScoreRelevance(ctx context.Context, p analyze.Posting) (int, error) {
	start := time.Now()

	response, err := o.complete(ctx, o.config.filterModel(), buildRelevancePrompt(o.config.Profile, p), 16)
	if err != nil {
		o.metricsRecorder.RecordFailure("openai", "relevance")
		return 0, fmt.Errorf("openai relevance check failed: %w", err)
	}

	score, err := parseScore(response)
	if err != nil {
		o.metricsRecorder.RecordFailure("openai", "relevance")
		return 0, err
	}

	o.metricsRecorder.RecordScore(score)
	o.metricsRecorder.RecordRelevanceDuration(time.Since(start))
	return score, nil
}

// Analyze runs the structured-extraction prompt against the main model.
func (o *OpenAI) Analyze(ctx context.Context, p analyze.Posting) (string, error) {
	start := time.Now()

	response, err := o.complete(ctx, o.config.Model, buildAnalysisPrompt(o.config.Profile, p), o.config.MaxTokens)
	if err != nil {
		o.metricsRecorder.RecordFailure("openai", "analysis")
		return "", fmt.Errorf("openai analysis failed: %w", err)
	}

	o.metricsRecorder.RecordAnalysisDuration(time.Since(start))
	return response, nil
}

// ExpandQuery rewrites a search query into related search terms using the
// filter model.
func (o *OpenAI) ExpandQuery(ctx context.Context, query string) (string, error) {
	response, err := o.complete(ctx, o.config.filterModel(), buildQueryExpansionPrompt(query), 128)
	if err != nil {
		o.metricsRecorder.RecordFailure("openai", "expand")
		return "", fmt.Errorf("openai query expansion failed: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// Embed generates an embedding vector via the OpenAI embeddings endpoint.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	var vector []float32

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: []string{text},
				Model: openai.EmbeddingModel(o.config.EmbeddingModel),
			})
			if err != nil {
				return nil, fmt.Errorf("openai api error: %w", err)
			}
			if len(resp.Data) == 0 {
				return nil, analyze.ErrEmptyResponse
			}
			return resp.Data[0].Embedding, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("operation", "embed"),
					slog.String("state", o.circuitBreaker.State().String()))
			}
			return err
		}

		vector = cbResult.([]float32)
		return nil
	})

	if retryErr != nil {
		o.metricsRecorder.RecordFailure("openai", "embed")
		return nil, fmt.Errorf("openai embedding failed: %w", retryErr)
	}

	return vector, nil
}

// EmbeddingModel implements analyze.Embedder.
func (o *OpenAI) EmbeddingModel() string {
	return o.config.EmbeddingModel
}

// complete sends a single-message chat completion with retry and circuit
// breaker wrapping.
func (o *OpenAI) complete(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doComplete(ctx, model, prompt, maxTokens)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
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

// doComplete performs the actual API call without retry or circuit breaker.
func (o *OpenAI) doComplete(ctx context.Context, model, prompt string, maxTokens int) (interface{}, error) {
	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(o.config.Temperature),
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "OpenAI API call failed",
			slog.String("model", model),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		slog.ErrorContext(ctx, "OpenAI API returned empty response",
			slog.Duration("duration", duration))
		return "", analyze.ErrEmptyResponse
	}

	slog.InfoContext(ctx, "OpenAI API call completed",
		slog.String("model", model),
		slog.Int("response_length", len(resp.Choices[0].Message.Content)),
		slog.Duration("duration", duration))

	return resp.Choices[0].Message.Content, nil
}
