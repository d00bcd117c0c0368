package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"jobradar/internal/resilience/circuitbreaker"
	"jobradar/internal/resilience/retry"
	"jobradar/internal/usecase/analyze"
)

// Anthropic implements the analysis contract using the Anthropic API.
// Hosted alternative to the local Ollama default; embeddings are not
// offered by the API, so this provider implements analyze.Analyzer only.
type Anthropic struct {
	client          anthropic.Client
	config          Config
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	metricsRecorder AnalysisMetricsRecorder
}

// NewAnthropic creates an Anthropic-backed analyzer with the given API key.
func NewAnthropic(apiKey string, cfg Config) *Anthropic {
	slog.Info("Initialized Anthropic analyzer",
		slog.String("model", cfg.Model),
		slog.String("filter_model", cfg.filterModel()))

	return &Anthropic{
		client:          anthropic.NewClient(option.WithAPIKey(apiKey)),
		config:          cfg,
		circuitBreaker:  circuitbreaker.New(circuitbreaker.AnthropicConfig()),
		retryConfig:     retry.LLMConfig(),
		metricsRecorder: NewPrometheusAnalysisMetrics(),
	}
}

// ScoreRelevance runs the score-only prompt against the filter model.
func (a *Anthropic) ScoreRelevance(ctx context.Context, p analyze.Posting) (int, error) {
	start := time.Now()

	response, err := a.complete(ctx, a.config.filterModel(), buildRelevancePrompt(a.config.Profile, p), 16)
	if err != nil {
		a.metricsRecorder.RecordFailure("anthropic", "relevance")
		return 0, fmt.Errorf("anthropic relevance check failed: %w", err)
	}

	score, err := parseScore(response)
	if err != nil {
		a.metricsRecorder.RecordFailure("anthropic", "relevance")
		return 0, err
	}

	a.metricsRecorder.RecordScore(score)
	a.metricsRecorder.RecordRelevanceDuration(time.Since(start))
	return score, nil
}

// Analyze runs the structured-extraction prompt against the main model.
func (a *Anthropic) Analyze(ctx context.Context, p analyze.Posting) (string, error) {
	start := time.Now()

	response, err := a.complete(ctx, a.config.Model, buildAnalysisPrompt(a.config.Profile, p), a.config.MaxTokens)
	if err != nil {
		a.metricsRecorder.RecordFailure("anthropic", "analysis")
		return "", fmt.Errorf("anthropic analysis failed: %w", err)
	}

	a.metricsRecorder.RecordAnalysisDuration(time.Since(start))
	return response, nil
}

// ExpandQuery rewrites a search query into related search terms using the
// filter model.
func (a *Anthropic) ExpandQuery(ctx context.Context, query string) (string, error) {
	response, err := a.complete(ctx, a.config.filterModel(), buildQueryExpansionPrompt(query), 128)
	if err != nil {
		a.metricsRecorder.RecordFailure("anthropic", "expand")
		return "", fmt.Errorf("anthropic query expansion failed: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// complete sends a single-message completion with retry and circuit
// breaker wrapping.
func (a *Anthropic) complete(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, a.retryConfig, func() error {
		cbResult, err := a.circuitBreaker.Execute(func() (interface{}, error) {
			return a.doComplete(ctx, model, prompt, maxTokens)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("anthropic api circuit breaker open, request rejected",
					slog.String("service", "anthropic-api"),
					slog.String("state", a.circuitBreaker.State().String()))
				return fmt.Errorf("anthropic api unavailable: circuit breaker open")
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
func (a *Anthropic) doComplete(ctx context.Context, model, prompt string, maxTokens int) (interface{}, error) {
	requestID := uuid.New().String()
	start := time.Now()

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "Anthropic API call failed",
			slog.String("request_id", requestID),
			slog.String("model", model),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	if len(message.Content) == 0 {
		slog.ErrorContext(ctx, "Anthropic API returned empty response",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", analyze.ErrEmptyResponse
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		slog.ErrorContext(ctx, "Anthropic API returned unexpected response type",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", fmt.Errorf("anthropic api returned unexpected response type")
	}

	slog.InfoContext(ctx, "Anthropic API call completed",
		slog.String("request_id", requestID),
		slog.String("model", model),
		slog.Int("response_length", len(textBlock.Text)),
		slog.Duration("duration", duration))

	return textBlock.Text, nil
}
