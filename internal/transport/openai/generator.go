package openai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/metrics"
)

// GeneratorConfig holds the chat completion settings.
type GeneratorConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Provider  string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Generator calls the /chat/completions endpoint.
type Generator struct {
	client    *openai.Client
	model     string
	maxTokens int
	provider  string
	logger    *zap.Logger
}

var (
	_ domain.Generator     = (*Generator)(nil)
	_ domain.HealthChecker = (*Generator)(nil)
)

// NewGenerator creates an OpenAI-compatible chat provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		client:    newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		provider:  cfg.Provider,
		logger:    log,
	}
}

// Generate sends one system+user exchange and returns the first choice.
func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	temperature := req.Temperature
	if temperature <= 0 {
		// go-openai drops a zero temperature (omitempty).
		temperature = math.SmallestNonzeroFloat32
	}
	creq := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, creq)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(g.provider, g.model, errorType(err)).Inc()
		g.logger.Warn("Chat completion failed",
			zap.String("provider", g.provider),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", apiError("chat", err, domain.ErrLLMProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(g.provider, g.model, "empty_response").Inc()
		return "", fmt.Errorf("chat response has no choices: %w", domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(g.provider, g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	g.logger.Debug("Chat completion done",
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck lists models, which costs no tokens.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
