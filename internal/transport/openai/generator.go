package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/metrics"
)

// Generator is a chat-completion provider using the OpenAI-compatible API.
type Generator struct {
	client          *openai.Client
	model           string
	temperature     float32
	maxOutputTokens int
	provider        string
	logger          *zap.Logger
}

// GeneratorConfig holds the completion provider settings.
type GeneratorConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float32
	MaxOutputTokens int
	Provider        string
	Logger          *zap.Logger
}

// NewGenerator creates an OpenAI-compatible completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:          openai.NewClientWithConfig(clientCfg),
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
		provider:        cfg.Provider,
		logger:          cfg.Logger,
	}
}

// Complete implements domain.Generator. Sends the prompt as a single user
// message and returns the first choice with usage.
func (g *Generator) Complete(ctx context.Context, prompt string) (domain.GenerationResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return domain.GenerationResult{}, parseGenerationAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty completion response: %w", domain.ErrGenerationProvider)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "completion").
			Add(float64(resp.Usage.CompletionTokens))
	}

	return domain.GenerationResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// parseGenerationAPIError wraps provider failures with domain.ErrGenerationProvider
// for correct 502 mapping.
func parseGenerationAPIError(err error) error {
	return parseAPIError(err, "completion", domain.ErrGenerationProvider)
}
