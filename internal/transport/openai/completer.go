package openai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askme/internal/domain"
	"github.com/kailas-cloud/askme/internal/metrics"
)

// zeroTemperature is the smallest float go-openai will serialize. The request field is
// omitempty, so a literal 0 would be dropped and the provider default (1.0) applied.
const zeroTemperature = math.SmallestNonzeroFloat32

// Completer generates answers through the chat completions API.
// It sends a single user message at temperature 0 and never retries.
type Completer struct {
	client    *openai.Client
	model     string
	maxTokens int
	user      string
	logger    *zap.Logger
}

// NewCompleter creates a chat completion client.
func NewCompleter(cfg *Config) *Completer {
	return &Completer{
		client:    newClient(cfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		user:      cfg.User,
		logger:    cfg.Logger,
	}
}

// Generate sends prompt as one user message. Any failure, including an empty
// reply, is reported as domain.ErrGeneration.
func (c *Completer) Generate(ctx context.Context, prompt string) (domain.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: zeroTemperature,
		User:        c.user,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		status, detail := describeAPIError(err)
		if status > 0 {
			return domain.Completion{}, fmt.Errorf("completion API error %d: %s: %w", status, detail, domain.ErrGeneration)
		}
		return domain.Completion{}, fmt.Errorf("completion request failed: %v: %w", err, domain.ErrGeneration)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "empty").Inc()
		return domain.Completion{}, fmt.Errorf("empty completion: %w", domain.ErrGeneration)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	metrics.CompletionTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.CompletionTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	c.logger.Debug("Completion finished",
		zap.String("model", c.model),
		zap.Duration("duration", duration),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return domain.Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *Completer) HealthCheck(ctx context.Context) error {
	return listModels(ctx, c.client)
}
