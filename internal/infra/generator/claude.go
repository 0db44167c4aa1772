package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"pulsepost/internal/infra/news"
	"pulsepost/internal/observability/metrics"
	"pulsepost/internal/resilience/recovery"
	"pulsepost/internal/utils/text"
)

const defaultClaudeModel = "claude-sonnet-4-5-20250929"

// Claude composes posts using Anthropic's Claude API.
type Claude struct {
	client anthropic.Client
	config Config
}

// NewClaude creates a Claude generator from the given configuration.
func NewClaude(config Config) *Claude {
	config.applyDefaults()
	if config.Model == "" {
		config.Model = defaultClaudeModel
	}

	slog.Info("initialized claude generator",
		slog.String("model", config.Model),
		slog.Int("character_limit", config.CharacterLimit))

	return &Claude{
		client: anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		config: config,
	}
}

// Provider implements Generator.
func (c *Claude) Provider() string { return "claude" }

// ComposePost implements Generator.
func (c *Claude) ComposePost(ctx context.Context, item news.Item) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	requestID := uuid.New().String()
	prompt := buildPrompt(c.config, item)

	slog.InfoContext(ctx, "starting post generation",
		slog.String("request_id", requestID),
		slog.String("provider", "claude"),
		slog.String("title", item.Title))

	start := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	}
	if c.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.config.Temperature))
	}

	message, err := c.client.Messages.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordGeneration("claude", false, duration)
		slog.ErrorContext(ctx, "post generation failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", claudeError(err)
	}

	if len(message.Content) == 0 {
		metrics.RecordGeneration("claude", false, duration)
		return "", recovery.Tag(fmt.Errorf("claude returned empty response"), recovery.CategoryAPI)
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		metrics.RecordGeneration("claude", false, duration)
		return "", recovery.Tag(fmt.Errorf("claude returned unexpected content type"), recovery.CategoryAPI)
	}

	post := enforceLimit(textBlock.Text, c.config.CharacterLimit)
	metrics.RecordGeneration("claude", true, duration)

	slog.InfoContext(ctx, "post generation completed",
		slog.String("request_id", requestID),
		slog.Int("post_length", text.CountRunes(post)),
		slog.Duration("duration", duration))

	return post, nil
}

// claudeError maps SDK failures to errors the recovery layer can classify:
// HTTP failures become StatusError so retryable status codes are honored.
func claudeError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("claude api request: %w", &recovery.StatusError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Error(),
		})
	}
	return fmt.Errorf("claude api request: %w", err)
}
