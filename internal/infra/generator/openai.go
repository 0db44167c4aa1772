package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pulsepost/internal/infra/news"
	"pulsepost/internal/observability/metrics"
	"pulsepost/internal/resilience/recovery"
	"pulsepost/internal/utils/text"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAI composes posts using OpenAI's chat completion API.
type OpenAI struct {
	client *openai.Client
	config Config
}

// NewOpenAI creates an OpenAI generator from the given configuration.
func NewOpenAI(config Config) *OpenAI {
	config.applyDefaults()
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}

	slog.Info("initialized openai generator",
		slog.String("model", config.Model),
		slog.Int("character_limit", config.CharacterLimit))

	return &OpenAI{
		client: openai.NewClient(config.APIKey),
		config: config,
	}
}

// Provider implements Generator.
func (o *OpenAI) Provider() string { return "openai" }

// ComposePost implements Generator.
func (o *OpenAI) ComposePost(ctx context.Context, item news.Item) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	prompt := buildPrompt(o.config, item)

	slog.InfoContext(ctx, "starting post generation",
		slog.String("provider", "openai"),
		slog.String("title", item.Title))

	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.config.Model,
		MaxTokens:   o.config.MaxTokens,
		Temperature: o.config.Temperature,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	duration := time.Since(start)

	if err != nil {
		metrics.RecordGeneration("openai", false, duration)
		slog.ErrorContext(ctx, "post generation failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", openAIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.RecordGeneration("openai", false, duration)
		return "", recovery.Tag(fmt.Errorf("openai returned empty response"), recovery.CategoryAPI)
	}

	post := enforceLimit(resp.Choices[0].Message.Content, o.config.CharacterLimit)
	metrics.RecordGeneration("openai", true, duration)

	slog.InfoContext(ctx, "post generation completed",
		slog.Int("post_length", text.CountRunes(post)),
		slog.Duration("duration", duration))

	return post, nil
}

// openAIError maps SDK failures to errors the recovery layer can classify.
func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai api request: %w", &recovery.StatusError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		})
	}
	return fmt.Errorf("openai api request: %w", err)
}
