// Package generator composes social posts from news items using an AI
// provider. It includes adapters for Claude (Anthropic) and OpenAI plus a
// deterministic no-op composer for dry runs and tests. Fault handling is
// layered on by the caller; adapters surface provider failures with enough
// shape (HTTP status, category) for the recovery layer to act on.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pulsepost/internal/infra/news"
	"pulsepost/internal/utils/text"
)

// maxInputChars caps the news summary passed to the provider, keeping
// prompts well inside every model's context window.
const maxInputChars = 10000

// Config holds generator settings shared by all providers.
type Config struct {
	// Provider selects the adapter: "claude", "openai" or "noop".
	Provider string

	// APIKey authenticates against the selected provider.
	APIKey string

	// Model overrides the provider's default model when non-empty.
	Model string

	// MaxTokens bounds the provider response.
	MaxTokens int

	// Temperature controls sampling; zero means provider default.
	Temperature float32

	// CharacterLimit is the maximum post length the prompt asks for.
	CharacterLimit int

	// Timeout bounds one generation call.
	Timeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.CharacterLimit <= 0 {
		c.CharacterLimit = 300
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// Generator composes a post for a news item.
type Generator interface {
	// Provider returns the adapter name used in logs and metrics.
	Provider() string

	// ComposePost returns post text for the item, aiming for the configured
	// character limit.
	ComposePost(ctx context.Context, item news.Item) (string, error)
}

// New builds the generator selected by config.Provider.
func New(config Config) (Generator, error) {
	config.applyDefaults()

	switch config.Provider {
	case "claude":
		return NewClaude(config), nil
	case "openai":
		return NewOpenAI(config), nil
	case "noop", "":
		return NewNoOp(config), nil
	default:
		return nil, fmt.Errorf("unknown generator provider: %q", config.Provider)
	}
}

// buildPrompt renders the generation instruction for a news item.
func buildPrompt(config Config, item news.Item) string {
	summary := item.Summary
	if len(summary) > maxInputChars {
		summary = summary[:maxInputChars] + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a social media post about this crypto news story in at most %d characters.\n", config.CharacterLimit)
	b.WriteString("Be factual and neutral. No hashtag spam, at most one hashtag. Do not use emoji. Do not include a URL; it is appended separately.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	if item.FeedTitle != "" {
		fmt.Fprintf(&b, "Source: %s\n", item.FeedTitle)
	}
	if summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", summary)
	}
	return b.String()
}

// enforceLimit trims generated text that overran the requested limit.
func enforceLimit(post string, limit int) string {
	post = text.CollapseWhitespace(post)
	if text.CountRunes(post) <= limit {
		return post
	}
	return text.Truncate(post, limit, "...")
}
