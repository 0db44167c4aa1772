package generator

import (
	"context"
	"fmt"

	"pulsepost/internal/infra/news"
	"pulsepost/internal/utils/text"
)

// NoOp composes posts without calling any external API. It renders the item
// title and summary directly, which makes it useful for dry runs, local
// development and tests.
type NoOp struct {
	config Config
}

// NewNoOp creates a NoOp generator.
func NewNoOp(config Config) *NoOp {
	config.applyDefaults()
	return &NoOp{config: config}
}

// Provider implements Generator.
func (n *NoOp) Provider() string { return "noop" }

// ComposePost implements Generator.
func (n *NoOp) ComposePost(_ context.Context, item news.Item) (string, error) {
	post := text.CollapseWhitespace(item.Title)
	if item.Summary != "" {
		post = fmt.Sprintf("%s: %s", post, text.CollapseWhitespace(item.Summary))
	}
	return enforceLimit(post, n.config.CharacterLimit), nil
}
