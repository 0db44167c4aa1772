package generator

import (
	"context"
	"strings"
	"testing"

	"pulsepost/internal/infra/news"
	"pulsepost/internal/utils/text"
)

func testItem() news.Item {
	return news.Item{
		Title:     "Bitcoin crosses $100k",
		URL:       "https://example.com/story",
		Summary:   "Bitcoin traded above $100,000 for the first time.",
		FeedTitle: "Example Wire",
	}
}

func TestNew_SelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{"claude", "claude", false},
		{"openai", "openai", false},
		{"noop", "noop", false},
		{"", "noop", false},
		{"gemini", "", true},
	}

	for _, tt := range tests {
		t.Run("provider_"+tt.provider, func(t *testing.T) {
			g, err := New(Config{Provider: tt.provider, APIKey: "test-key"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown provider")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if g.Provider() != tt.want {
				t.Errorf("expected provider %q, got %q", tt.want, g.Provider())
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(Config{CharacterLimit: 300}, testItem())

	if !strings.Contains(prompt, "300 characters") {
		t.Errorf("expected character limit in prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "Bitcoin crosses $100k") {
		t.Error("expected title in prompt")
	}
	if !strings.Contains(prompt, "Example Wire") {
		t.Error("expected source in prompt")
	}
	if strings.Contains(prompt, "https://example.com/story") {
		t.Error("URL must not leak into the prompt")
	}
}

func TestBuildPrompt_TruncatesLongSummary(t *testing.T) {
	item := testItem()
	item.Summary = strings.Repeat("x", maxInputChars+500)

	prompt := buildPrompt(Config{CharacterLimit: 300}, item)
	if len(prompt) > maxInputChars+500 {
		t.Errorf("expected summary truncated, prompt is %d bytes", len(prompt))
	}
}

func TestEnforceLimit(t *testing.T) {
	if got := enforceLimit("short post", 300); got != "short post" {
		t.Errorf("short post should be untouched, got %q", got)
	}

	long := strings.Repeat("word ", 100)
	got := enforceLimit(long, 50)
	if text.CountRunes(got) > 50 {
		t.Errorf("expected at most 50 runes, got %d", text.CountRunes(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncation suffix, got %q", got)
	}
}

func TestNoOp_ComposePost(t *testing.T) {
	g := NewNoOp(Config{CharacterLimit: 300})

	post, err := g.ComposePost(context.Background(), testItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(post, "Bitcoin crosses $100k") {
		t.Errorf("expected title in post: %q", post)
	}
	if text.CountRunes(post) > 300 {
		t.Errorf("post exceeds limit: %d runes", text.CountRunes(post))
	}
}

func TestNoOp_ComposePost_RespectsTightLimit(t *testing.T) {
	g := NewNoOp(Config{CharacterLimit: 20})

	post, err := g.ComposePost(context.Background(), testItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text.CountRunes(post) > 20 {
		t.Errorf("expected at most 20 runes, got %d (%q)", text.CountRunes(post), post)
	}
}
