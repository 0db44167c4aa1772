package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pulsepost/internal/resilience/recovery"
)

// testOpenAI builds an OpenAI generator pointed at a local server.
func testOpenAI(serverURL string) *OpenAI {
	clientConfig := openai.DefaultConfig("test-key")
	clientConfig.BaseURL = serverURL + "/v1"

	config := Config{Provider: "openai", CharacterLimit: 300, Timeout: 5 * time.Second}
	config.applyDefaults()
	config.Model = defaultOpenAIModel

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

func TestOpenAI_ComposePost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: "Bitcoin crossed $100k for the first time today.",
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	g := testOpenAI(server.URL)

	post, err := g.ComposePost(context.Background(), testItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post != "Bitcoin crossed $100k for the first time today." {
		t.Errorf("unexpected post: %q", post)
	}
}

func TestOpenAI_ComposePost_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	g := testOpenAI(server.URL)

	_, err := g.ComposePost(context.Background(), testItem())
	if err == nil {
		t.Fatal("expected error")
	}

	var statusErr *recovery.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", statusErr.StatusCode)
	}
}

func TestOpenAI_ComposePost_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	g := testOpenAI(server.URL)

	_, err := g.ComposePost(context.Background(), testItem())
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
	if recovery.Classify(err) != recovery.CategoryAPI {
		t.Errorf("expected API classification, got %v", recovery.Classify(err))
	}
}
