package recovery

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryStrategy() *RetryStrategy {
	s := NewRetryStrategy()
	s.baseDelay = time.Millisecond
	s.maxDelay = 4 * time.Millisecond
	return s
}

func TestRetryStrategy_CanRecover(t *testing.T) {
	s := NewRetryStrategy()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable status", &StatusError{StatusCode: 503, Message: "unavailable"}, true},
		{"rate limited", &StatusError{StatusCode: 429, Message: "slow down"}, true},
		{"client error status", &StatusError{StatusCode: 404, Message: "not found"}, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"connection refused", errors.New("connection refused"), true},
		{"timeout message", errors.New("timeout awaiting headers"), true},
		{"validation", errors.New("invalid payload"), false},
		{"unknown", errors.New("something odd"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.CanRecover(tt.err, NewErrorContext("c", "o")); got != tt.want {
				t.Errorf("CanRecover(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryStrategy_CanRecover_TaggedNetwork(t *testing.T) {
	s := NewRetryStrategy()
	err := Tag(errors.New("something odd"), CategoryNetwork)
	if !s.CanRecover(err, NewErrorContext("c", "o")) {
		t.Error("expected tagged network error to be recoverable")
	}
}

func TestRetryStrategy_Recover(t *testing.T) {
	s := fastRetryStrategy()
	ectx := NewErrorContext("publisher", "send")

	if !s.Recover(context.Background(), errors.New("timeout"), ectx, 0) {
		t.Error("expected recovery within attempt budget")
	}
	if s.Recover(context.Background(), errors.New("timeout"), ectx, s.maxAttempts) {
		t.Error("expected false once attempts are exhausted")
	}
}

func TestRetryStrategy_Recover_CancelledContext(t *testing.T) {
	s := fastRetryStrategy()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if s.Recover(ctx, errors.New("timeout"), NewErrorContext("c", "o"), 0) {
		t.Error("expected false when context is cancelled during backoff")
	}
}

func TestAuthRecoveryStrategy(t *testing.T) {
	s := NewAuthRecoveryStrategy()
	ectx := NewErrorContext("bluesky", "create_post")

	if !s.CanRecover(errors.New("401 unauthorized"), ectx) {
		t.Fatal("expected auth error to be recoverable")
	}
	if s.CanRecover(errors.New("disk full"), ectx) {
		t.Error("did not expect non-auth error to match")
	}

	if !s.Recover(context.Background(), errors.New("401 unauthorized"), ectx, 0) {
		t.Fatal("expected recovery within attempt budget")
	}
	if got, ok := ectx.Metadata[MetaAuthRecoveryAttempted].(bool); !ok || !got {
		t.Error("expected auth recovery flag in metadata")
	}

	if s.Recover(context.Background(), errors.New("401 unauthorized"), ectx, s.MaxAttempts()) {
		t.Error("expected false once attempts are exhausted")
	}
}

func TestConfigRecoveryStrategy(t *testing.T) {
	s := NewConfigRecoveryStrategy()
	ectx := NewErrorContext("agent", "load_settings")

	if !s.CanRecover(errors.New("missing environment variable BLUESKY_HANDLE"), ectx) {
		t.Fatal("expected config error to be recoverable")
	}
	if s.CanRecover(errors.New("connection refused"), ectx) {
		t.Error("did not expect non-config error to match")
	}

	if !s.Recover(context.Background(), errors.New("missing setting"), ectx, 0) {
		t.Fatal("expected recovery within attempt budget")
	}
	if got, ok := ectx.Metadata[MetaConfigReloadNeeded].(bool); !ok || !got {
		t.Error("expected config reload flag in metadata")
	}

	if s.Recover(context.Background(), errors.New("missing setting"), ectx, s.MaxAttempts()) {
		t.Error("expected false once attempts are exhausted")
	}
}
