package recovery

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"
)

// Strategy attempts to bring the system back to a state where a failed
// operation can be retried. Strategies are consulted in registration order
// and the first one whose CanRecover returns true owns the failure.
type Strategy interface {
	// Name identifies the strategy in logs, metrics and records.
	Name() string

	// MaxAttempts is the number of recovery rounds the orchestrator runs.
	MaxAttempts() int

	// CanRecover reports whether this strategy applies to the failure.
	CanRecover(err error, ectx *ErrorContext) bool

	// Recover runs one recovery round. attempt is zero-based. A true return
	// means the operation is worth re-invoking.
	Recover(ctx context.Context, err error, ectx *ErrorContext, attempt int) bool
}

// RetryStrategy handles transient failures by waiting with exponential
// backoff before the caller re-invokes the operation.
type RetryStrategy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	retryable   map[int]struct{}
}

// NewRetryStrategy creates a RetryStrategy with 3 attempts, a 1 second base
// delay capped at 60 seconds, and the usual transient HTTP status codes.
func NewRetryStrategy() *RetryStrategy {
	return &RetryStrategy{
		maxAttempts: 3,
		baseDelay:   time.Second,
		maxDelay:    60 * time.Second,
		retryable: map[int]struct{}{
			429: {},
			500: {},
			502: {},
			503: {},
			504: {},
		},
	}
}

// Name implements Strategy.
func (s *RetryStrategy) Name() string { return "retry" }

// MaxAttempts implements Strategy.
func (s *RetryStrategy) MaxAttempts() int { return s.maxAttempts }

// CanRecover reports true for connection and timeout failures and for HTTP
// failures with a retryable status code.
func (s *RetryStrategy) CanRecover(err error, ectx *ErrorContext) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		_, ok := s.retryable[statusErr.StatusCode]
		return ok
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.ETIMEDOUT,
		syscall.ENETUNREACH,
		syscall.EHOSTUNREACH,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	switch Classify(err) {
	case CategoryNetwork, CategoryTimeout:
		return true
	}
	return false
}

// Recover waits min(baseDelay * 2^attempt, maxDelay) and reports success
// unless the attempt budget is spent or the context is cancelled while
// waiting.
func (s *RetryStrategy) Recover(ctx context.Context, err error, ectx *ErrorContext, attempt int) bool {
	if attempt >= s.maxAttempts {
		return false
	}

	delay := s.baseDelay << attempt
	if delay > s.maxDelay || delay <= 0 {
		delay = s.maxDelay
	}

	slog.Info("waiting before retry",
		slog.String("context", ectx.String()),
		slog.Int("attempt", attempt+1),
		slog.Duration("delay", delay),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// AuthRecoveryStrategy handles authentication failures by flagging that the
// session must be re-established. It does not talk to the credential source
// itself; the owning component watches for MetaAuthRecoveryAttempted and
// re-authenticates before the next call.
type AuthRecoveryStrategy struct {
	indicators []string
}

// NewAuthRecoveryStrategy creates an AuthRecoveryStrategy.
func NewAuthRecoveryStrategy() *AuthRecoveryStrategy {
	return &AuthRecoveryStrategy{
		indicators: []string{
			"auth", "unauthorized", "401", "forbidden", "403",
			"token", "credential", "login", "session",
		},
	}
}

// Name implements Strategy.
func (s *AuthRecoveryStrategy) Name() string { return "auth_recovery" }

// MaxAttempts implements Strategy.
func (s *AuthRecoveryStrategy) MaxAttempts() int { return 2 }

// CanRecover reports true when the failure looks authentication related.
func (s *AuthRecoveryStrategy) CanRecover(err error, ectx *ErrorContext) bool {
	if err == nil {
		return false
	}
	if Classify(err) == CategoryAuthentication {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, indicator := range s.indicators {
		if strings.Contains(message, indicator) {
			return true
		}
	}
	return false
}

// Recover marks the context so the caller re-authenticates before retrying.
func (s *AuthRecoveryStrategy) Recover(ctx context.Context, err error, ectx *ErrorContext, attempt int) bool {
	if attempt >= s.MaxAttempts() {
		return false
	}

	slog.Info("requesting re-authentication",
		slog.String("context", ectx.String()),
		slog.Int("attempt", attempt+1),
	)
	ectx.Metadata[MetaAuthRecoveryAttempted] = true
	return true
}

// ConfigRecoveryStrategy handles configuration failures by flagging that
// configuration must be reloaded from its source.
type ConfigRecoveryStrategy struct {
	indicators []string
}

// NewConfigRecoveryStrategy creates a ConfigRecoveryStrategy.
func NewConfigRecoveryStrategy() *ConfigRecoveryStrategy {
	return &ConfigRecoveryStrategy{
		indicators: []string{
			"config", "setting", "parameter", "key",
			"missing", "invalid", "not found", "environment",
		},
	}
}

// Name implements Strategy.
func (s *ConfigRecoveryStrategy) Name() string { return "config_recovery" }

// MaxAttempts implements Strategy.
func (s *ConfigRecoveryStrategy) MaxAttempts() int { return 1 }

// CanRecover reports true when the failure looks configuration related.
func (s *ConfigRecoveryStrategy) CanRecover(err error, ectx *ErrorContext) bool {
	if err == nil {
		return false
	}
	if Classify(err) == CategoryConfiguration {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, indicator := range s.indicators {
		if strings.Contains(message, indicator) {
			return true
		}
	}
	return false
}

// Recover marks the context so the caller reloads configuration before
// retrying.
func (s *ConfigRecoveryStrategy) Recover(ctx context.Context, err error, ectx *ErrorContext, attempt int) bool {
	if attempt >= s.MaxAttempts() {
		return false
	}

	slog.Info("requesting configuration reload",
		slog.String("context", ectx.String()),
	)
	ectx.Metadata[MetaConfigReloadNeeded] = true
	return true
}
