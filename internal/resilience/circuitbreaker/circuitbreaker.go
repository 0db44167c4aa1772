// Package circuitbreaker implements a per-dependency circuit breaker for external
// service calls. Each breaker tracks call outcomes and stops forwarding work to a
// dependency that keeps failing, letting it recover before traffic resumes.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrOpenState is returned when a call is rejected because the circuit is open.
// It is a distinct failure mode from the wrapped operation's own errors: the
// operation was never invoked. Callers should check with errors.Is.
var ErrOpenState = errors.New("circuit breaker is open")

// State represents the current state of a circuit breaker.
type State int

const (
	// StateClosed indicates normal operation: calls pass through.
	StateClosed State = iota

	// StateOpen indicates the dependency is considered unhealthy: calls are
	// rejected immediately without invoking the operation.
	StateOpen

	// StateHalfOpen indicates the breaker is testing recovery: a trial cohort
	// of calls is allowed through to probe the dependency.
	StateHalfOpen
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the policy for a circuit breaker. All thresholds must be
// strictly positive; New substitutes defaults for zero or negative values.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before a call may
	// transition it to half-open.
	RecoveryTimeout time.Duration

	// SuccessThreshold is the number of consecutive successes required to close
	// the circuit from half-open.
	SuccessThreshold int

	// CallTimeout is the per-call time budget. A call whose measured duration
	// meets or exceeds it is recorded as a timeout failure. The budget is
	// accounting only: the operation is responsible for honoring cancellation
	// itself, the breaker never preempts it.
	CallTimeout time.Duration

	// RetryableStatusCodes is the set of HTTP status codes that downstream
	// recovery logic treats as transient for this dependency.
	RetryableStatusCodes map[int]struct{}

	// Clock provides time abstraction for testing. Default: SystemClock.
	Clock Clock

	// Metrics records state changes and call outcomes. Default: NoopMetrics.
	Metrics Metrics
}

// DefaultConfig returns the default circuit breaker policy.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:     5,
		RecoveryTimeout:      60 * time.Second,
		SuccessThreshold:     3,
		CallTimeout:          30 * time.Second,
		RetryableStatusCodes: StatusCodeSet(429, 500, 502, 503, 504),
	}
}

// NewsAPIConfig returns a policy tuned for news feed retrieval.
// Feeds fail often and recover on their own, so the breaker is lenient.
func NewsAPIConfig() Config {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 8
	cfg.RecoveryTimeout = 120 * time.Second
	cfg.CallTimeout = 20 * time.Second
	return cfg
}

// GeneratorConfig returns a policy tuned for AI text generation calls.
// Generation is expensive, so the circuit trips early.
func GeneratorConfig() Config {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 3
	cfg.RecoveryTimeout = 90 * time.Second
	cfg.CallTimeout = 60 * time.Second
	return cfg
}

// PublisherConfig returns a policy tuned for publishing posts.
func PublisherConfig() Config {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 5
	cfg.RecoveryTimeout = 60 * time.Second
	cfg.CallTimeout = 15 * time.Second
	return cfg
}

// StatusCodeSet builds a status code set from the given codes.
func StatusCodeSet(codes ...int) map[int]struct{} {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// Stats holds the observed counters for a circuit breaker. All fields are
// mutated only inside the breaker's critical section; StatsSnapshot returns
// a consistent copy.
type Stats struct {
	TotalCalls           int64
	SuccessCount         int64
	FailureCount         int64
	TimeoutCount         int64
	TimesOpened          int64
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastFailureAt        time.Time
	LastSuccessAt        time.Time
}

// SuccessRate returns the percentage of successful completed calls, or 100
// when no call has completed yet.
func (s Stats) SuccessRate() float64 {
	completed := s.SuccessCount + s.FailureCount
	if completed == 0 {
		return 100.0
	}
	return float64(s.SuccessCount) / float64(completed) * 100.0
}

// CircuitBreaker gates execution of calls to a single named dependency.
//
// The breaker cycles through three states:
//
//   - Closed: calls pass through; consecutive failures at or above
//     FailureThreshold open the circuit.
//   - Open: calls are rejected with ErrOpenState; after RecoveryTimeout the
//     next call attempt moves the circuit to half-open.
//   - HalfOpen: trial calls are admitted; SuccessThreshold consecutive
//     successes close the circuit, any single failure reopens it.
//
// State, stats, and the open timestamp form one shared mutable unit guarded
// by a single mutex. The wrapped operation executes outside the lock so slow
// calls never block other callers' admission checks.
type CircuitBreaker struct {
	name   string
	config Config

	mu       sync.Mutex
	state    State
	stats    Stats
	openedAt time.Time
}

// New creates a circuit breaker with the given name and policy.
// Zero or negative policy values are replaced with defaults.
func New(name string, config Config) *CircuitBreaker {
	def := DefaultConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = def.RecoveryTimeout
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = def.CallTimeout
	}
	if config.RetryableStatusCodes == nil {
		config.RetryableStatusCodes = def.RetryableStatusCodes
	}
	if config.Clock == nil {
		config.Clock = &SystemClock{}
	}
	if config.Metrics == nil {
		config.Metrics = &NoopMetrics{}
	}

	cb := &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
	}
	config.Metrics.RecordBreakerState(name, StateClosed.String())

	slog.Info("circuit breaker initialized",
		slog.String("circuit", name),
		slog.Int("failure_threshold", config.FailureThreshold),
		slog.Duration("recovery_timeout", config.RecoveryTimeout),
		slog.Int("success_threshold", config.SuccessThreshold),
		slog.Duration("call_timeout", config.CallTimeout))

	return cb
}

// Execute runs op with circuit breaker protection.
//
// If the circuit is open and the recovery timeout has not elapsed, op is not
// invoked and Execute returns an error wrapping ErrOpenState. Otherwise op
// runs with ctx passed through unchanged, its duration is measured against
// CallTimeout, and the outcome is recorded. The operation's own error is
// always propagated unchanged; the breaker never masks an underlying failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	start := cb.config.Clock.Now()
	err := op(ctx)
	elapsed := cb.config.Clock.Now().Sub(start)

	cb.record(err, elapsed)
	return err
}

// admit performs the pre-call admission check under the critical section.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.TotalCalls++

	if cb.state == StateOpen {
		now := cb.config.Clock.Now()
		if now.Sub(cb.openedAt) >= cb.config.RecoveryTimeout {
			cb.toHalfOpen()
		} else {
			slog.Warn("circuit breaker rejecting call",
				slog.String("circuit", cb.name),
				slog.Duration("retry_in", cb.config.RecoveryTimeout-now.Sub(cb.openedAt)))
			cb.config.Metrics.RecordBreakerCall(cb.name, "rejected", 0)
			return fmt.Errorf("circuit breaker %q is open: %w", cb.name, ErrOpenState)
		}
	}

	return nil
}

// record applies post-call bookkeeping under the critical section.
// A call whose duration met the CallTimeout budget counts as a timeout
// failure even when the operation returned normally; the budget is a
// trip-wire, not a cancellation mechanism.
func (cb *CircuitBreaker) record(err error, elapsed time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	timedOut := elapsed >= cb.config.CallTimeout

	if err == nil && !timedOut {
		cb.recordSuccess(elapsed)
		return
	}
	cb.recordFailure(err, elapsed, timedOut)
}

func (cb *CircuitBreaker) recordSuccess(elapsed time.Duration) {
	cb.stats.SuccessCount++
	cb.stats.ConsecutiveFailures = 0
	cb.stats.ConsecutiveSuccesses++
	cb.stats.LastSuccessAt = cb.config.Clock.Now()

	cb.config.Metrics.RecordBreakerCall(cb.name, "success", elapsed)

	if cb.state == StateHalfOpen && cb.stats.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
		cb.toClosed()
	}
}

func (cb *CircuitBreaker) recordFailure(err error, elapsed time.Duration, timedOut bool) {
	cb.stats.FailureCount++
	cb.stats.ConsecutiveSuccesses = 0
	cb.stats.ConsecutiveFailures++
	cb.stats.LastFailureAt = cb.config.Clock.Now()

	outcome := "failure"
	if timedOut {
		cb.stats.TimeoutCount++
		outcome = "timeout"
	}
	cb.config.Metrics.RecordBreakerCall(cb.name, outcome, elapsed)

	slog.Warn("circuit breaker recorded failure",
		slog.String("circuit", cb.name),
		slog.Any("error", err),
		slog.Duration("elapsed", elapsed),
		slog.Bool("timed_out", timedOut),
		slog.Int("consecutive_failures", cb.stats.ConsecutiveFailures))

	switch {
	case cb.state == StateHalfOpen:
		// No leniency while probing: a single failure reopens the circuit.
		cb.toOpen()
	case cb.state == StateClosed && cb.stats.ConsecutiveFailures >= cb.config.FailureThreshold:
		cb.toOpen()
	}
}

// toOpen transitions to open. Caller must hold the lock.
func (cb *CircuitBreaker) toOpen() {
	from := cb.state
	cb.state = StateOpen
	cb.openedAt = cb.config.Clock.Now()
	cb.stats.TimesOpened++
	cb.config.Metrics.RecordBreakerState(cb.name, StateOpen.String())

	slog.Error("circuit breaker opened",
		slog.String("circuit", cb.name),
		slog.String("previous_state", from.String()),
		slog.Int("consecutive_failures", cb.stats.ConsecutiveFailures),
		slog.Duration("recovery_timeout", cb.config.RecoveryTimeout))
}

// toHalfOpen transitions to half-open. Caller must hold the lock.
func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.stats.ConsecutiveSuccesses = 0
	cb.config.Metrics.RecordBreakerState(cb.name, StateHalfOpen.String())

	slog.Info("circuit breaker half-open, probing recovery",
		slog.String("circuit", cb.name))
}

// toClosed transitions to closed. Caller must hold the lock.
func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.stats.ConsecutiveFailures = 0
	cb.config.Metrics.RecordBreakerState(cb.name, StateClosed.String())

	slog.Info("circuit breaker closed",
		slog.String("circuit", cb.name),
		slog.Int("consecutive_successes", cb.stats.ConsecutiveSuccesses))
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// IsOpen returns true if the circuit is currently open.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// StatsSnapshot returns a consistent copy of the breaker's counters.
func (cb *CircuitBreaker) StatsSnapshot() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// Config returns the breaker's policy.
func (cb *CircuitBreaker) Config() Config {
	return cb.config
}

// Reset forces the circuit to closed and clears the consecutive counters.
// Cumulative counters keep their history.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.stats.ConsecutiveFailures = 0
	cb.stats.ConsecutiveSuccesses = 0
	cb.openedAt = time.Time{}
	cb.config.Metrics.RecordBreakerState(cb.name, StateClosed.String())

	slog.Info("circuit breaker manually reset", slog.String("circuit", cb.name))
}

// ForceOpen forces the circuit open immediately, regardless of counters.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		cb.toOpen()
	}
	slog.Info("circuit breaker manually opened", slog.String("circuit", cb.name))
}
