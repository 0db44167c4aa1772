package circuitbreaker

import "time"

// Clock provides an abstraction for time operations to enable testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// Metrics receives circuit breaker state changes and call outcomes.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// RecordBreakerState records a state transition for the named breaker.
	RecordBreakerState(name, state string)

	// RecordBreakerCall records one call outcome for the named breaker.
	// Outcome is one of "success", "failure", "timeout", "rejected".
	RecordBreakerCall(name, outcome string, duration time.Duration)
}

// NoopMetrics is a Metrics implementation that discards all observations.
type NoopMetrics struct{}

// RecordBreakerState does nothing.
func (m *NoopMetrics) RecordBreakerState(name, state string) {}

// RecordBreakerCall does nothing.
func (m *NoopMetrics) RecordBreakerCall(name, outcome string, duration time.Duration) {}
