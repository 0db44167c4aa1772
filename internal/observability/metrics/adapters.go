package metrics

import "time"

// breakerStateValues maps breaker state names to the gauge encoding.
var breakerStateValues = map[string]float64{
	"closed":    0,
	"open":      1,
	"half-open": 2,
}

// BreakerRecorder adapts the Prometheus collectors to the circuit breaker's
// metrics interface.
type BreakerRecorder struct{}

// NewBreakerRecorder creates a BreakerRecorder.
func NewBreakerRecorder() *BreakerRecorder {
	return &BreakerRecorder{}
}

// RecordBreakerState records a breaker state transition.
func (r *BreakerRecorder) RecordBreakerState(name, state string) {
	BreakerTransitionsTotal.WithLabelValues(name, state).Inc()
	if v, ok := breakerStateValues[state]; ok {
		BreakerState.WithLabelValues(name).Set(v)
	}
}

// RecordBreakerCall records one call outcome observed by a breaker.
func (r *BreakerRecorder) RecordBreakerCall(name, outcome string, duration time.Duration) {
	BreakerCallsTotal.WithLabelValues(name, outcome).Inc()
	if outcome != "rejected" {
		BreakerCallDuration.WithLabelValues(name).Observe(duration.Seconds())
	}
}

// ErrorSink adapts the Prometheus collectors to the recovery orchestrator's
// metrics sink interface.
type ErrorSink struct{}

// NewErrorSink creates an ErrorSink.
func NewErrorSink() *ErrorSink {
	return &ErrorSink{}
}

// RecordError records one classified failure.
func (s *ErrorSink) RecordError(component, errorType, category, severity string) {
	ErrorsTotal.WithLabelValues(component, errorType, category, severity).Inc()
}

// RecordRecovery records the outcome of a recovery attempt.
func (s *ErrorSink) RecordRecovery(component, strategy, errorType string, successful bool) {
	result := "failure"
	if successful {
		result = "success"
	}
	RecoveriesTotal.WithLabelValues(component, strategy, errorType, result).Inc()
}
