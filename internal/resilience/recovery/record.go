package recovery

import (
	"fmt"
	"time"
)

// Metadata keys set by recovery strategies. Callers inspect these on the
// ErrorContext they passed in and act on them after Handle returns.
const (
	// MetaAuthRecoveryAttempted signals that cached credentials should be
	// discarded and a fresh session established before the next call.
	MetaAuthRecoveryAttempted = "auth_recovery_attempted"

	// MetaConfigReloadNeeded signals that configuration should be reloaded
	// from its source before the next call.
	MetaConfigReloadNeeded = "config_reload_needed"
)

// ErrorContext describes where a failure happened. The caller constructs it
// at the failure site; recovery strategies communicate back through Metadata.
type ErrorContext struct {
	Component string
	Operation string
	RequestID string
	Metadata  map[string]any
}

// NewErrorContext creates an ErrorContext for the given component and
// operation with an empty metadata map.
func NewErrorContext(component, operation string) *ErrorContext {
	return &ErrorContext{
		Component: component,
		Operation: operation,
		Metadata:  make(map[string]any),
	}
}

// String returns a compact component/operation identifier for logging.
func (c *ErrorContext) String() string {
	return fmt.Sprintf("%s.%s", c.Component, c.Operation)
}

// Record is one entry in the orchestrator's audit trail: the classified
// failure plus the outcome of any recovery attempt.
type Record struct {
	Timestamp          time.Time
	ErrorType          string
	Message            string
	Category           Category
	Severity           Severity
	Context            *ErrorContext
	StackTrace         string
	RecoveryAttempted  bool
	RecoverySuccessful bool
	RetryCount         int
}
