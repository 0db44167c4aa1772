package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Alert is a notification about a failure serious enough to page on.
type Alert struct {
	Title     string
	Message   string
	Severity  Severity
	Component string
	Metadata  map[string]any
}

// Alerter delivers alerts for high and critical severity failures.
// Implementations must be safe for concurrent use.
type Alerter interface {
	TriggerAlert(ctx context.Context, alert Alert) error
}

// MetricsSink receives error handling observations.
// Implementations must be safe for concurrent use.
type MetricsSink interface {
	// RecordError records one classified failure.
	RecordError(component, errorType, category, severity string)

	// RecordRecovery records the outcome of a recovery attempt.
	RecordRecovery(component, strategy, errorType string, successful bool)
}

// NoopAlerter discards all alerts.
type NoopAlerter struct{}

// TriggerAlert does nothing.
func (NoopAlerter) TriggerAlert(ctx context.Context, alert Alert) error { return nil }

// NoopMetricsSink discards all observations.
type NoopMetricsSink struct{}

// RecordError does nothing.
func (NoopMetricsSink) RecordError(component, errorType, category, severity string) {}

// RecordRecovery does nothing.
func (NoopMetricsSink) RecordRecovery(component, strategy, errorType string, successful bool) {}

// recentRecordLimit caps the records returned by Stats.
const recentRecordLimit = 10

// Orchestrator is the central error handler: it classifies failures, runs
// recovery strategies, keeps an audit trail and raises alerts on severe
// failures. One orchestrator instance is shared by all components of a
// process and is safe for concurrent use.
type Orchestrator struct {
	metrics MetricsSink
	alerter Alerter

	mu         sync.Mutex
	strategies []Strategy
	records    []*Record
}

// NewOrchestrator creates an Orchestrator with the default strategy chain:
// retry, then auth recovery, then config recovery. A nil metrics sink or
// alerter is replaced with a no-op implementation.
func NewOrchestrator(metrics MetricsSink, alerter Alerter) *Orchestrator {
	if metrics == nil {
		metrics = NoopMetricsSink{}
	}
	if alerter == nil {
		alerter = NoopAlerter{}
	}
	return &Orchestrator{
		metrics: metrics,
		alerter: alerter,
		strategies: []Strategy{
			NewRetryStrategy(),
			NewAuthRecoveryStrategy(),
			NewConfigRecoveryStrategy(),
		},
	}
}

// RegisterStrategy appends a strategy to the chain. Strategies are consulted
// in registration order.
func (o *Orchestrator) RegisterStrategy(s Strategy) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.strategies = append(o.strategies, s)
}

// Handle classifies err and optionally runs the recovery chain. It returns
// nil when a strategy recovered and the caller should re-invoke the
// operation; only when the failure stands is the record appended to the
// audit trail and returned. A nil err returns nil without recording
// anything.
func (o *Orchestrator) Handle(ctx context.Context, err error, ectx *ErrorContext, attemptRecovery bool) *Record {
	if err == nil {
		return nil
	}
	if ectx == nil {
		ectx = NewErrorContext("unknown", "unknown")
	}
	if ectx.Metadata == nil {
		ectx.Metadata = make(map[string]any)
	}

	category := Classify(err)
	severity := SeverityFor(err, category)

	record := &Record{
		Timestamp:  time.Now(),
		ErrorType:  fmt.Sprintf("%T", err),
		Message:    err.Error(),
		Category:   category,
		Severity:   severity,
		Context:    ectx,
		StackTrace: string(debug.Stack()),
	}

	o.logRecord(record)
	o.metrics.RecordError(ectx.Component, record.ErrorType, category.String(), severity.String())

	if attemptRecovery && o.attemptRecovery(ctx, err, ectx, record) {
		return nil
	}

	o.mu.Lock()
	o.records = append(o.records, record)
	o.mu.Unlock()

	if severity >= SeverityHigh {
		o.alert(ctx, record)
	}
	return record
}

// attemptRecovery runs the first matching strategy for up to its attempt
// budget. No further strategies are consulted once one has matched, even if
// it exhausts its attempts without recovering.
func (o *Orchestrator) attemptRecovery(ctx context.Context, err error, ectx *ErrorContext, record *Record) bool {
	o.mu.Lock()
	strategies := make([]Strategy, len(o.strategies))
	copy(strategies, o.strategies)
	o.mu.Unlock()

	for _, strategy := range strategies {
		if !strategy.CanRecover(err, ectx) {
			continue
		}

		record.RecoveryAttempted = true
		for attempt := 0; attempt < strategy.MaxAttempts(); attempt++ {
			if ctx.Err() != nil {
				break
			}
			if strategy.Recover(ctx, err, ectx, attempt) {
				record.RecoverySuccessful = true
				record.RetryCount = attempt + 1
				slog.Info("error recovered",
					slog.String("context", ectx.String()),
					slog.String("strategy", strategy.Name()),
					slog.Int("attempt", attempt+1),
				)
				o.metrics.RecordRecovery(ectx.Component, strategy.Name(), record.ErrorType, true)
				return true
			}
			record.RetryCount = attempt + 1
		}

		slog.Warn("recovery exhausted",
			slog.String("context", ectx.String()),
			slog.String("strategy", strategy.Name()),
			slog.Int("attempts", strategy.MaxAttempts()),
		)
		o.metrics.RecordRecovery(ectx.Component, strategy.Name(), record.ErrorType, false)
		return false
	}

	return false
}

// logRecord writes the classified failure to the structured log at a level
// proportional to its severity.
func (o *Orchestrator) logRecord(record *Record) {
	attrs := []any{
		slog.String("context", record.Context.String()),
		slog.String("error_type", record.ErrorType),
		slog.String("category", record.Category.String()),
		slog.String("severity", record.Severity.String()),
		slog.String("error", record.Message),
	}

	switch record.Severity {
	case SeverityCritical, SeverityHigh:
		slog.Error("error handled", attrs...)
	case SeverityMedium:
		slog.Warn("error handled", attrs...)
	default:
		slog.Info("error handled", attrs...)
	}
}

// alert delivers a notification for a high or critical severity record.
// Alert delivery failures are logged and swallowed; alerting must never make
// the original failure worse.
func (o *Orchestrator) alert(ctx context.Context, record *Record) {
	alert := Alert{
		Title:     fmt.Sprintf("%s error in %s", strings.ToUpper(record.Severity.String()), record.Context.Component),
		Message:   fmt.Sprintf("%s: %s", record.ErrorType, record.Message),
		Severity:  record.Severity,
		Component: record.Context.Component,
		Metadata: map[string]any{
			"category":            record.Category.String(),
			"operation":           record.Context.Operation,
			"timestamp":           record.Timestamp.Format(time.RFC3339),
			"recovery_attempted":  record.RecoveryAttempted,
			"recovery_successful": record.RecoverySuccessful,
		},
	}

	if err := o.alerter.TriggerAlert(ctx, alert); err != nil {
		slog.Error("alert delivery failed",
			slog.String("component", alert.Component),
			slog.String("error", err.Error()),
		)
	}
}

// Records returns a copy of the audit trail in arrival order.
func (o *Orchestrator) Records() []Record {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Record, len(o.records))
	for i, r := range o.records {
		out[i] = *r
	}
	return out
}

// Stats summarizes the audit trail.
type Stats struct {
	TotalErrors  int
	BySeverity   map[string]int
	ByCategory   map[string]int
	ByComponent  map[string]int
	RecoveryRate float64
	Recent       []Record
}

// Stats returns aggregate counts over the audit trail, the recovery success
// rate among records where recovery was attempted, and the most recent
// records.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	stats := Stats{
		TotalErrors: len(o.records),
		BySeverity:  make(map[string]int),
		ByCategory:  make(map[string]int),
		ByComponent: make(map[string]int),
	}

	attempted, succeeded := 0, 0
	for _, r := range o.records {
		stats.BySeverity[r.Severity.String()]++
		stats.ByCategory[r.Category.String()]++
		stats.ByComponent[r.Context.Component]++
		if r.RecoveryAttempted {
			attempted++
			if r.RecoverySuccessful {
				succeeded++
			}
		}
	}
	if attempted > 0 {
		stats.RecoveryRate = float64(succeeded) / float64(attempted) * 100
	}

	start := len(o.records) - recentRecordLimit
	if start < 0 {
		start = 0
	}
	for _, r := range o.records[start:] {
		stats.Recent = append(stats.Recent, *r)
	}
	return stats
}

// PruneOlderThan drops records older than maxAge from the audit trail and
// returns how many were removed.
func (o *Orchestrator) PruneOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	o.mu.Lock()
	defer o.mu.Unlock()

	kept := o.records[:0]
	for _, r := range o.records {
		if r.Timestamp.After(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(o.records) - len(kept)
	o.records = kept
	return removed
}
