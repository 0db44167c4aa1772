package recovery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeStrategy scripts CanRecover/Recover outcomes for orchestrator tests.
type fakeStrategy struct {
	name     string
	max      int
	can      bool
	recovers bool

	mu           sync.Mutex
	canCalls     int
	recoverCalls int
}

func (s *fakeStrategy) Name() string     { return s.name }
func (s *fakeStrategy) MaxAttempts() int { return s.max }

func (s *fakeStrategy) CanRecover(err error, ectx *ErrorContext) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canCalls++
	return s.can
}

func (s *fakeStrategy) Recover(ctx context.Context, err error, ectx *ErrorContext, attempt int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoverCalls++
	return s.recovers
}

// captureAlerter records every alert it is asked to deliver.
type captureAlerter struct {
	mu     sync.Mutex
	alerts []Alert
}

func (a *captureAlerter) TriggerAlert(ctx context.Context, alert Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

type capturedError struct {
	component, errorType, category, severity string
}

type capturedRecovery struct {
	component, strategy string
	successful          bool
}

// captureMetrics records every observation.
type captureMetrics struct {
	mu         sync.Mutex
	errors     []capturedError
	recoveries []capturedRecovery
}

func (m *captureMetrics) RecordError(component, errorType, category, severity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, capturedError{component, errorType, category, severity})
}

func (m *captureMetrics) RecordRecovery(component, strategy, errorType string, successful bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoveries = append(m.recoveries, capturedRecovery{component, strategy, successful})
}

func TestHandle_NilError(t *testing.T) {
	o := NewOrchestrator(nil, nil)

	if record := o.Handle(context.Background(), nil, NewErrorContext("c", "o"), true); record != nil {
		t.Errorf("expected nil for nil error, got %+v", record)
	}
	if got := len(o.Records()); got != 0 {
		t.Errorf("expected no records, got %d", got)
	}
}

func TestHandle_NoRecovery(t *testing.T) {
	metrics := &captureMetrics{}
	o := NewOrchestrator(metrics, nil)

	err := errors.New("connection refused")
	record := o.Handle(context.Background(), err, NewErrorContext("news", "fetch"), false)

	if record == nil {
		t.Fatal("expected a record when recovery is not attempted")
	}
	if record.Category != CategoryNetwork {
		t.Errorf("expected network category, got %v", record.Category)
	}
	if record.Severity != SeverityLow {
		t.Errorf("expected low severity, got %v", record.Severity)
	}
	if record.RecoveryAttempted {
		t.Error("recovery must not be attempted when disabled")
	}
	if record.Message != "connection refused" {
		t.Errorf("unexpected message: %q", record.Message)
	}
	if record.StackTrace == "" {
		t.Error("expected a captured stack trace")
	}

	if len(metrics.errors) != 1 {
		t.Fatalf("expected 1 error observation, got %d", len(metrics.errors))
	}
	got := metrics.errors[0]
	if got.component != "news" || got.category != "network" || got.severity != "low" {
		t.Errorf("unexpected observation: %+v", got)
	}
}

func TestHandle_RecoverySucceeds(t *testing.T) {
	metrics := &captureMetrics{}
	o := NewOrchestrator(metrics, nil)
	strategy := &fakeStrategy{name: "fake", max: 3, can: true, recovers: true}
	o.strategies = []Strategy{strategy}

	record := o.Handle(context.Background(), errors.New("boom"), NewErrorContext("c", "o"), true)

	if record != nil {
		t.Fatalf("expected nil on successful recovery, got %+v", record)
	}

	// A recovered failure leaves no trace in the audit trail.
	if records := o.Records(); len(records) != 0 {
		t.Fatalf("expected no records after recovery, got %d", len(records))
	}
	if stats := o.Stats(); stats.TotalErrors != 0 {
		t.Errorf("expected TotalErrors=0 after recovery, got %d", stats.TotalErrors)
	}
	if strategy.recoverCalls != 1 {
		t.Errorf("expected exactly 1 recover call, got %d", strategy.recoverCalls)
	}

	if len(metrics.recoveries) != 1 || !metrics.recoveries[0].successful {
		t.Errorf("expected 1 successful recovery observation, got %+v", metrics.recoveries)
	}
}

func TestHandle_ExhaustedRecoveryLeavesOneRecord(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	strategy := &fakeStrategy{name: "fake", max: 2, can: true, recovers: false}
	o.strategies = []Strategy{strategy}

	record := o.Handle(context.Background(), errors.New("boom"), NewErrorContext("c", "o"), true)

	if record == nil {
		t.Fatal("expected a record when recovery fails")
	}

	records := o.Records()
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(records))
	}
	if !records[0].RecoveryAttempted || records[0].RecoverySuccessful {
		t.Errorf("expected attempted but unsuccessful, got %+v", records[0])
	}
	if records[0].RetryCount != 2 {
		t.Errorf("expected RetryCount=2 (full budget), got %d", records[0].RetryCount)
	}
}

func TestHandle_FirstMatchOwnsTheFailure(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	exhausted := &fakeStrategy{name: "exhausted", max: 2, can: true, recovers: false}
	fallback := &fakeStrategy{name: "fallback", max: 1, can: true, recovers: true}
	o.strategies = []Strategy{exhausted, fallback}

	record := o.Handle(context.Background(), errors.New("boom"), NewErrorContext("c", "o"), true)

	if record == nil {
		t.Fatal("expected a record when the matched strategy is exhausted")
	}
	if !record.RecoveryAttempted || record.RecoverySuccessful {
		t.Errorf("expected attempted but unsuccessful, got %+v", record)
	}
	if exhausted.recoverCalls != 2 {
		t.Errorf("expected the matched strategy to use its full budget, got %d", exhausted.recoverCalls)
	}
	if fallback.canCalls != 0 || fallback.recoverCalls != 0 {
		t.Error("no further strategies may be consulted after the first match")
	}
}

func TestHandle_NoMatchingStrategy(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	strategy := &fakeStrategy{name: "fake", max: 3, can: false}
	o.strategies = []Strategy{strategy}

	record := o.Handle(context.Background(), errors.New("boom"), NewErrorContext("c", "o"), true)

	if record == nil {
		t.Fatal("expected a record when nothing matches")
	}
	if record.RecoveryAttempted {
		t.Error("recovery must not be marked attempted when nothing matched")
	}
	if strategy.recoverCalls != 0 {
		t.Errorf("expected no recover calls, got %d", strategy.recoverCalls)
	}
}

func TestHandle_AlertsOnHighSeverity(t *testing.T) {
	alerter := &captureAlerter{}
	o := NewOrchestrator(nil, alerter)
	o.strategies = nil

	record := o.Handle(context.Background(), errors.New("disk full"), NewErrorContext("storage", "write"), true)
	if record == nil {
		t.Fatal("expected a record")
	}

	if len(alerter.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerter.alerts))
	}
	alert := alerter.alerts[0]
	if !strings.Contains(alert.Title, "HIGH") {
		t.Errorf("expected severity in title, got %q", alert.Title)
	}
	if !strings.Contains(alert.Title, "storage") {
		t.Errorf("expected component in title, got %q", alert.Title)
	}
	if alert.Severity != SeverityHigh {
		t.Errorf("expected high severity, got %v", alert.Severity)
	}
	if alert.Metadata["category"] != "system" {
		t.Errorf("expected system category in metadata, got %v", alert.Metadata["category"])
	}
}

func TestHandle_NoAlertOnLowSeverity(t *testing.T) {
	alerter := &captureAlerter{}
	o := NewOrchestrator(nil, alerter)
	o.strategies = nil

	_ = o.Handle(context.Background(), errors.New("something odd"), NewErrorContext("c", "o"), true)

	if len(alerter.alerts) != 0 {
		t.Errorf("expected no alerts for low severity, got %d", len(alerter.alerts))
	}
}

func TestHandle_NoAlertWhenRecovered(t *testing.T) {
	alerter := &captureAlerter{}
	o := NewOrchestrator(nil, alerter)
	o.strategies = []Strategy{&fakeStrategy{name: "fake", max: 1, can: true, recovers: true}}

	// High severity, but recovery succeeds, so nothing to page on.
	record := o.Handle(context.Background(), errors.New("disk full"), NewErrorContext("storage", "write"), true)
	if record != nil {
		t.Fatalf("expected recovery, got %+v", record)
	}
	if len(alerter.alerts) != 0 {
		t.Errorf("expected no alerts after recovery, got %d", len(alerter.alerts))
	}
}

func TestHandle_NilContext(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	o.strategies = nil

	record := o.Handle(context.Background(), errors.New("boom"), nil, false)
	if record == nil {
		t.Fatal("expected a record")
	}
	if record.Context == nil || record.Context.Component != "unknown" {
		t.Errorf("expected placeholder context, got %+v", record.Context)
	}
}

func TestRegisterStrategy(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	o.strategies = nil
	strategy := &fakeStrategy{name: "custom", max: 1, can: true, recovers: true}

	o.RegisterStrategy(strategy)

	if record := o.Handle(context.Background(), errors.New("boom"), NewErrorContext("c", "o"), true); record != nil {
		t.Errorf("expected registered strategy to recover, got %+v", record)
	}
}

func TestStats(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	o.strategies = []Strategy{&fakeStrategy{name: "fake", max: 1, can: true, recovers: false}}

	_ = o.Handle(context.Background(), errors.New("connection refused"), NewErrorContext("news", "fetch"), true)
	_ = o.Handle(context.Background(), errors.New("disk full"), NewErrorContext("storage", "write"), false)
	_ = o.Handle(context.Background(), errors.New("401 unauthorized"), NewErrorContext("bluesky", "post"), false)

	stats := o.Stats()
	if stats.TotalErrors != 3 {
		t.Errorf("expected 3 errors, got %d", stats.TotalErrors)
	}
	if stats.ByCategory["network"] != 1 || stats.ByCategory["system"] != 1 || stats.ByCategory["authentication"] != 1 {
		t.Errorf("unexpected category counts: %+v", stats.ByCategory)
	}
	if stats.BySeverity["high"] != 1 {
		t.Errorf("expected 1 high severity record, got %+v", stats.BySeverity)
	}
	if stats.ByComponent["news"] != 1 {
		t.Errorf("unexpected component counts: %+v", stats.ByComponent)
	}
	// One recorded attempt, no success: recovered failures never reach the
	// trail, so only exhausted attempts count.
	if stats.RecoveryRate != 0.0 {
		t.Errorf("expected 0%% recovery rate, got %f", stats.RecoveryRate)
	}
	if len(stats.Recent) != 3 {
		t.Errorf("expected 3 recent records, got %d", len(stats.Recent))
	}
}

func TestStats_RecoveredFailuresAreNotCounted(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	o.strategies = []Strategy{&fakeStrategy{name: "fake", max: 1, can: true, recovers: true}}

	_ = o.Handle(context.Background(), errors.New("connection refused"), NewErrorContext("news", "fetch"), true)
	_ = o.Handle(context.Background(), errors.New("something odd"), NewErrorContext("news", "fetch"), false)

	stats := o.Stats()
	if stats.TotalErrors != 1 {
		t.Errorf("expected only the unrecovered failure counted, got %d", stats.TotalErrors)
	}
	if stats.ByCategory["network"] != 0 {
		t.Errorf("recovered failure must not appear in category counts: %+v", stats.ByCategory)
	}
}

func TestStats_RecentIsCapped(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	o.strategies = nil

	for i := 0; i < recentRecordLimit+5; i++ {
		_ = o.Handle(context.Background(), errors.New("boom"), NewErrorContext("c", "o"), false)
	}

	stats := o.Stats()
	if len(stats.Recent) != recentRecordLimit {
		t.Errorf("expected %d recent records, got %d", recentRecordLimit, len(stats.Recent))
	}
}

func TestPruneOlderThan(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	o.strategies = nil

	for i := 0; i < 3; i++ {
		_ = o.Handle(context.Background(), errors.New("boom"), NewErrorContext("c", "o"), false)
	}

	o.mu.Lock()
	o.records[0].Timestamp = time.Now().Add(-2 * time.Hour)
	o.mu.Unlock()

	if removed := o.PruneOlderThan(time.Hour); removed != 1 {
		t.Errorf("expected 1 record removed, got %d", removed)
	}
	if got := len(o.Records()); got != 2 {
		t.Errorf("expected 2 records left, got %d", got)
	}
	if removed := o.PruneOlderThan(time.Hour); removed != 0 {
		t.Errorf("expected nothing more to remove, got %d", removed)
	}
}
