// Package alert provides Alerter implementations for delivering high
// severity failure notifications. It includes a Slack webhook alerter with
// rate limiting and cooldown deduplication, a structured-log alerter, and a
// fan-out combinator. All implementations satisfy the recovery.Alerter
// interface and can be swapped through dependency injection.
package alert

import (
	"context"
	"errors"
	"log/slog"

	"pulsepost/internal/resilience/recovery"
)

// SlogAlerter writes alerts to the structured log. It is the fallback
// delivery channel when no webhook is configured: severe failures always
// leave a trace even on a bare deployment.
type SlogAlerter struct {
	logger *slog.Logger
}

// NewSlogAlerter creates a SlogAlerter. A nil logger uses slog.Default.
func NewSlogAlerter(logger *slog.Logger) *SlogAlerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAlerter{logger: logger}
}

// TriggerAlert writes the alert to the log at error level.
func (a *SlogAlerter) TriggerAlert(ctx context.Context, alert recovery.Alert) error {
	a.logger.ErrorContext(ctx, "alert raised",
		slog.String("title", alert.Title),
		slog.String("message", alert.Message),
		slog.String("severity", alert.Severity.String()),
		slog.String("component", alert.Component),
		slog.Any("metadata", alert.Metadata),
	)
	return nil
}

// Multi fans an alert out to several alerters. Delivery failures are
// collected; one failing channel does not stop the others.
type Multi struct {
	alerters []recovery.Alerter
}

// NewMulti creates a fan-out alerter over the given alerters.
func NewMulti(alerters ...recovery.Alerter) *Multi {
	return &Multi{alerters: alerters}
}

// TriggerAlert delivers the alert to every configured alerter and returns
// the joined delivery errors, if any.
func (m *Multi) TriggerAlert(ctx context.Context, alert recovery.Alert) error {
	var errs []error
	for _, a := range m.alerters {
		if err := a.TriggerAlert(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
