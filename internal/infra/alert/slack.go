package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pulsepost/internal/observability/metrics"
	"pulsepost/internal/resilience/recovery"
	"pulsepost/internal/utils/text"
)

// Slack Block Kit limits.
const (
	maxSectionTextLength = 3000
	maxFallbackLength    = 150
	truncationSuffix     = "..."
)

// SlackConfig contains configuration for the Slack webhook alerter.
type SlackConfig struct {
	// WebhookURL is the Slack Incoming Webhook URL.
	WebhookURL string

	// Timeout is the HTTP request timeout for webhook calls.
	Timeout time.Duration

	// Cooldown suppresses repeated alerts for the same component and
	// severity within the window. Zero disables deduplication.
	Cooldown time.Duration
}

// SlackAlerter delivers alerts to Slack via Incoming Webhook.
//
// Deliveries are rate limited to 1 message per second (the webhook limit)
// and deduplicated per component and severity within the cooldown window, so
// a flapping dependency pages once, not once per failure.
type SlackAlerter struct {
	config     SlackConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	clock      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewSlackAlerter creates a SlackAlerter with the given configuration.
func NewSlackAlerter(config SlackConfig) *SlackAlerter {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &SlackAlerter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(1, 1), // Slack webhook limit: 1 msg/s
		clock:      time.Now,
		lastSent:   make(map[string]time.Time),
	}
}

// slackPayload is the webhook JSON body using Block Kit.
type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string           `json:"type"`
	Text     *slackTextObject `json:"text,omitempty"`
	Elements []slackTextObject `json:"elements,omitempty"`
}

type slackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TriggerAlert delivers the alert to Slack, honoring the cooldown window and
// the webhook rate limit.
func (a *SlackAlerter) TriggerAlert(ctx context.Context, alert recovery.Alert) error {
	if a.suppressed(alert) {
		slog.Info("alert suppressed by cooldown",
			slog.String("component", alert.Component),
			slog.String("severity", alert.Severity.String()),
			slog.Duration("cooldown", a.config.Cooldown))
		metrics.RecordAlert("slack", "suppressed")
		return nil
	}

	if err := a.limiter.Wait(ctx); err != nil {
		metrics.RecordAlert("slack", "failure")
		return fmt.Errorf("alert rate limiter: %w", err)
	}

	if err := a.send(ctx, alert); err != nil {
		metrics.RecordAlert("slack", "failure")
		return err
	}

	a.markSent(alert)
	metrics.RecordAlert("slack", "sent")
	return nil
}

// suppressed reports whether an equivalent alert was sent within the
// cooldown window.
func (a *SlackAlerter) suppressed(alert recovery.Alert) bool {
	if a.config.Cooldown <= 0 {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	last, ok := a.lastSent[cooldownKey(alert)]
	return ok && a.clock().Sub(last) < a.config.Cooldown
}

func (a *SlackAlerter) markSent(alert recovery.Alert) {
	if a.config.Cooldown <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSent[cooldownKey(alert)] = a.clock()
}

func cooldownKey(alert recovery.Alert) string {
	return alert.Component + "|" + alert.Severity.String()
}

// send posts the webhook payload and maps non-2xx responses to errors.
func (a *SlackAlerter) send(ctx context.Context, alert recovery.Alert) error {
	payload := buildPayload(alert)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute webhook request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &recovery.StatusError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("slack webhook: %s", string(respBody)),
	}
}

// buildPayload renders the alert as a Block Kit message: a section with the
// title and message, and a context line with component and severity.
func buildPayload(alert recovery.Alert) slackPayload {
	fallback := text.Truncate(alert.Title, maxFallbackLength, truncationSuffix)

	sectionText := fmt.Sprintf("*%s*\n\n%s", alert.Title, alert.Message)
	if len(alert.Metadata) > 0 {
		if meta, err := json.Marshal(alert.Metadata); err == nil {
			sectionText = fmt.Sprintf("%s\n```%s```", sectionText, string(meta))
		}
	}
	sectionText = text.Truncate(sectionText, maxSectionTextLength, truncationSuffix)

	contextText := fmt.Sprintf("%s • %s", alert.Component, alert.Severity.String())

	return slackPayload{
		Text: fallback,
		Blocks: []slackBlock{
			{
				Type: "section",
				Text: &slackTextObject{Type: "mrkdwn", Text: sectionText},
			},
			{
				Type: "context",
				Elements: []slackTextObject{
					{Type: "mrkdwn", Text: contextText},
				},
			},
		},
	}
}
