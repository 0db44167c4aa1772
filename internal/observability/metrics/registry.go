package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit breaker metrics track per-dependency breaker behavior
var (
	// BreakerState reports the current state of each breaker
	// (0=closed, 1=open, 2=half-open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit"},
	)

	// BreakerTransitionsTotal counts state transitions per breaker
	BreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"circuit", "state"},
	)

	// BreakerCallsTotal counts call outcomes per breaker
	BreakerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_calls_total",
			Help: "Total number of calls observed by circuit breakers",
		},
		[]string{"circuit", "outcome"}, // outcome: success, failure, timeout, rejected
	)

	// BreakerCallDuration measures call duration per breaker
	BreakerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "circuit_breaker_call_duration_seconds",
			Help:    "Duration of calls executed through circuit breakers",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"circuit"},
	)
)

// Error handling metrics track classified failures and recovery outcomes
var (
	// ErrorsTotal counts classified failures
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_handled_total",
			Help: "Total number of errors handled by the recovery orchestrator",
		},
		[]string{"component", "error_type", "category", "severity"},
	)

	// RecoveriesTotal counts recovery attempts by outcome
	RecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_recoveries_total",
			Help: "Total number of error recovery attempts",
		},
		[]string{"component", "strategy", "error_type", "result"}, // result: success, failure
	)

	// AlertsTotal counts alert deliveries by outcome
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_total",
			Help: "Total number of alert delivery attempts",
		},
		[]string{"alerter", "result"}, // result: sent, suppressed, failure
	)
)

// Pipeline metrics track the posting pipeline end to end
var (
	// PipelineRunsTotal counts pipeline executions by result
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of posting pipeline runs",
		},
		[]string{"result"}, // result: success, skipped, failure
	)

	// PipelineDuration measures full pipeline run duration
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Duration of a full posting pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// NewsItemsFetchedTotal counts news items fetched per feed
	NewsItemsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_items_fetched_total",
			Help: "Total number of news items fetched from feeds",
		},
		[]string{"feed"},
	)

	// NewsFetchDuration measures per-feed fetch duration
	NewsFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "news_fetch_duration_seconds",
			Help:    "Time taken to fetch and parse a news feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"feed"},
	)

	// GenerationsTotal counts text generation attempts by provider and status
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "Total number of post text generation attempts",
		},
		[]string{"provider", "status"}, // status: success, failure
	)

	// GenerationDuration measures text generation duration
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "Time taken to generate post text",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// PostsPublishedTotal counts successfully published posts
	PostsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_published_total",
			Help: "Total number of posts published",
		},
		[]string{"target"},
	)

	// PostsSkippedTotal counts posts dropped before publishing
	PostsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_skipped_total",
			Help: "Total number of posts skipped before publishing",
		},
		[]string{"reason"}, // reason: filtered, duplicate, empty
	)

	// PostLength measures published post length in characters
	PostLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "post_length_chars",
			Help:    "Length of published posts in characters",
			Buckets: []float64{50, 100, 150, 200, 250, 300},
		},
	)
)

// RecordPipelineRun records one pipeline run with its result and duration.
func RecordPipelineRun(result string, duration time.Duration) {
	PipelineRunsTotal.WithLabelValues(result).Inc()
	PipelineDuration.Observe(duration.Seconds())
}

// RecordNewsFetch records a feed fetch with the number of items returned.
func RecordNewsFetch(feed string, items int, duration time.Duration) {
	NewsItemsFetchedTotal.WithLabelValues(feed).Add(float64(items))
	NewsFetchDuration.WithLabelValues(feed).Observe(duration.Seconds())
}

// RecordGeneration records a text generation attempt.
func RecordGeneration(provider string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	GenerationsTotal.WithLabelValues(provider, status).Inc()
	GenerationDuration.Observe(duration.Seconds())
}

// RecordPostPublished records a successfully published post.
func RecordPostPublished(target string) {
	PostsPublishedTotal.WithLabelValues(target).Inc()
}

// RecordPostSkipped records a post dropped before publishing.
func RecordPostSkipped(reason string) {
	PostsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordPostLength records the character length of a published post.
func RecordPostLength(chars int) {
	PostLength.Observe(float64(chars))
}

// RecordAlert records an alert delivery attempt.
func RecordAlert(alerter, result string) {
	AlertsTotal.WithLabelValues(alerter, result).Inc()
}
