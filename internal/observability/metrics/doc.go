// Package metrics provides Prometheus collectors and recording utilities.
//
// This package centralizes all agent metrics:
//   - Circuit breaker state and call outcomes
//   - Error handling and recovery outcomes
//   - Posting pipeline business metrics (news, generation, publishing)
//   - Alert delivery
//
// All collectors are registered with the Prometheus default registry and
// exposed via the agent's /metrics endpoint. The Recorder and Sink types
// adapt the collectors to the interfaces the resilience layer consumes.
//
// Example usage:
//
//	import "pulsepost/internal/observability/metrics"
//
//	func publish() {
//	    start := time.Now()
//	    // ... publish post ...
//	    metrics.RecordPostPublished("bluesky")
//	    metrics.RecordPipelineRun("success", time.Since(start))
//	}
package metrics
