// Package observability provides the agent's observability infrastructure:
// structured logging and Prometheus metrics.
//
// Subpackages:
//   - logging: slog-based structured logging helpers
//   - metrics: Prometheus collectors and adapters for the resilience layer
//
// Example usage:
//
//	import (
//	    "pulsepost/internal/observability/logging"
//	    "pulsepost/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("agent started")
//
//	    metrics.RecordPostPublished("bluesky")
//	}
package observability
