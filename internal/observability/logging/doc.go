// Package logging provides structured logging helpers around log/slog.
//
// Key features:
//   - JSON and text output formats
//   - Component-scoped loggers
//   - Context-aware logger propagation
//   - Log level from the environment
//
// Example usage:
//
//	import "pulsepost/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("agent started", slog.String("version", "1.0"))
//	}
package logging
