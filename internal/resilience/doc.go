// Package resilience provides reliability and fault tolerance patterns for the application.
// It defines the middleware chain used to compose cross-cutting protections (circuit
// breaking, error recovery) around outbound operations, and hosts the subpackages that
// implement them.
//
// The package supports:
//   - Explicit middleware chains applied in registration order
//   - Circuit breakers for external service calls (news feeds, AI generation, publishing)
//   - Centralized error classification and recovery orchestration
//
// Usage Example:
//
//	op := resilience.Chain(callExternalService,
//	    orchestrator.Middleware("news", "fetch", nil),
//	    circuitbreaker.Middleware(registry, "news-api", circuitbreaker.NewsAPIConfig()),
//	)
//	err := op(ctx)
package resilience
