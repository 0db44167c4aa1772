package circuitbreaker

import (
	"context"

	"pulsepost/internal/resilience"
)

// Middleware returns a resilience.Middleware that routes the wrapped operation
// through the named breaker from the registry. The breaker is resolved once at
// composition time, so repeated invocations of the chained operation share one
// state machine.
func Middleware(reg *Registry, name string, config Config) resilience.Middleware {
	cb := reg.GetOrCreate(name, config)

	return func(next resilience.Operation) resilience.Operation {
		return func(ctx context.Context) error {
			return cb.Execute(ctx, func(ctx context.Context) error {
				return next(ctx)
			})
		}
	}
}
