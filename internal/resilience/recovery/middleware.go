package recovery

import (
	"context"
	"errors"
	"maps"

	"github.com/google/uuid"

	"pulsepost/internal/resilience"
	"pulsepost/internal/resilience/circuitbreaker"
)

// Middleware returns a resilience.Middleware that routes failures of the
// wrapped operation through the orchestrator. When a strategy recovers, the
// operation is re-invoked exactly once; a failure of the second invocation is
// returned as-is. Rejections from an open circuit breaker pass straight
// through: they are back-pressure, not failures to classify.
//
// metadata, if non-nil, seeds the ErrorContext metadata of every failure so
// strategy flags like MetaAuthRecoveryAttempted land where the component can
// see them.
func (o *Orchestrator) Middleware(component, operation string, metadata map[string]any) resilience.Middleware {
	return func(next resilience.Operation) resilience.Operation {
		return func(ctx context.Context) error {
			err := next(ctx)
			if err == nil {
				return nil
			}
			if errors.Is(err, circuitbreaker.ErrOpenState) {
				return err
			}

			ectx := NewErrorContext(component, operation)
			ectx.RequestID = uuid.NewString()
			if metadata != nil {
				maps.Copy(ectx.Metadata, metadata)
			}

			record := o.Handle(ctx, err, ectx, true)
			if metadata != nil {
				// Strategy flags flow back so the component sees them on
				// the map it owns.
				maps.Copy(metadata, ectx.Metadata)
			}
			if record == nil {
				return next(ctx)
			}
			return err
		}
	}
}
