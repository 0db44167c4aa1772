package resilience

import "context"

// Operation is a single outbound call that honors context cancellation.
// Results are carried through closure captures; the chain only routes errors.
type Operation func(ctx context.Context) error

// Middleware wraps an Operation with a cross-cutting concern and returns the
// wrapped form. Middleware must propagate the context to the inner operation
// unchanged and must not introduce additional cancellation points.
type Middleware func(next Operation) Operation

// Chain composes middlewares around op in explicit registration order: the
// first middleware becomes the outermost layer. A call travels
// mw[0] -> mw[1] -> ... -> op, and errors travel back the same way.
func Chain(op Operation, mws ...Middleware) Operation {
	wrapped := op
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
