// Package policy implements the resilience policies (retry, timeout,
// circuit breaker, bulkhead, rate limiter, hedge) and the combinators
// that compose them. Every tunable option is a resolvable.Resolvable, so
// a policy built once can be rebound live to a configplane.Adaptive
// without being rebuilt.
package policy

import "context"

// Action is the unit of work a Policy wraps. It must respect ctx
// cancellation for the surrounding policy to be able to bound it.
type Action[T any] func(ctx context.Context) (T, error)

// Policy executes an Action under some resilience behavior: retries,
// deadlines, circuit breaking, concurrency limiting, rate limiting,
// speculative hedging, or a composition of these.
type Policy[T any] interface {
	Execute(ctx context.Context, action Action[T]) (T, error)
}

// Noop is a Policy that invokes the action unmodified. It is useful as a
// base case for composition and as a stand-in when a policy is disabled
// by configuration.
type Noop[T any] struct{}

// Execute invokes action directly.
func (Noop[T]) Execute(ctx context.Context, action Action[T]) (T, error) {
	return action(ctx)
}
