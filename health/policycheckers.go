package health

import (
	"context"
	"fmt"

	"github.com/aperturestack/guardrail/policy"
)

// circuitBreakerState is satisfied by *policy.CircuitBreaker[T] for any T;
// the type parameter does not appear in these methods, so one interface
// covers every instantiation.
type circuitBreakerState interface {
	State() policy.CircuitState
	FailureCount() int
	OpenedAt() int64
}

// CircuitBreakerChecker reports a CircuitBreaker's state as health:
// CLOSED is healthy, HALF_OPEN is degraded (still probing), OPEN is
// unhealthy.
type CircuitBreakerChecker struct {
	name string
	cb   circuitBreakerState
}

// NewCircuitBreakerChecker wraps cb as a named Checker.
func NewCircuitBreakerChecker(name string, cb circuitBreakerState) *CircuitBreakerChecker {
	return &CircuitBreakerChecker{name: name, cb: cb}
}

// Name returns the checker's name.
func (c *CircuitBreakerChecker) Name() string { return c.name }

// Check reports the breaker's current state.
func (c *CircuitBreakerChecker) Check(context.Context) Result {
	state := c.cb.State()
	details := map[string]any{
		"state":         state.String(),
		"failure_count": c.cb.FailureCount(),
		"opened_at":     c.cb.OpenedAt(),
	}
	switch state {
	case policy.CircuitOpen:
		return Unhealthy(fmt.Sprintf("circuit open since t=%d", c.cb.OpenedAt()), nil).WithDetails(details)
	case policy.CircuitHalfOpen:
		return Degraded("circuit half-open, probing").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}

// bulkheadState is satisfied by *policy.Bulkhead[T] for any T.
type bulkheadState interface {
	ActiveCount() int
	QueueLength() int
	Limit() int
	QueueLimit() int
}

// BulkheadChecker reports a Bulkhead's admission state as health: below
// limit is healthy, waiters queued is degraded, queue full is unhealthy.
type BulkheadChecker struct {
	name string
	b    bulkheadState
}

// NewBulkheadChecker wraps b as a named Checker.
func NewBulkheadChecker(name string, b bulkheadState) *BulkheadChecker {
	return &BulkheadChecker{name: name, b: b}
}

// Name returns the checker's name.
func (c *BulkheadChecker) Name() string { return c.name }

// Check reports the bulkhead's current admission pressure.
func (c *BulkheadChecker) Check(context.Context) Result {
	active, queued := c.b.ActiveCount(), c.b.QueueLength()
	limit, queueLimit := c.b.Limit(), c.b.QueueLimit()
	details := map[string]any{
		"active": active, "queued": queued,
		"limit": limit, "queue_limit": queueLimit,
	}
	switch {
	case queueLimit > 0 && queued >= queueLimit:
		return Unhealthy("bulkhead queue is full", nil).WithDetails(details)
	case queued > 0:
		return Degraded(fmt.Sprintf("bulkhead saturated, %d waiting", queued)).WithDetails(details)
	default:
		return Healthy("bulkhead has capacity").WithDetails(details)
	}
}

// rateLimiterState is satisfied by *policy.RateLimiter[T] for any T.
type rateLimiterState interface {
	Tokens() float64
	QueueLength() int
	Burst() float64
}

// RateLimiterChecker reports a RateLimiter's bucket state as health:
// tokens available is healthy, an empty bucket with callers queued is
// degraded.
type RateLimiterChecker struct {
	name string
	rl   rateLimiterState
}

// NewRateLimiterChecker wraps rl as a named Checker.
func NewRateLimiterChecker(name string, rl rateLimiterState) *RateLimiterChecker {
	return &RateLimiterChecker{name: name, rl: rl}
}

// Name returns the checker's name.
func (c *RateLimiterChecker) Name() string { return c.name }

// Check reports the bucket's current token balance.
func (c *RateLimiterChecker) Check(context.Context) Result {
	tokens, queued, burst := c.rl.Tokens(), c.rl.QueueLength(), c.rl.Burst()
	details := map[string]any{"tokens": tokens, "queued": queued, "burst": burst}
	if tokens < 1 && queued > 0 {
		return Degraded(fmt.Sprintf("rate limiter empty, %d queued", queued)).WithDetails(details)
	}
	return Healthy("rate limiter has tokens").WithDetails(details)
}
