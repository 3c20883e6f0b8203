// Package health provides health checking primitives for policy state.
//
// It implements a generic health checking framework: interfaces for
// defining health checks and aggregating results from multiple checkers.
// guardrail uses it to expose resilience-policy state (an open circuit
// breaker, a saturated bulkhead, a starved rate limiter) as a read-only
// health surface an operator can poll; see [CircuitBreakerChecker],
// [BulkheadChecker], and [RateLimiterChecker]. No transport is provided;
// wiring an Aggregator to an HTTP or gRPC health endpoint is left to the
// caller.
//
// # Status Types
//
// The [Status] type represents component health:
//
//   - [StatusHealthy]: Component is functioning normally
//   - [StatusDegraded]: Component is functioning but with issues
//   - [StatusUnhealthy]: Component is not functioning properly
//
// # Core Components
//
//   - [Checker]: Interface for health checks (Name() + Check())
//   - [CheckerFunc]: Adapter for function-based checkers
//   - [Result]: Health check outcome with status, message, details, duration
//   - [Aggregator]: Combines multiple checkers into composite health
//   - [MemoryChecker]: Built-in checker for memory usage thresholds
//   - [CircuitBreakerChecker]: Reports Unhealthy while open, Degraded while
//     half-open
//   - [BulkheadChecker]: Reports Degraded once the queue holds waiters,
//     Unhealthy once it is full
//   - [RateLimiterChecker]: Reports Degraded once the bucket is empty and
//     callers are queued
//
// # Quick Start
//
//	// Create checkers
//	memCheck := health.NewMemoryChecker(health.MemoryCheckerConfig{
//	    WarningThreshold:  0.80,
//	    CriticalThreshold: 0.95,
//	})
//
//	dbCheck := health.NewCheckerFunc("database", func(ctx context.Context) health.Result {
//	    if err := db.PingContext(ctx); err != nil {
//	        return health.Unhealthy("database unreachable", err)
//	    }
//	    return health.Healthy("database connected")
//	})
//
//	// Create aggregator
//	agg := health.NewAggregator()
//	agg.Register("memory", memCheck)
//	agg.Register("database", dbCheck)
//
//	// Check all components
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # Aggregation Behavior
//
// The [Aggregator] computes overall status using worst-case logic:
//
//   - If ANY check is Unhealthy → overall Unhealthy
//   - If ANY check is Degraded (and none Unhealthy) → overall Degraded
//   - If ALL checks are Healthy → overall Healthy
//
// Checks can run in parallel (default) or sequentially via [AggregatorConfig].
//
// # Thread Safety
//
// All exported types are safe for concurrent use:
//
//   - [Aggregator]: sync.RWMutex protects registration and check execution
//   - [MemoryChecker]: Stateless, concurrent-safe
//   - [CheckerFunc]: Delegates to user function, ensure your function is safe
//   - [Result]: Immutable after creation
//
// # Error Handling
//
// Sentinel errors (use errors.Is for checking):
//
//   - [ErrCheckFailed]: Generic health check failure
//   - [ErrCheckTimeout]: Check exceeded timeout
//   - [ErrCheckerNotFound]: Named checker not registered
//   - [ErrNoCheckers]: No checkers registered in aggregator
//
// # Integration with guardrail
//
// health integrates with the rest of this module:
//
//   - policy: CircuitBreakerChecker/BulkheadChecker/RateLimiterChecker
//     read a policy's exported state directly, with no locking of their
//     own, since the policy types already serialize access internally.
//   - telemetry: a Checker's Result can be folded into a telemetry.Event
//     and emitted through the same Sink policies already report into.
package health
