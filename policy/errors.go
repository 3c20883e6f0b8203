package policy

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is matching against the structured failure
// types below. Each structured type's Is method matches its sentinel, so
// callers can write errors.Is(err, policy.ErrCircuitOpen) without knowing
// the concrete type, or errors.As(err, &circuitOpenErr) to get the detail.
var (
	ErrRetryExhausted    = errors.New("policy: retry attempts exhausted")
	ErrCircuitOpen       = errors.New("policy: circuit breaker is open")
	ErrTimeout           = errors.New("policy: operation timed out")
	ErrBulkheadRejected  = errors.New("policy: bulkhead at capacity")
	ErrRateLimitExceeded = errors.New("policy: rate limit exceeded")
)

// ErrCancelled is the failure every policy propagates when the caller's
// context is cancelled mid-execution. Policies return ctx.Err() directly,
// so this is context.Canceled itself rather than a wrapper: errors.Is
// matches it against any cancellation surfaced by this package.
var ErrCancelled = context.Canceled

// RetryExhaustedError is returned when a Retry policy's attempts are all
// exhausted. Cause is the last attempt's failure.
type RetryExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("policy: retry exhausted after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Cause }

func (e *RetryExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }

// CircuitOpenError is returned when a CircuitBreaker rejects a call while
// open; a half-open breaker admits every call. OpenedAt is
// expressed in the breaker's clock's Now() units (milliseconds), not wall
// time, so it is comparable across a TestClock-driven run.
type CircuitOpenError struct {
	OpenedAt     int64
	FailureCount int
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("policy: circuit open since t=%dms (failures=%d)", e.OpenedAt, e.FailureCount)
}

func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// TimeoutError is returned when a Timeout policy's deadline elapses before
// the wrapped action completes.
type TimeoutError struct {
	Limit   time.Duration
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("policy: timed out after %s (limit %s)", e.Elapsed, e.Limit)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// BulkheadRejectedError is returned when a Bulkhead has no admission slot
// and its wait queue is also full.
type BulkheadRejectedError struct {
	Limit      int
	QueueLimit int
}

func (e *BulkheadRejectedError) Error() string {
	return fmt.Sprintf("policy: bulkhead rejected (limit=%d queueLimit=%d)", e.Limit, e.QueueLimit)
}

func (e *BulkheadRejectedError) Is(target error) bool { return target == ErrBulkheadRejected }

// RateLimitExceededError is returned when a RateLimiter has no tokens and
// its wait queue is also full.
type RateLimitExceededError struct {
	Rate       float64
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("policy: rate limit exceeded (rate=%.2f/s, retry after %s)", e.Rate, e.RetryAfter)
}

func (e *RateLimitExceededError) Is(target error) bool { return target == ErrRateLimitExceeded }
