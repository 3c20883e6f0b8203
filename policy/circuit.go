package policy

import (
	"context"
	"sync"
	"time"

	"github.com/aperturestack/guardrail/clock"
	"github.com/aperturestack/guardrail/resolvable"
	"github.com/aperturestack/guardrail/telemetry"
)

// CircuitState is one of the three circuit breaker states.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreakerConfig configures a CircuitBreaker. Threshold, Duration,
// and SuccessThreshold are resolved once per event (a failure, a success,
// or a reset check), never cached across events.
type CircuitBreakerConfig[T any] struct {
	// Threshold is the number of consecutive trip-eligible failures in
	// CLOSED before the circuit opens. Live-bound entries treat this as
	// required; the fluent constructor defaults it to 5.
	Threshold resolvable.Resolvable[int]

	// Duration is how long the circuit stays OPEN before probing in
	// HALF_OPEN. Live-bound entries treat this as required; the fluent
	// constructor defaults it to 30s.
	Duration resolvable.Resolvable[time.Duration]

	// SuccessThreshold is the number of consecutive HALF_OPEN successes
	// needed to close the circuit. Default: 1.
	SuccessThreshold resolvable.Resolvable[int]

	// ShouldTrip decides whether a failure counts toward tripping the
	// circuit. Default: every non-nil error trips.
	ShouldTrip func(err error) bool

	OnOpen     func()
	OnClose    func()
	OnHalfOpen func()

	// Clock is the time source opened_at/duration are measured against.
	// Default: clock.Default.
	Clock clock.Clock

	// Sink receives circuit.{open,close,half-open,failure,success,reject}
	// events. Default: telemetry.NoopSink.
	Sink telemetry.Sink
}

// CircuitBreaker implements the three-state circuit breaker: CLOSED
// passes through, OPEN rejects immediately, HALF_OPEN admits probes that
// decide whether to reclose or reopen.
type CircuitBreaker[T any] struct {
	cfg CircuitBreakerConfig[T]

	mu           sync.Mutex
	state        CircuitState
	failureCount int
	successCount int
	openedAt     int64
}

// NewCircuitBreaker creates a CircuitBreaker starting CLOSED.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig[T]) *CircuitBreaker[T] {
	cfg.Threshold = defaultIntResolvable(cfg.Threshold, 5)
	cfg.Duration = defaultDurationResolvable(cfg.Duration, 30*time.Second)
	cfg.SuccessThreshold = defaultIntResolvable(cfg.SuccessThreshold, 1)
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = func(err error) bool { return err != nil }
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Default
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.NoopSink{}
	}
	return &CircuitBreaker[T]{cfg: cfg, state: CircuitClosed}
}

// State returns the current state, first applying the OPEN→HALF_OPEN
// reset check.
func (cb *CircuitBreaker[T]) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpenLocked(context.Background())
	return cb.state
}

// FailureCount returns the current consecutive-failure count (CLOSED) or
// the count that tripped the breaker (OPEN/HALF_OPEN).
func (cb *CircuitBreaker[T]) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

// OpenedAt returns the clock timestamp of the breaker's last transition
// to OPEN, or zero if it has never opened.
func (cb *CircuitBreaker[T]) OpenedAt() int64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.openedAt
}

// Reset forces the circuit back to CLOSED, clearing counters.
func (cb *CircuitBreaker[T]) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.successCount = 0
	cb.transitionLocked(context.Background(), CircuitClosed)
}

// Execute runs action through the breaker, rejecting with
// *CircuitOpenError while the circuit is OPEN.
func (cb *CircuitBreaker[T]) Execute(ctx context.Context, action Action[T]) (T, error) {
	var zero T
	if err := cb.beforeRequest(ctx); err != nil {
		return zero, err
	}
	val, err := action(ctx)
	cb.afterRequest(ctx, err)
	if err != nil {
		return zero, err
	}
	return val, nil
}

func (cb *CircuitBreaker[T]) beforeRequest(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.maybeHalfOpenLocked(ctx)

	if cb.state == CircuitOpen {
		cb.cfg.Sink.Emit(ctx, telemetry.Event{Type: "circuit.reject"})
		return &CircuitOpenError{OpenedAt: cb.openedAt, FailureCount: cb.failureCount}
	}
	return nil
}

func (cb *CircuitBreaker[T]) maybeHalfOpenLocked(ctx context.Context) {
	if cb.state != CircuitOpen {
		return
	}
	duration := cb.cfg.Duration.Resolve()
	if cb.cfg.Clock.Now()-cb.openedAt >= duration.Milliseconds() {
		cb.successCount = 0
		cb.transitionLocked(ctx, CircuitHalfOpen)
	}
}

func (cb *CircuitBreaker[T]) afterRequest(ctx context.Context, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isFailure := cb.cfg.ShouldTrip(err)

	switch cb.state {
	case CircuitClosed:
		if isFailure {
			cb.failureCount++
			cb.cfg.Sink.Emit(ctx, telemetry.Event{Type: "circuit.failure", Metrics: map[string]int{"failures": 1}})
			if cb.failureCount >= cb.cfg.Threshold.Resolve() {
				cb.openedAt = cb.cfg.Clock.Now()
				cb.transitionLocked(ctx, CircuitOpen)
			}
		} else {
			cb.failureCount = 0
			cb.cfg.Sink.Emit(ctx, telemetry.Event{Type: "circuit.success", Metrics: map[string]int{"successes": 1}})
		}

	case CircuitHalfOpen:
		if isFailure {
			cb.openedAt = cb.cfg.Clock.Now()
			cb.cfg.Sink.Emit(ctx, telemetry.Event{Type: "circuit.failure", Metrics: map[string]int{"failures": 1}})
			cb.transitionLocked(ctx, CircuitOpen)
		} else {
			cb.successCount++
			cb.cfg.Sink.Emit(ctx, telemetry.Event{Type: "circuit.success", Metrics: map[string]int{"successes": 1}})
			if cb.successCount >= cb.cfg.SuccessThreshold.Resolve() {
				cb.failureCount = 0
				cb.successCount = 0
				cb.transitionLocked(ctx, CircuitClosed)
			}
		}

	case CircuitOpen:
		// beforeRequest should have rejected; nothing to record.
	}
}

func (cb *CircuitBreaker[T]) transitionLocked(ctx context.Context, to CircuitState) {
	from := cb.state
	cb.state = to
	if from == to {
		return
	}

	switch to {
	case CircuitOpen:
		cb.cfg.Sink.Emit(ctx, telemetry.Event{Type: "circuit.open", Metrics: map[string]int{"circuitBreaks": 1}})
		if cb.cfg.OnOpen != nil {
			cb.cfg.OnOpen()
		}
	case CircuitHalfOpen:
		cb.cfg.Sink.Emit(ctx, telemetry.Event{Type: "circuit.half-open"})
		if cb.cfg.OnHalfOpen != nil {
			cb.cfg.OnHalfOpen()
		}
	case CircuitClosed:
		cb.cfg.Sink.Emit(ctx, telemetry.Event{Type: "circuit.close"})
		if cb.cfg.OnClose != nil {
			cb.cfg.OnClose()
		}
	}
}
