package policy

import (
	"context"
	"time"

	"github.com/aperturestack/guardrail/clock"
	"github.com/aperturestack/guardrail/resolvable"
	"github.com/aperturestack/guardrail/telemetry"
)

// RetryConfig configures a Retry policy. Retries, Delay, MaxDelay,
// Backoff, and Jitter are Resolvable and are re-read once per attempt, so
// a live-bound Resolvable can change behavior mid retry-loop.
type RetryConfig[T any] struct {
	// Retries is the number of retries after the initial attempt; total
	// attempts = Retries + 1. Default: 3.
	Retries resolvable.Resolvable[int]

	// Delay is the base delay backoff grows from. Default: 1s.
	Delay resolvable.Resolvable[time.Duration]

	// MaxDelay caps the delay between attempts. A producer yielding zero
	// or negative means unbounded; a literal zero or negative takes the
	// default. Default: 30s.
	MaxDelay resolvable.Resolvable[time.Duration]

	// Backoff selects how the raw delay grows across attempts. Default:
	// BackoffConstant.
	Backoff resolvable.Resolvable[BackoffStrategy]

	// Jitter selects how randomness is mixed into the raw delay. Default:
	// JitterNone.
	Jitter resolvable.Resolvable[JitterStrategy]

	// ShouldRetry decides whether a failure should be retried. Default:
	// every non-nil error is retried.
	ShouldRetry func(err error) bool

	// OnRetry is called with the failing error, the 1-indexed attempt
	// number that just failed, and the delay chosen before the next
	// attempt.
	OnRetry func(err error, attempt int, delay time.Duration)

	// Clock is the time source for backoff sleeps. Default: clock.Default.
	Clock clock.Clock

	// Sink receives retry.scheduled, retry.failure, retry.success, and
	// retry.exhausted events. Default: telemetry.NoopSink.
	Sink telemetry.Sink
}

// Retry wraps an Action with bounded retries, configurable backoff, and
// jitter.
type Retry[T any] struct {
	cfg RetryConfig[T]
}

// NewRetry creates a Retry policy, applying defaults to unset fields.
func NewRetry[T any](cfg RetryConfig[T]) *Retry[T] {
	cfg.Retries = defaultIntResolvable(cfg.Retries, 3)
	cfg.Delay = defaultDurationResolvable(cfg.Delay, time.Second)
	cfg.MaxDelay = defaultDurationResolvable(cfg.MaxDelay, 30*time.Second)
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = func(err error) bool { return err != nil }
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Default
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.NoopSink{}
	}
	return &Retry[T]{cfg: cfg}
}

// Execute runs action, retrying on failures ShouldRetry accepts until the
// resolved attempt budget is exhausted.
func (r *Retry[T]) Execute(ctx context.Context, action Action[T]) (T, error) {
	var zero T
	var prevDelay time.Duration
	initialized := false

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		val, err := action(ctx)
		if err == nil {
			r.cfg.Sink.Emit(ctx, telemetry.Event{Type: "retry.success"})
			return val, nil
		}

		if !r.cfg.ShouldRetry(err) {
			return zero, err
		}

		total := r.cfg.Retries.Resolve() + 1
		if attempt >= total {
			r.cfg.Sink.Emit(ctx, telemetry.Event{
				Type:    "retry.exhausted",
				Metrics: map[string]int{"failures": 1},
				Meta:    map[string]any{"attempts": attempt},
			})
			return zero, &RetryExhaustedError{Attempts: attempt, Cause: err}
		}

		delay := r.cfg.Delay.Resolve()
		maxDelay := r.cfg.MaxDelay.Resolve()
		backoff := r.cfg.Backoff.Resolve()
		jitter := r.cfg.Jitter.Resolve()

		if !initialized {
			prevDelay = delay
			initialized = true
		}

		raw := rawBackoff(backoff, delay, attempt)
		actualDelay := applyJitter(jitter, raw, delay, maxDelay, &prevDelay)

		r.cfg.Sink.Emit(ctx, telemetry.Event{
			Type:    "retry.failure",
			Metrics: map[string]int{"retries": 1},
			Meta:    map[string]any{"attempt": attempt, "delay_ms": actualDelay.Milliseconds()},
		})

		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(err, attempt, actualDelay)
		}

		if actualDelay <= 0 {
			continue
		}

		r.cfg.Sink.Emit(ctx, telemetry.Event{Type: "retry.scheduled", Meta: map[string]any{"attempt": attempt + 1}})

		if sleepErr := r.cfg.Clock.Sleep(ctx, actualDelay); sleepErr != nil {
			return zero, sleepErr
		}
	}
}
