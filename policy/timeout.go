package policy

import (
	"context"
	"time"

	"github.com/aperturestack/guardrail/clock"
	"github.com/aperturestack/guardrail/resolvable"
	"github.com/aperturestack/guardrail/telemetry"
)

// TimeoutConfig configures a Timeout policy. Limit is resolved once per
// Execute call.
type TimeoutConfig[T any] struct {
	// Limit is the maximum duration allowed for the action. Default: 30s.
	Limit resolvable.Resolvable[time.Duration]

	// OnTimeout is called with the elapsed time when the deadline fires
	// before the action completes.
	OnTimeout func(elapsed time.Duration)

	// Clock is the time source the deadline is measured against, so a
	// TestClock can deterministically trigger a timeout. Default:
	// clock.Default.
	Clock clock.Clock

	// Sink receives a "timeout" event when the deadline elapses first.
	// Default: telemetry.NoopSink.
	Sink telemetry.Sink
}

// Timeout bounds an Action's duration, failing with a TimeoutError if the
// resolved Limit elapses first.
type Timeout[T any] struct {
	cfg TimeoutConfig[T]
}

// NewTimeout creates a Timeout policy, applying defaults to unset fields.
func NewTimeout[T any](cfg TimeoutConfig[T]) *Timeout[T] {
	cfg.Limit = defaultDurationResolvable(cfg.Limit, 30*time.Second)
	if cfg.Clock == nil {
		cfg.Clock = clock.Default
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.NoopSink{}
	}
	return &Timeout[T]{cfg: cfg}
}

// Execute runs action, racing it against the resolved time limit measured
// on Clock. The action's goroutine is not forcibly killed on timeout:
// its ctx is cancelled, and Execute returns without waiting for it to
// observe that cancellation.
func (t *Timeout[T]) Execute(ctx context.Context, action Action[T]) (T, error) {
	var zero T
	limit := t.cfg.Limit.Resolve()
	start := t.cfg.Clock.Now()

	innerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	valCh := make(chan T, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := action(innerCtx)
		if err != nil {
			errCh <- err
			return
		}
		valCh <- v
	}()

	timerCtx, timerCancel := context.WithCancel(context.Background())
	defer timerCancel()
	sleepDone := make(chan error, 1)
	go func() {
		sleepDone <- t.cfg.Clock.Sleep(timerCtx, limit)
	}()

	select {
	case v := <-valCh:
		return v, nil
	case err := <-errCh:
		return zero, err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-sleepDone:
		cancel()
		elapsed := time.Duration(t.cfg.Clock.Now()-start) * time.Millisecond
		if t.cfg.OnTimeout != nil {
			t.cfg.OnTimeout(elapsed)
		}
		t.cfg.Sink.Emit(ctx, telemetry.Event{
			Type:    "timeout",
			Metrics: map[string]int{"timeouts": 1},
			Meta:    map[string]any{"limit_ms": limit.Milliseconds()},
		})
		return zero, &TimeoutError{Limit: limit, Elapsed: elapsed}
	}
}
