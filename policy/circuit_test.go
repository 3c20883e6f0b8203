package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aperturestack/guardrail/clock"
	"github.com/aperturestack/guardrail/resolvable"
)

func TestCircuitBreaker_OpensAfterThresholdFailures(t *testing.T) {
	tc := clock.NewTestClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig[string]{
		Threshold: resolvable.Of(2),
		Duration:  resolvable.Of(100 * time.Millisecond),
		Clock:     tc,
	})

	failing := func(ctx context.Context) (string, error) { return "", errBoom }

	if _, err := cb.Execute(context.Background(), failing); !errors.Is(err, errBoom) {
		t.Fatalf("first failure err = %v, want errBoom", err)
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("state after 1 failure = %v, want closed", cb.State())
	}

	if _, err := cb.Execute(context.Background(), failing); !errors.Is(err, errBoom) {
		t.Fatalf("second failure err = %v, want errBoom", err)
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("state after 2 failures = %v, want open", cb.State())
	}

	calls := 0
	_, err := cb.Execute(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "unused", nil
	})
	var openErr *CircuitOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("err = %v, want *CircuitOpenError", err)
	}
	if calls != 0 {
		t.Errorf("action invoked %d times while open, want 0", calls)
	}
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	tc := clock.NewTestClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig[string]{
		Threshold: resolvable.Of(2),
		Duration:  resolvable.Of(100 * time.Millisecond),
		Clock:     tc,
	})

	failing := func(ctx context.Context) (string, error) { return "", errBoom }
	_, _ = cb.Execute(context.Background(), failing)
	_, _ = cb.Execute(context.Background(), failing)
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	tc.Advance(100 * time.Millisecond)

	got, err := cb.Execute(context.Background(), func(ctx context.Context) (string, error) {
		return "recovered", nil
	})
	if err != nil || got != "recovered" {
		t.Fatalf("Execute() = (%q, %v), want (recovered, nil)", got, err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state after successful probe = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_FailureDuringHalfOpenReopens(t *testing.T) {
	tc := clock.NewTestClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig[string]{
		Threshold: resolvable.Of(1),
		Duration:  resolvable.Of(50 * time.Millisecond),
		Clock:     tc,
	})

	_, _ = cb.Execute(context.Background(), func(ctx context.Context) (string, error) { return "", errBoom })
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	tc.Advance(50 * time.Millisecond)

	_, err := cb.Execute(context.Background(), func(ctx context.Context) (string, error) { return "", errBoom })
	if !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v, want errBoom", err)
	}
	if cb.State() != CircuitOpen {
		t.Errorf("state after failed probe = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_SuccessThresholdRequiresConsecutiveSuccesses(t *testing.T) {
	tc := clock.NewTestClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig[string]{
		Threshold:        resolvable.Of(1),
		Duration:         resolvable.Of(10 * time.Millisecond),
		SuccessThreshold: resolvable.Of(2),
		Clock:            tc,
	})

	_, _ = cb.Execute(context.Background(), func(ctx context.Context) (string, error) { return "", errBoom })
	tc.Advance(10 * time.Millisecond)

	succeed := func(ctx context.Context) (string, error) { return "ok", nil }
	if _, err := cb.Execute(context.Background(), succeed); err != nil {
		t.Fatalf("first probe err = %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state after 1 of 2 successes = %v, want half-open", cb.State())
	}

	if _, err := cb.Execute(context.Background(), succeed); err != nil {
		t.Fatalf("second probe err = %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state after 2 of 2 successes = %v, want closed", cb.State())
	}
}
