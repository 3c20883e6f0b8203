package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aperturestack/guardrail/clock"
	"github.com/aperturestack/guardrail/policy"
	"github.com/aperturestack/guardrail/resolvable"
)

func TestCircuitBreakerChecker_ReflectsState(t *testing.T) {
	tc := clock.NewTestClock()
	cb := policy.NewCircuitBreaker(policy.CircuitBreakerConfig[string]{
		Threshold: resolvable.Of(1),
		Duration:  resolvable.Of(time.Minute),
		Clock:     tc,
	})
	checker := NewCircuitBreakerChecker("orders-api", cb)

	if got := checker.Check(context.Background()).Status; got != StatusHealthy {
		t.Fatalf("status before failures = %v, want healthy", got)
	}

	boom := errors.New("boom")
	_, _ = cb.Execute(context.Background(), func(context.Context) (string, error) { return "", boom })

	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Fatalf("status after trip = %v, want unhealthy", result.Status)
	}
	if result.Details["state"] != "open" {
		t.Errorf("details[state] = %v, want open", result.Details["state"])
	}
}

func TestCircuitBreakerChecker_HalfOpenIsDegraded(t *testing.T) {
	tc := clock.NewTestClock()
	cb := policy.NewCircuitBreaker(policy.CircuitBreakerConfig[string]{
		Threshold: resolvable.Of(1),
		Duration:  resolvable.Of(10 * time.Millisecond),
		Clock:     tc,
	})
	checker := NewCircuitBreakerChecker("orders-api", cb)

	boom := errors.New("boom")
	_, _ = cb.Execute(context.Background(), func(context.Context) (string, error) { return "", boom })
	tc.Advance(20 * time.Millisecond)

	if got := checker.Check(context.Background()).Status; got != StatusDegraded {
		t.Fatalf("status while half-open = %v, want degraded", got)
	}
}

func TestBulkheadChecker_ReflectsQueuePressure(t *testing.T) {
	b := policy.NewBulkhead(policy.BulkheadConfig[string]{
		Limit:      resolvable.Of(1),
		QueueLimit: resolvable.Of(1),
	})
	checker := NewBulkheadChecker("db-pool", b)

	if got := checker.Check(context.Background()).Status; got != StatusHealthy {
		t.Fatalf("status while idle = %v, want healthy", got)
	}

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = b.Execute(context.Background(), func(context.Context) (string, error) {
			close(started)
			<-release
			return "ok", nil
		})
	}()
	<-started

	waiterDone := make(chan struct{})
	go func() {
		_, _ = b.Execute(context.Background(), func(context.Context) (string, error) { return "waited", nil })
		close(waiterDone)
	}()

	deadline := time.Now().Add(time.Second)
	for b.QueueLength() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	result := checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Fatalf("status with one waiter = %v, want degraded", result.Status)
	}

	close(release)
	<-waiterDone
}

func TestRateLimiterChecker_HealthyWhenEmptyWithNoQueue(t *testing.T) {
	tc := clock.NewTestClock()
	rl := policy.NewRateLimiter(policy.RateLimiterConfig[string]{
		Rate:  resolvable.Of(1.0),
		Burst: resolvable.Of(1.0),
		Clock: tc,
	})
	checker := NewRateLimiterChecker("search-api", rl)

	if _, err := rl.Execute(context.Background(), func(context.Context) (string, error) { return "ok", nil }); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Fatalf("status after draining burst with no queue = %v, want healthy", result.Status)
	}
	if result.Details["tokens"].(float64) >= 1 {
		t.Errorf("tokens = %v, want < 1 after single acquire", result.Details["tokens"])
	}
}
