package policy

import (
	"testing"
	"time"
)

func TestRawBackoff(t *testing.T) {
	delay := 10 * time.Millisecond
	tests := []struct {
		name     string
		strategy BackoffStrategy
		attempt  int
		want     time.Duration
	}{
		{"constant attempt 1", BackoffConstant, 1, 10 * time.Millisecond},
		{"constant attempt 4", BackoffConstant, 4, 10 * time.Millisecond},
		{"linear attempt 1", BackoffLinear, 1, 10 * time.Millisecond},
		{"linear attempt 3", BackoffLinear, 3, 30 * time.Millisecond},
		{"exponential attempt 1", BackoffExponential, 1, 10 * time.Millisecond},
		{"exponential attempt 4", BackoffExponential, 4, 80 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rawBackoff(tt.strategy, delay, tt.attempt); got != tt.want {
				t.Errorf("rawBackoff(%v, %v, %d) = %v, want %v", tt.strategy, delay, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestApplyJitter_NoneIsIdentityCappedAtMax(t *testing.T) {
	prev := 10 * time.Millisecond
	got := applyJitter(JitterNone, 40*time.Millisecond, 10*time.Millisecond, 0, &prev)
	if got != 40*time.Millisecond {
		t.Errorf("none jitter = %v, want raw 40ms", got)
	}

	got = applyJitter(JitterNone, 40*time.Millisecond, 10*time.Millisecond, 25*time.Millisecond, &prev)
	if got != 25*time.Millisecond {
		t.Errorf("none jitter with cap = %v, want maxDelay 25ms", got)
	}
}

func TestApplyJitter_FullStaysInRange(t *testing.T) {
	raw := 40 * time.Millisecond
	prev := time.Duration(0)
	for i := 0; i < 200; i++ {
		got := applyJitter(JitterFull, raw, 10*time.Millisecond, 0, &prev)
		if got < 0 || got >= raw {
			t.Fatalf("full jitter = %v, want in [0, %v)", got, raw)
		}
	}
}

func TestApplyJitter_EqualStaysInRange(t *testing.T) {
	raw := 40 * time.Millisecond
	prev := time.Duration(0)
	for i := 0; i < 200; i++ {
		got := applyJitter(JitterEqual, raw, 10*time.Millisecond, 0, &prev)
		if got < raw/2 || got >= raw {
			t.Fatalf("equal jitter = %v, want in [%v, %v)", got, raw/2, raw)
		}
	}
}

func TestApplyJitter_DecorrelatedStaysInRangeAndCarriesPrev(t *testing.T) {
	delay := 10 * time.Millisecond
	maxDelay := 200 * time.Millisecond
	prev := delay
	for i := 0; i < 200; i++ {
		before := prev
		got := applyJitter(JitterDecorrelated, 0, delay, maxDelay, &prev)
		hi := before * 3
		if hi > maxDelay {
			hi = maxDelay
		}
		if got < delay || (got > hi) {
			t.Fatalf("decorrelated jitter = %v, want in [%v, %v] (prev %v)", got, delay, hi, before)
		}
		if got > maxDelay {
			t.Fatalf("decorrelated jitter = %v exceeds maxDelay %v", got, maxDelay)
		}
		if prev != got {
			t.Fatalf("prev = %v after sample %v, want the sample carried forward", prev, got)
		}
	}
}
