package policy

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/aperturestack/guardrail/clock"
	"github.com/aperturestack/guardrail/resolvable"
	"github.com/aperturestack/guardrail/telemetry"
)

// RateLimiterConfig configures a token-bucket RateLimiter. Rate, Burst,
// and QueueLimit are resolved once per Execute call.
type RateLimiterConfig[T any] struct {
	// Rate is the steady-state token refill rate, in tokens per second.
	// Default: 10.
	Rate resolvable.Resolvable[float64]

	// Burst is the maximum token balance. Default: 10.
	Burst resolvable.Resolvable[float64]

	// QueueLimit is the maximum number of waiters queued once the bucket
	// is empty. Default: 0.
	QueueLimit resolvable.Resolvable[int]

	// Clock is the time source refill and the queue pump are measured
	// against. Default: clock.Default.
	Clock clock.Clock

	// Sink receives rateLimit.{acquire,queued,rejected} events. Default:
	// telemetry.NoopSink.
	Sink telemetry.Sink
}

type rateLimiterWaiter[T any] struct {
	ctx      context.Context
	action   Action[T]
	resultCh chan bulkheadResult[T]
}

// RateLimiter admits actions against a token bucket, queueing callers
// FIFO while it is empty and pumping the queue as tokens refill.
type RateLimiter[T any] struct {
	cfg RateLimiterConfig[T]

	mu            sync.Mutex
	tokens        float64
	lastRefill    int64
	queue         []*rateLimiterWaiter[T]
	pumpScheduled bool
}

// NewRateLimiter creates a RateLimiter, applying defaults to unset
// fields. The bucket starts full.
func NewRateLimiter[T any](cfg RateLimiterConfig[T]) *RateLimiter[T] {
	cfg.Rate = defaultFloatResolvable(cfg.Rate, 10)
	cfg.Burst = defaultFloatResolvable(cfg.Burst, 10)
	if cfg.Clock == nil {
		cfg.Clock = clock.Default
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.NoopSink{}
	}
	rl := &RateLimiter[T]{cfg: cfg, tokens: cfg.Burst.Resolve(), lastRefill: cfg.Clock.Now()}
	return rl
}

// Execute acquires a token and runs action immediately, queues the
// caller if the bucket is empty and the resolved QueueLimit allows, or
// rejects with a *RateLimitExceededError.
func (rl *RateLimiter[T]) Execute(ctx context.Context, action Action[T]) (T, error) {
	var zero T

	rl.mu.Lock()
	rate := rl.cfg.Rate.Resolve()
	burst := rl.cfg.Burst.Resolve()
	queueLimit := rl.cfg.QueueLimit.Resolve()

	if rl.tryAcquireLocked(rate, burst) {
		rl.mu.Unlock()
		rl.cfg.Sink.Emit(ctx, telemetry.Event{Type: "rateLimit.acquire"})
		return action(ctx)
	}

	if len(rl.queue) < queueLimit {
		w := &rateLimiterWaiter[T]{ctx: ctx, action: action, resultCh: make(chan bulkheadResult[T], 1)}
		rl.queue = append(rl.queue, w)

		needPump := !rl.pumpScheduled
		var waitMs int64
		if needPump {
			rl.pumpScheduled = true
			waitMs = rl.msUntilTokenLocked(rate)
		}
		rl.mu.Unlock()

		rl.cfg.Sink.Emit(ctx, telemetry.Event{Type: "rateLimit.queued"})
		if needPump {
			go rl.schedulePump(waitMs)
		}

		select {
		case res := <-w.resultCh:
			return res.val, res.err
		case <-ctx.Done():
			rl.removeWaiter(w)
			return zero, ctx.Err()
		}
	}

	retryAfter := time.Duration(rl.msUntilTokenLocked(rate)) * time.Millisecond
	rl.mu.Unlock()

	rl.cfg.Sink.Emit(ctx, telemetry.Event{
		Type:    "rateLimit.rejected",
		Metrics: map[string]int{"rateLimitRejections": 1},
	})
	return zero, &RateLimitExceededError{Rate: rate, RetryAfter: retryAfter}
}

// refillLocked advances tokens by elapsed time at the given rate, capped
// at burst. Called with rl.mu held.
func (rl *RateLimiter[T]) refillLocked(rate, burst float64) {
	now := rl.cfg.Clock.Now()
	delta := now - rl.lastRefill
	if delta > 0 {
		rl.tokens = math.Min(burst, rl.tokens+float64(delta)*rate/1000)
		rl.lastRefill = now
	}
}

// tryAcquireLocked refills then takes one token if available. Called
// with rl.mu held.
func (rl *RateLimiter[T]) tryAcquireLocked(rate, burst float64) bool {
	rl.refillLocked(rate, burst)
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// msUntilTokenLocked computes how long until a token is available at the
// given rate, based on the current token balance. Called with rl.mu
// held.
func (rl *RateLimiter[T]) msUntilTokenLocked(rate float64) int64 {
	if rate <= 0 {
		return math.MaxInt64
	}
	need := 1 - rl.tokens
	if need <= 0 {
		return 0
	}
	return int64(math.Ceil(need * 1000 / rate))
}

// schedulePump sleeps until a token should be available, then drains the
// queue as far as the bucket allows.
func (rl *RateLimiter[T]) schedulePump(waitMs int64) {
	_ = rl.cfg.Clock.Sleep(context.Background(), time.Duration(waitMs)*time.Millisecond)
	rl.processQueue()
}

// processQueue dequeues and runs waiters while tokens are available,
// rescheduling itself if the queue is still non-empty afterward.
func (rl *RateLimiter[T]) processQueue() {
	rl.mu.Lock()
	rate := rl.cfg.Rate.Resolve()
	burst := rl.cfg.Burst.Resolve()

	for len(rl.queue) > 0 && rl.tryAcquireLocked(rate, burst) {
		w := rl.queue[0]
		rl.queue = rl.queue[1:]
		rl.mu.Unlock()

		rl.cfg.Sink.Emit(w.ctx, telemetry.Event{Type: "rateLimit.acquire"})
		val, err := w.action(w.ctx)
		w.resultCh <- bulkheadResult[T]{val: val, err: err}

		rl.mu.Lock()
		rate = rl.cfg.Rate.Resolve()
		burst = rl.cfg.Burst.Resolve()
	}

	if len(rl.queue) > 0 {
		waitMs := rl.msUntilTokenLocked(rate)
		rl.mu.Unlock()
		go rl.schedulePump(waitMs)
		return
	}

	rl.pumpScheduled = false
	rl.mu.Unlock()
}

// Tokens returns the current token balance after applying refill.
func (rl *RateLimiter[T]) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rate := rl.cfg.Rate.Resolve()
	burst := rl.cfg.Burst.Resolve()
	rl.refillLocked(rate, burst)
	return rl.tokens
}

// QueueLength returns the current number of queued waiters.
func (rl *RateLimiter[T]) QueueLength() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.queue)
}

// Burst returns the currently resolved maximum token balance.
func (rl *RateLimiter[T]) Burst() float64 {
	return rl.cfg.Burst.Resolve()
}

func (rl *RateLimiter[T]) removeWaiter(w *rateLimiterWaiter[T]) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for i, q := range rl.queue {
		if q == w {
			rl.queue = append(rl.queue[:i], rl.queue[i+1:]...)
			return
		}
	}
}
