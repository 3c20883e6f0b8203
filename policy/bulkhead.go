package policy

import (
	"context"
	"sync"

	"github.com/aperturestack/guardrail/resolvable"
	"github.com/aperturestack/guardrail/telemetry"
)

// BulkheadConfig configures a Bulkhead. Limit and QueueLimit are resolved
// on every admission attempt, so a live-bound limit takes effect on the
// very next call, including shrinking it without aborting work already
// admitted ("soft shrink").
type BulkheadConfig[T any] struct {
	// Limit is the maximum number of concurrently admitted actions.
	// Live-bound entries treat this as required; the fluent constructor
	// defaults it to 10.
	Limit resolvable.Resolvable[int]

	// QueueLimit is the maximum number of waiters queued once Limit is
	// saturated. Default: 0 (no queueing; excess calls are rejected
	// immediately).
	QueueLimit resolvable.Resolvable[int]

	// Sink receives bulkhead.{execute,queued,complete,reject} events.
	// Default: telemetry.NoopSink.
	Sink telemetry.Sink
}

type bulkheadWaiter[T any] struct {
	ctx      context.Context
	action   Action[T]
	resultCh chan bulkheadResult[T]
}

type bulkheadResult[T any] struct {
	val T
	err error
}

// Bulkhead admits up to a resolved Limit of concurrent actions, queueing
// excess callers FIFO up to QueueLimit and rejecting the rest.
type Bulkhead[T any] struct {
	cfg BulkheadConfig[T]

	mu     sync.Mutex
	active int
	queue  []*bulkheadWaiter[T]
}

// NewBulkhead creates a Bulkhead, applying defaults to unset fields.
func NewBulkhead[T any](cfg BulkheadConfig[T]) *Bulkhead[T] {
	cfg.Limit = defaultIntResolvable(cfg.Limit, 10)
	if cfg.Sink == nil {
		cfg.Sink = telemetry.NoopSink{}
	}
	return &Bulkhead[T]{cfg: cfg}
}

// Execute admits action if below the resolved Limit, queues it if the
// resolved QueueLimit allows, or rejects it with a
// *BulkheadRejectedError.
func (b *Bulkhead[T]) Execute(ctx context.Context, action Action[T]) (T, error) {
	var zero T

	b.mu.Lock()
	limit := b.cfg.Limit.Resolve()
	queueLimit := b.cfg.QueueLimit.Resolve()

	if b.active < limit {
		b.active++
		b.mu.Unlock()
		return b.run(ctx, &bulkheadWaiter[T]{ctx: ctx, action: action})
	}

	if len(b.queue) < queueLimit {
		w := &bulkheadWaiter[T]{ctx: ctx, action: action, resultCh: make(chan bulkheadResult[T], 1)}
		b.queue = append(b.queue, w)
		b.mu.Unlock()
		b.cfg.Sink.Emit(ctx, telemetry.Event{Type: "bulkhead.queued"})

		select {
		case res := <-w.resultCh:
			return res.val, res.err
		case <-ctx.Done():
			b.removeWaiter(w)
			return zero, ctx.Err()
		}
	}
	b.mu.Unlock()

	b.cfg.Sink.Emit(ctx, telemetry.Event{
		Type:    "bulkhead.reject",
		Metrics: map[string]int{"bulkheadRejections": 1},
	})
	return zero, &BulkheadRejectedError{Limit: limit, QueueLimit: queueLimit}
}

// run invokes w's action inline (the caller already holds an admitted
// slot) and processes the queue on settle.
func (b *Bulkhead[T]) run(ctx context.Context, w *bulkheadWaiter[T]) (T, error) {
	b.cfg.Sink.Emit(ctx, telemetry.Event{Type: "bulkhead.execute"})
	val, err := w.action(w.ctx)

	b.mu.Lock()
	b.active--
	b.processQueueLocked()
	b.mu.Unlock()

	b.cfg.Sink.Emit(ctx, telemetry.Event{Type: "bulkhead.complete"})
	return val, err
}

// processQueueLocked admits queued waiters while the resolved Limit
// allows it. Called with b.mu held.
func (b *Bulkhead[T]) processQueueLocked() {
	for {
		limit := b.cfg.Limit.Resolve()
		if b.active >= limit || len(b.queue) == 0 {
			return
		}
		w := b.queue[0]
		b.queue = b.queue[1:]
		b.active++
		go b.runQueued(w)
	}
}

// runQueued runs a dequeued waiter's action and delivers its result,
// re-entering processQueueLocked on settle.
func (b *Bulkhead[T]) runQueued(w *bulkheadWaiter[T]) {
	b.cfg.Sink.Emit(w.ctx, telemetry.Event{Type: "bulkhead.execute"})
	val, err := w.action(w.ctx)
	w.resultCh <- bulkheadResult[T]{val: val, err: err}

	b.mu.Lock()
	b.active--
	b.processQueueLocked()
	b.mu.Unlock()

	b.cfg.Sink.Emit(w.ctx, telemetry.Event{Type: "bulkhead.complete"})
}

// removeWaiter drops w from the queue if it is still waiting (it may
// already have been dequeued and be running, in which case its buffered
// result channel simply goes unread).
func (b *Bulkhead[T]) removeWaiter(w *bulkheadWaiter[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, q := range b.queue {
		if q == w {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			return
		}
	}
}

// ActiveCount returns the current number of admitted in-flight actions.
func (b *Bulkhead[T]) ActiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// QueueLength returns the current number of queued waiters.
func (b *Bulkhead[T]) QueueLength() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Limit returns the currently resolved admission limit.
func (b *Bulkhead[T]) Limit() int {
	return b.cfg.Limit.Resolve()
}

// QueueLimit returns the currently resolved queue capacity.
func (b *Bulkhead[T]) QueueLimit() int {
	return b.cfg.QueueLimit.Resolve()
}
