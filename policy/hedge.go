package policy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aperturestack/guardrail/clock"
	"github.com/aperturestack/guardrail/resolvable"
	"github.com/aperturestack/guardrail/telemetry"
)

// HedgeConfig configures a Hedge policy. Delay and MaxHedges are
// resolved once per Execute call.
type HedgeConfig[T any] struct {
	// Delay is the spacing between speculative launches: launch i fires
	// at Delay*i after the call starts. Default: 100ms.
	Delay resolvable.Resolvable[time.Duration]

	// MaxHedges is the number of speculative launches beyond the initial
	// attempt. Default: 1.
	MaxHedges resolvable.Resolvable[int]

	// Clock schedules the deferred launches. Default: clock.Default.
	Clock clock.Clock

	// Sink receives hedge.{attempt,success,failure} events. Default:
	// telemetry.NoopSink.
	Sink telemetry.Sink
}

type hedgeResult[T any] struct {
	val   T
	err   error
	index int
}

// Hedge runs an initial attempt immediately and, unless it has already
// settled, launches additional speculative attempts at fixed intervals.
// The first attempt to succeed wins; the rest are cooperatively
// cancelled.
type Hedge[T any] struct {
	cfg HedgeConfig[T]
}

// NewHedge creates a Hedge policy, applying defaults to unset fields.
func NewHedge[T any](cfg HedgeConfig[T]) *Hedge[T] {
	cfg.Delay = defaultDurationResolvable(cfg.Delay, 100*time.Millisecond)
	cfg.MaxHedges = defaultIntResolvable(cfg.MaxHedges, 1)
	if cfg.Clock == nil {
		cfg.Clock = clock.Default
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.NoopSink{}
	}
	return &Hedge[T]{cfg: cfg}
}

// Execute runs action, hedging with up to the resolved MaxHedges extra
// speculative attempts spaced Delay apart. It returns as soon as any
// attempt succeeds; if every attempt fails, the first failure is
// returned.
func (h *Hedge[T]) Execute(ctx context.Context, action Action[T]) (T, error) {
	var zero T
	delay := h.cfg.Delay.Resolve()
	maxHedges := h.cfg.MaxHedges.Resolve()
	total := maxHedges + 1

	resultCh := make(chan hedgeResult[T], total)

	var finished atomic.Bool
	var mu sync.Mutex
	var cancels []context.CancelFunc
	cancelAll := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range cancels {
			c()
		}
	}

	// Scheduler sleeps are scoped to this call so losing launch timers do
	// not outlive a settled Execute.
	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()

	var g errgroup.Group
	defer func() { go g.Wait() }()

	launch := func(index int) {
		if finished.Load() {
			return
		}
		attemptCtx, cancel := context.WithCancel(ctx)
		mu.Lock()
		cancels = append(cancels, cancel)
		mu.Unlock()

		ev := telemetry.Event{Type: "hedge.attempt", Meta: map[string]any{"index": index}}
		if index > 0 {
			ev.Metrics = map[string]int{"hedges": 1}
		}
		h.cfg.Sink.Emit(ctx, ev)
		g.Go(func() error {
			val, err := action(attemptCtx)
			resultCh <- hedgeResult[T]{val: val, err: err, index: index}
			return nil
		})
	}

	launch(0)
	for i := 1; i <= maxHedges; i++ {
		i := i
		g.Go(func() error {
			if err := h.cfg.Clock.Sleep(schedCtx, delay*time.Duration(i)); err != nil {
				return nil
			}
			launch(i)
			return nil
		})
	}

	var firstErr error
	received := 0
	for received < total {
		select {
		case res := <-resultCh:
			received++
			if res.err == nil {
				finished.Store(true)
				cancelAll()
				h.cfg.Sink.Emit(ctx, telemetry.Event{Type: "hedge.success", Meta: map[string]any{"index": res.index}})
				return res.val, nil
			}
			h.cfg.Sink.Emit(ctx, telemetry.Event{Type: "hedge.failure", Meta: map[string]any{"index": res.index}})
			if firstErr == nil {
				firstErr = res.err
			}
		case <-ctx.Done():
			cancelAll()
			return zero, ctx.Err()
		}
	}

	cancelAll()
	return zero, firstErr
}
