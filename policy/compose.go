package policy

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// wrapped is the Policy returned by Wrap: outer.Execute(() =>
// inner.Execute(action)).
type wrapped[T any] struct {
	outer Policy[T]
	inner Policy[T]
}

// Wrap composes outer around inner: invocation order is
// outer-before-inner-before-action, settlement is inner-before-outer.
func Wrap[T any](outer, inner Policy[T]) Policy[T] {
	return wrapped[T]{outer: outer, inner: inner}
}

func (w wrapped[T]) Execute(ctx context.Context, action Action[T]) (T, error) {
	return w.outer.Execute(ctx, func(ctx context.Context) (T, error) {
		return w.inner.Execute(ctx, action)
	})
}

// fallback is the Policy returned by Or.
type fallback[T any] struct {
	primary   Policy[T]
	secondary Policy[T]
}

// Or runs primary first; if it fails, runs secondary and surfaces
// secondary's result (error included) regardless of primary's failure.
func Or[T any](primary, secondary Policy[T]) Policy[T] {
	return fallback[T]{primary: primary, secondary: secondary}
}

func (f fallback[T]) Execute(ctx context.Context, action Action[T]) (T, error) {
	val, err := f.primary.Execute(ctx, action)
	if err == nil {
		return val, nil
	}
	return f.secondary.Execute(ctx, action)
}

// raced is the Policy returned by Race.
type raced[T any] struct {
	a Policy[T]
	b Policy[T]
}

// Race runs a and b concurrently against independently cancellable
// copies of action's context, returning the first success. If both fail,
// a's error is returned. The loser is cancelled once a winner settles.
func Race[T any](a, b Policy[T]) Policy[T] {
	return raced[T]{a: a, b: b}
}

type raceResult[T any] struct {
	val   T
	err   error
	fromA bool
}

func (r raced[T]) Execute(ctx context.Context, action Action[T]) (T, error) {
	var zero T

	ctxA, cancelA := context.WithCancel(ctx)
	ctxB, cancelB := context.WithCancel(ctx)
	defer cancelA()
	defer cancelB()

	resultCh := make(chan raceResult[T], 2)
	var g errgroup.Group
	g.Go(func() error {
		val, err := r.a.Execute(ctxA, action)
		resultCh <- raceResult[T]{val: val, err: err, fromA: true}
		return nil
	})
	g.Go(func() error {
		val, err := r.b.Execute(ctxB, action)
		resultCh <- raceResult[T]{val: val, err: err, fromA: false}
		return nil
	})
	defer func() { go g.Wait() }()

	first := <-resultCh
	if first.err == nil {
		if first.fromA {
			cancelB()
		} else {
			cancelA()
		}
		return first.val, nil
	}

	second := <-resultCh
	if second.err == nil {
		return second.val, nil
	}

	// Both failed: a's error wins regardless of arrival order.
	if first.fromA {
		return zero, first.err
	}
	return zero, second.err
}
