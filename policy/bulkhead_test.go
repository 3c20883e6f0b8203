package policy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aperturestack/guardrail/resolvable"
)

func TestBulkhead_AdmitsUpToLimit(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig[int]{Limit: resolvable.Of(2)})
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	for i := 0; i < 2; i++ {
		go func() {
			_, _ = bh.Execute(context.Background(), func(ctx context.Context) (int, error) {
				started <- struct{}{}
				<-release
				return 0, nil
			})
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("both actions never started")
		}
	}
	if got := bh.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount() = %d, want 2", got)
	}
	close(release)
}

func TestBulkhead_RejectsWhenQueueFull(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig[int]{Limit: resolvable.Of(1), QueueLimit: resolvable.Of(0)})
	release := make(chan struct{})
	go func() {
		_, _ = bh.Execute(context.Background(), func(ctx context.Context) (int, error) {
			<-release
			return 0, nil
		})
	}()

	for bh.ActiveCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	_, err := bh.Execute(context.Background(), func(ctx context.Context) (int, error) { return 0, nil })
	var rejected *BulkheadRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want *BulkheadRejectedError", err)
	}
	close(release)
}

func TestBulkhead_QueuedWaitersDispatchInFIFOOrder(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig[int]{Limit: resolvable.Of(1), QueueLimit: resolvable.Of(5)})
	release := make(chan struct{})
	go func() {
		_, _ = bh.Execute(context.Background(), func(ctx context.Context) (int, error) {
			<-release
			return 0, nil
		})
	}()
	for bh.ActiveCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = bh.Execute(context.Background(), func(ctx context.Context) (int, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return 0, nil
			})
		}()
		for bh.QueueLength() != i+1 {
			time.Sleep(time.Millisecond)
		}
	}

	close(release)
	wg.Wait()

	want := []int{0, 1, 2}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i, w := range want {
		if order[i] != w {
			t.Errorf("order[%d] = %d, want %d (full order %v)", i, order[i], w, order)
		}
	}
}

func TestBulkhead_SoftShrinkDelaysNewAdmissionUntilBelowNewLimit(t *testing.T) {
	var limit atomic.Int64
	limit.Store(2)
	bh := NewBulkhead(BulkheadConfig[int]{
		Limit:      resolvable.OfFunc(func() int { return int(limit.Load()) }),
		QueueLimit: resolvable.Of(5),
	})

	release1 := make(chan struct{})
	release2 := make(chan struct{})
	done1 := make(chan struct{})
	done2 := make(chan struct{})

	go func() {
		_, _ = bh.Execute(context.Background(), func(ctx context.Context) (int, error) {
			<-release1
			return 0, nil
		})
		close(done1)
	}()
	go func() {
		_, _ = bh.Execute(context.Background(), func(ctx context.Context) (int, error) {
			<-release2
			return 0, nil
		})
		close(done2)
	}()

	for bh.ActiveCount() != 2 {
		time.Sleep(time.Millisecond)
	}

	limit.Store(1)

	thirdStarted := make(chan struct{})
	go func() {
		_, _ = bh.Execute(context.Background(), func(ctx context.Context) (int, error) {
			close(thirdStarted)
			return 0, nil
		})
	}()

	for bh.QueueLength() != 1 {
		time.Sleep(time.Millisecond)
	}

	select {
	case <-thirdStarted:
		t.Fatal("third action started before either original settled")
	case <-time.After(20 * time.Millisecond):
	}

	close(release1)
	<-done1

	select {
	case <-thirdStarted:
		t.Fatal("third action started while active still at new limit (1)")
	case <-time.After(20 * time.Millisecond):
	}

	close(release2)
	<-done2

	select {
	case <-thirdStarted:
	case <-time.After(time.Second):
		t.Fatal("third action never started after both originals settled")
	}
}
