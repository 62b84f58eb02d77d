package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestPoolRunBoundsConcurrency(t *testing.T) {
	p := New(2)
	var inFlight, maxSeen int32
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			n := atomic.AddInt32(&inFlight, 1)
			defer atomic.AddInt32(&inFlight, -1)
			for {
				cur := atomic.LoadInt32(&maxSeen)
				if n <= cur || atomic.CompareAndSwapInt32(&maxSeen, cur, n) {
					break
				}
			}
			return nil
		}
	}
	if err := p.Run(context.Background(), tasks); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if maxSeen > 2 {
		t.Fatalf("concurrency bound violated: saw %d tasks in flight, want <= 2", maxSeen)
	}
}

func TestPoolRunFirstError(t *testing.T) {
	p := New(4)
	sentinel := errors.New("boom")
	tasks := []Task{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return sentinel },
		func(ctx context.Context) error { return nil },
	}
	err := p.Run(context.Background(), tasks)
	if !errors.Is(err, sentinel) {
		t.Fatalf("Run error = %v, want %v", err, sentinel)
	}
}

func TestPoolRunIndexedOrdering(t *testing.T) {
	p := New(3)
	n := 10
	results, err := p.RunIndexed(context.Background(), n, func(ctx context.Context, i int) (bool, error) {
		return i%2 == 0, nil
	})
	if err != nil {
		t.Fatalf("RunIndexed returned error: %v", err)
	}
	for i, r := range results {
		want := i%2 == 0
		if r != want {
			t.Errorf("results[%d] = %v, want %v", i, r, want)
		}
	}
}

func TestPoolNewDefaultsWorkers(t *testing.T) {
	p := New(0)
	if p.maxWorkers <= 0 {
		t.Fatalf("New(0).maxWorkers = %d, want > 0", p.maxWorkers)
	}
}
