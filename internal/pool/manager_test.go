package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ats-job-pipeline/internal/models"
	"ats-job-pipeline/internal/queue"
)

func testQueue(t *testing.T) *queue.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return queue.NewWithClient(rdb, time.Minute)
}

func enqueueN(t *testing.T, q *queue.Client, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		task := models.Task{
			ID:    string(rune('a' + i)),
			Queue: "work",
			Name:  "noop",
			Retry: models.RetryPolicy{MaxAttempts: 1},
		}
		if err := q.Enqueue(context.Background(), task); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
}

// drainFunc acks everything it dequeues, like a real worker burst.
func drainFunc(q *queue.Client, processed *atomic.Int64) RunFunc {
	return func(ctx context.Context, stop <-chan struct{}, _ int) error {
		for {
			select {
			case <-stop:
				return nil
			default:
			}
			task, err := q.Dequeue(ctx, "work")
			if err != nil {
				return err
			}
			if task == nil {
				return nil
			}
			if err := q.Ack(ctx, *task); err != nil {
				return err
			}
			processed.Add(1)
		}
	}
}

func TestManagerRunsUntilDrained(t *testing.T) {
	q := testQueue(t)
	enqueueN(t, q, 5)

	var processed atomic.Int64
	m := NewManager(q, "work", 2, 10*time.Millisecond, time.Second, drainFunc(q, &processed))

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := processed.Load(); got != 5 {
		t.Fatalf("processed = %d, want 5", got)
	}
	depth, _ := q.Depth(context.Background(), "work")
	if depth != 0 {
		t.Fatalf("depth = %d, want 0", depth)
	}
}

func TestManagerRestartsExitedWorkers(t *testing.T) {
	q := testQueue(t)
	enqueueN(t, q, 3)

	// first workers bail without touching the queue; the monitor must
	// spawn replacements to finish the work
	var bails atomic.Int64
	var processed atomic.Int64
	inner := drainFunc(q, &processed)
	m := NewManager(q, "work", 2, 10*time.Millisecond, time.Second, func(ctx context.Context, stop <-chan struct{}, id int) error {
		if bails.Add(1) <= 2 {
			return nil
		}
		return inner(ctx, stop, id)
	})

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := processed.Load(); got != 3 {
		t.Fatalf("processed = %d, want 3", got)
	}
}

func TestManagerShutdownCancelsWorkers(t *testing.T) {
	q := testQueue(t)
	enqueueN(t, q, 1)

	m := NewManager(q, "work", 1, 10*time.Millisecond, 50*time.Millisecond, func(ctx context.Context, _ <-chan struct{}, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := m.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("shutdown took %s", elapsed)
	}
	if got := m.Stats().ActiveWorkers; got != 0 {
		t.Fatalf("active = %d, want 0", got)
	}
}

func TestManagerShutdownStopsNewDequeues(t *testing.T) {
	q := testQueue(t)
	enqueueN(t, q, 10)

	var dequeued atomic.Int64
	firstTask := make(chan struct{})
	m := NewManager(q, "work", 1, 5*time.Millisecond, 2*time.Second, func(wctx context.Context, stop <-chan struct{}, _ int) error {
		for {
			select {
			case <-stop:
				return nil
			default:
			}
			task, err := q.Dequeue(wctx, "work")
			if err != nil || task == nil {
				return err
			}
			if dequeued.Add(1) == 1 {
				close(firstTask)
			}
			time.Sleep(20 * time.Millisecond)
			if err := q.Ack(wctx, *task); err != nil {
				return err
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-firstTask
		cancel()
	}()

	err := m.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	// the in-flight task finishes within the grace; one more dequeue can
	// race the stop, but the rest must stay queued
	if got := dequeued.Load(); got > 2 {
		t.Fatalf("dequeued %d tasks after shutdown began, want at most 2", got)
	}
	depth, _ := q.Depth(context.Background(), "work")
	if depth < 8 {
		t.Fatalf("depth = %d, want undequeued tasks left on the queue", depth)
	}
}
