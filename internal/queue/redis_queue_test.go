package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ats-job-pipeline/internal/models"
)

func newTestQueue(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(rdb, 30*time.Second), mr
}

func testTask(id string) models.Task {
	return models.Task{
		ID:    id,
		Queue: "scrape",
		Name:  models.TaskScrapeCompany,
		Args:  map[string]any{"ats": "greenhouse", "slug": "acme", "company": "Acme"},
		Retry: models.RetryPolicy{MaxAttempts: 3, BackoffSeconds: []int{10, 30, 60}},
	}
}

func TestEnqueueDequeueAck(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	if err := q.Enqueue(ctx, testTask("t1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	depth, err := q.Depth(ctx, "scrape")
	if err != nil || depth != 1 {
		t.Fatalf("depth = %d, err = %v, want 1", depth, err)
	}

	task, err := q.Dequeue(ctx, "scrape")
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if task == nil || task.ID != "t1" {
		t.Fatalf("dequeued %+v, want t1", task)
	}
	if task.Args["slug"] != "acme" {
		t.Fatalf("args lost in transit: %+v", task.Args)
	}

	inflight, _ := q.InFlight(ctx, "scrape")
	if inflight != 1 {
		t.Fatalf("inflight = %d, want 1", inflight)
	}

	if err := q.Ack(ctx, *task); err != nil {
		t.Fatalf("ack: %v", err)
	}
	inflight, _ = q.InFlight(ctx, "scrape")
	if inflight != 0 {
		t.Fatalf("inflight after ack = %d, want 0", inflight)
	}

	task, err = q.Dequeue(ctx, "scrape")
	if err != nil {
		t.Fatalf("dequeue empty: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task on empty queue, got %+v", task)
	}
}

func TestExpiredLeaseIsRedelivered(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewWithClient(rdb, 10*time.Millisecond)

	if err := q.Enqueue(ctx, testTask("t1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	first, err := q.Dequeue(ctx, "scrape")
	if err != nil || first == nil {
		t.Fatalf("first dequeue failed: %v", err)
	}

	// Worker "crashes" without acking; once the lease deadline
	// passes the task must come back.
	time.Sleep(20 * time.Millisecond)
	second, err := q.Dequeue(ctx, "scrape")
	if err != nil {
		t.Fatalf("second dequeue: %v", err)
	}
	if second == nil || second.ID != "t1" {
		t.Fatalf("expected redelivery of t1, got %+v", second)
	}
}

func TestScheduleRetryPromotesWhenDue(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	task := testTask("t1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	got, _ := q.Dequeue(ctx, "scrape")
	if got == nil {
		t.Fatal("dequeue returned nil")
	}

	got.Attempts = 1
	if err := q.ScheduleRetry(ctx, *got, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("schedule retry: %v", err)
	}

	redelivered, err := q.Dequeue(ctx, "scrape")
	if err != nil {
		t.Fatalf("dequeue after retry: %v", err)
	}
	if redelivered == nil || redelivered.Attempts != 1 {
		t.Fatalf("expected attempt-1 redelivery, got %+v", redelivered)
	}
}

func TestDeadLetter(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	task := testTask("t1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	got, _ := q.Dequeue(ctx, "scrape")
	if err := q.DeadLetter(ctx, *got, "handler failed after 3 attempts"); err != nil {
		t.Fatalf("dead letter: %v", err)
	}

	n, err := q.DLQLen(ctx, "scrape")
	if err != nil || n != 1 {
		t.Fatalf("dlq len = %d, err = %v, want 1", n, err)
	}
	items, err := q.DLQPeek(ctx, "scrape", 10)
	if err != nil || len(items) != 1 {
		t.Fatalf("dlq peek: %v items=%d", err, len(items))
	}
	inflight, _ := q.InFlight(ctx, "scrape")
	if inflight != 0 {
		t.Fatalf("inflight after dead letter = %d, want 0", inflight)
	}
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, testTask(id)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	n, err := q.Purge(ctx, "scrape")
	if err != nil || n != 3 {
		t.Fatalf("purge = %d, err = %v, want 3", n, err)
	}
	depth, _ := q.Depth(ctx, "scrape")
	if depth != 0 {
		t.Fatalf("depth after purge = %d, want 0", depth)
	}
}

func TestBrokerUnreachable(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQueue(t)
	mr.Close()

	err := q.Enqueue(ctx, testTask("t1"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("enqueue error = %v, want ErrUnavailable", err)
	}
	_, err = q.Dequeue(ctx, "scrape")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("dequeue error = %v, want ErrUnavailable", err)
	}
}
