// Package queue is a thin task-queue client over Redis. Ready tasks sit
// in a per-queue list, leased tasks in a deadline-scored zset, and the
// full envelope in a per-task key, so a worker crash mid-task leads to
// redelivery after the lease expires (at-least-once).
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ats-job-pipeline/internal/config"
	"ats-job-pipeline/internal/models"
)

// ErrUnavailable wraps broker connectivity failures. Callers propagate
// it; there is no local fallback queuing.
var ErrUnavailable = errors.New("queue unavailable")

// Client coordinates ready, in-flight, scheduled, and dead-letter task
// sets in Redis.
type Client struct {
	rdb           *redis.Client
	visibilityTTL time.Duration
}

// New builds a queue client from config.
func New(cfg config.Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	visibility := cfg.VisibilityTimeout
	if visibility == 0 {
		visibility = 2 * time.Minute
	}
	return &Client{rdb: rdb, visibilityTTL: visibility}
}

// NewWithClient wraps an existing Redis client (tests).
func NewWithClient(rdb *redis.Client, visibility time.Duration) *Client {
	if visibility == 0 {
		visibility = 2 * time.Minute
	}
	return &Client{rdb: rdb, visibilityTTL: visibility}
}

func readyKey(queue string) string     { return "pipeline:ready:" + queue }
func inflightKey(queue string) string  { return "pipeline:inflight:" + queue }
func scheduledKey(queue string) string { return "pipeline:scheduled:" + queue }
func dlqKey(queue string) string       { return "pipeline:dlq:" + queue }
func taskKey(id string) string         { return "pipeline:task:" + id }

func brokerErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// Enqueue stores the task envelope and pushes its ID onto the ready list.
func (c *Client) Enqueue(ctx context.Context, task models.Task) error {
	if task.ID == "" || task.Queue == "" {
		return errors.New("task id and queue are required")
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, taskKey(task.ID), raw, 0)
	pipe.RPush(ctx, readyKey(task.Queue), task.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return brokerErr("enqueue", err)
	}
	return nil
}

// Dequeue pops the next ready task and leases it, placing its ID in the
// in-flight set with a visibility deadline. It returns (nil, nil) when
// the queue is empty. Due retries are promoted and expired leases
// reclaimed before popping.
func (c *Client) Dequeue(ctx context.Context, queue string) (*models.Task, error) {
	now := time.Now()
	if _, err := c.promoteScheduled(ctx, queue, now); err != nil {
		return nil, err
	}
	if _, err := c.RequeueExpired(ctx, queue, now); err != nil {
		return nil, err
	}

	lease := now.Add(c.visibilityTTL)
	res, err := dequeueScript.Run(ctx, c.rdb,
		[]string{readyKey(queue), inflightKey(queue)}, lease.UnixMilli()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, brokerErr("dequeue", err)
	}
	id, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected type from dequeue script: %T", res)
	}
	return c.getTask(ctx, queue, id)
}

func (c *Client) getTask(ctx context.Context, queue, id string) (*models.Task, error) {
	raw, err := c.rdb.Get(ctx, taskKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		// Envelope gone (purged mid-flight); drop the lease.
		_ = c.rdb.ZRem(ctx, inflightKey(queue), id).Err()
		return nil, nil
	}
	if err != nil {
		return nil, brokerErr("load task", err)
	}
	var task models.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return &task, nil
}

// Ack removes a completed task from the in-flight set and deletes its
// envelope.
func (c *Client) Ack(ctx context.Context, task models.Task) error {
	pipe := c.rdb.TxPipeline()
	pipe.ZRem(ctx, inflightKey(task.Queue), task.ID)
	pipe.Del(ctx, taskKey(task.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return brokerErr("ack", err)
	}
	return nil
}

// ScheduleRetry re-records the envelope with its bumped attempt count
// and parks the task until runAt, releasing the current lease.
func (c *Client) ScheduleRetry(ctx context.Context, task models.Task, runAt time.Time) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, taskKey(task.ID), raw, 0)
	pipe.ZRem(ctx, inflightKey(task.Queue), task.ID)
	pipe.ZAdd(ctx, scheduledKey(task.Queue), redis.Z{Score: float64(runAt.UnixMilli()), Member: task.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return brokerErr("schedule retry", err)
	}
	return nil
}

// DeadLetter moves a task that exhausted its retry policy onto the DLQ
// list for operator inspection.
func (c *Client) DeadLetter(ctx context.Context, task models.Task, reason string) error {
	entry, err := json.Marshal(map[string]any{
		"task":   task,
		"reason": reason,
		"at":     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.ZRem(ctx, inflightKey(task.Queue), task.ID)
	pipe.Del(ctx, taskKey(task.ID))
	pipe.RPush(ctx, dlqKey(task.Queue), entry)
	if _, err := pipe.Exec(ctx); err != nil {
		return brokerErr("dead letter", err)
	}
	return nil
}

// promoteScheduled moves due retries back onto the ready list.
func (c *Client) promoteScheduled(ctx context.Context, queue string, now time.Time) (int, error) {
	ids, err := c.rdb.ZRangeByScore(ctx, scheduledKey(queue), &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%d", now.UnixMilli()), Offset: 0, Count: 100,
	}).Result()
	if err != nil {
		return 0, brokerErr("promote scheduled", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	pipe := c.rdb.TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, scheduledKey(queue), id)
		pipe.RPush(ctx, readyKey(queue), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, brokerErr("promote scheduled", err)
	}
	return len(ids), nil
}

// RequeueExpired reclaims leases that timed out, re-enqueuing their
// tasks for redelivery.
func (c *Client) RequeueExpired(ctx context.Context, queue string, now time.Time) ([]string, error) {
	ids, err := c.rdb.ZRangeByScore(ctx, inflightKey(queue), &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%d", now.UnixMilli()), Offset: 0, Count: 100,
	}).Result()
	if err != nil {
		return nil, brokerErr("requeue expired", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := c.rdb.TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, inflightKey(queue), id)
		pipe.RPush(ctx, readyKey(queue), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, brokerErr("requeue expired", err)
	}
	return ids, nil
}

// Depth returns the number of ready tasks (due retries included, since
// they will run as soon as a worker promotes them).
func (c *Client) Depth(ctx context.Context, queue string) (int64, error) {
	pipe := c.rdb.Pipeline()
	ready := pipe.LLen(ctx, readyKey(queue))
	scheduled := pipe.ZCard(ctx, scheduledKey(queue))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, brokerErr("depth", err)
	}
	return ready.Val() + scheduled.Val(), nil
}

// InFlight returns the number of currently leased tasks.
func (c *Client) InFlight(ctx context.Context, queue string) (int64, error) {
	n, err := c.rdb.ZCard(ctx, inflightKey(queue)).Result()
	if err != nil {
		return 0, brokerErr("inflight", err)
	}
	return n, nil
}

// DLQLen returns the dead-letter list length.
func (c *Client) DLQLen(ctx context.Context, queue string) (int64, error) {
	n, err := c.rdb.LLen(ctx, dlqKey(queue)).Result()
	if err != nil {
		return 0, brokerErr("dlq len", err)
	}
	return n, nil
}

// DLQPeek reads up to count dead-letter entries without removing them.
func (c *Client) DLQPeek(ctx context.Context, queue string, count int64) ([]string, error) {
	items, err := c.rdb.LRange(ctx, dlqKey(queue), 0, count-1).Result()
	if err != nil {
		return nil, brokerErr("dlq peek", err)
	}
	return items, nil
}

// Purge drops every ready and scheduled task on the queue along with
// their envelopes. Leased tasks are left to finish.
func (c *Client) Purge(ctx context.Context, queue string) (int, error) {
	ids, err := c.rdb.LRange(ctx, readyKey(queue), 0, -1).Result()
	if err != nil {
		return 0, brokerErr("purge", err)
	}
	scheduled, err := c.rdb.ZRange(ctx, scheduledKey(queue), 0, -1).Result()
	if err != nil {
		return 0, brokerErr("purge", err)
	}
	ids = append(ids, scheduled...)
	pipe := c.rdb.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, taskKey(id))
	}
	pipe.Del(ctx, readyKey(queue))
	pipe.Del(ctx, scheduledKey(queue))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, brokerErr("purge", err)
	}
	return len(ids), nil
}

// Ping verifies broker connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return brokerErr("ping", err)
	}
	return nil
}

var dequeueScript = redis.NewScript(`
local id = redis.call('LPOP', KEYS[1])
if id then
  redis.call('ZADD', KEYS[2], ARGV[1], id)
  return id
end
return nil
`)
