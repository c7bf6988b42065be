package models

import "time"

// Task names dispatched by the worker processor.
const (
	TaskScrapeCompany = "scrape:company"
	TaskExtractBatch  = "extract:batch"
)

// RetryPolicy bounds task-level redelivery after handler failures.
// BackoffSeconds is consulted per attempt; the last entry repeats when
// attempts outnumber entries.
type RetryPolicy struct {
	MaxAttempts    int   `json:"max_attempts"`
	BackoffSeconds []int `json:"backoff_seconds,omitempty"`
}

// Delay returns the wait before re-running a task that has already
// failed attempt times.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.BackoffSeconds) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.BackoffSeconds) {
		idx = len(p.BackoffSeconds) - 1
	}
	return time.Duration(p.BackoffSeconds[idx]) * time.Second
}

// Task is the queue envelope. The broker guarantees single in-flight
// delivery per dequeue but may redeliver after a lease timeout, so every
// handler must be idempotent over its output artifact.
type Task struct {
	ID             string         `json:"id"`
	Queue          string         `json:"queue_name"`
	Name           string         `json:"task_name"`
	Args           map[string]any `json:"keyword_args"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty"`
	Retry          RetryPolicy    `json:"retry"`
	Attempts       int            `json:"attempts"`
	EnqueuedAt     time.Time      `json:"enqueued_at"`
}

// Timeout returns the per-task execution deadline, or zero when unset.
func (t Task) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}
