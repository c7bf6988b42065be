package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"ats-job-pipeline/internal/models"
	"ats-job-pipeline/internal/queue"
	"ats-job-pipeline/internal/telemetry"
)

// Handler executes one task of a given name.
type Handler func(ctx context.Context, task models.Task) error

// Processor drains a queue in burst mode: it pulls tasks until the
// queue is empty, then returns so the pool can retire the slot.
type Processor struct {
	queue    *queue.Client
	name     string
	handlers map[string]Handler
}

func NewProcessor(q *queue.Client, queueName string) *Processor {
	return &Processor{
		queue:    q,
		name:     queueName,
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler binds a handler to a task name.
func (p *Processor) RegisterHandler(taskName string, handler Handler) {
	if taskName == "" || handler == nil {
		return
	}
	p.handlers[taskName] = handler
}

// RunBurst processes tasks until the queue is drained, stop closes, or
// ctx is done. Handler failures are converted into retries or dead
// letters and do not stop the loop; only broker failures return an
// error. A closed stop ends the burst between tasks so a shutting-down
// pool never picks up new work.
func (p *Processor) RunBurst(ctx context.Context, stop <-chan struct{}, workerID int) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		task, err := p.queue.Dequeue(ctx, p.name)
		if err != nil {
			return fmt.Errorf("worker %d: %w", workerID, err)
		}
		if task == nil {
			return nil
		}

		err = p.runTask(ctx, *task)
		if err == nil {
			if err := p.queue.Ack(ctx, *task); err != nil {
				return fmt.Errorf("worker %d ack: %w", workerID, err)
			}
			continue
		}
		if ctx.Err() != nil {
			// shutdown mid-task; leave the lease to expire for redelivery
			return ctx.Err()
		}
		if err := p.retryOrBury(ctx, *task, err); err != nil {
			return fmt.Errorf("worker %d: %w", workerID, err)
		}
	}
}

func (p *Processor) runTask(ctx context.Context, task models.Task) error {
	handler, ok := p.handlers[task.Name]
	if !ok {
		return fmt.Errorf("no handler registered for task %q", task.Name)
	}
	if timeout := task.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return handler(ctx, task)
}

// retryOrBury records a failed attempt: schedule a retry when the
// budget allows, otherwise move the task to the dead letter queue.
func (p *Processor) retryOrBury(ctx context.Context, task models.Task, taskErr error) error {
	attempts := task.Attempts + 1
	if attempts >= task.Retry.MaxAttempts {
		log.Printf("[worker] task %s (%s) dead after %d attempts: %v", task.ID, task.Name, attempts, taskErr)
		telemetry.TaskDeadLetter.Inc()
		return p.queue.DeadLetter(ctx, task, taskErr.Error())
	}

	delay := task.Retry.Delay(attempts)
	log.Printf("[worker] task %s (%s) failed (attempt %d/%d), retry in %s: %v",
		task.ID, task.Name, attempts, task.Retry.MaxAttempts, delay, taskErr)
	telemetry.TaskRetries.Inc()
	task.Attempts = attempts
	return p.queue.ScheduleRetry(ctx, task, time.Now().Add(delay))
}
