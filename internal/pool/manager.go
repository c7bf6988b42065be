// Package pool runs a burst of queue workers: goroutines that drain
// the queue and exit, with a monitor loop that tops the pool back up
// while work remains.
package pool

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"ats-job-pipeline/internal/queue"
	"ats-job-pipeline/internal/telemetry"
)

// RunFunc is one worker's drain loop. It returns nil when the queue is
// empty and an error when the broker becomes unreachable. Closing stop
// tells the worker to finish its in-flight task and dequeue no more.
type RunFunc func(ctx context.Context, stop <-chan struct{}, workerID int) error

// Manager supervises a fixed number of worker slots over one queue.
type Manager struct {
	queue           *queue.Client
	queueName       string
	size            int
	monitorInterval time.Duration
	shutdownGrace   time.Duration
	run             RunFunc

	mu      sync.Mutex
	active  int
	spawned int
}

func NewManager(q *queue.Client, queueName string, size int, monitorInterval, shutdownGrace time.Duration, run RunFunc) *Manager {
	if size <= 0 {
		size = 1
	}
	if monitorInterval <= 0 {
		monitorInterval = time.Second
	}
	return &Manager{
		queue:           q,
		queueName:       queueName,
		size:            size,
		monitorInterval: monitorInterval,
		shutdownGrace:   shutdownGrace,
		run:             run,
	}
}

// Stats is a point-in-time snapshot for the status API.
type Stats struct {
	Queue         string `json:"queue"`
	Size          int    `json:"size"`
	ActiveWorkers int    `json:"active_workers"`
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Queue: m.queueName, Size: m.size, ActiveWorkers: m.active}
}

// Run drives the pool until the queue drains or ctx is cancelled.
//
// Shutdown is two-phase: on cancellation the stop channel closes so
// workers finish only their in-flight task, then the hard cancel fires
// after the shutdown grace; abandoned leases are redelivered after the
// visibility timeout.
func (m *Manager) Run(ctx context.Context) error {
	workerCtx, hardCancel := context.WithCancel(context.Background())
	defer hardCancel()
	stop := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < m.size; i++ {
		m.spawn(workerCtx, stop, &wg)
	}

	ticker := time.NewTicker(m.monitorInterval)
	defer ticker.Stop()

	// a few unreachable ticks are tolerated as a broker blip; past
	// that the pool halts so the operator sees the outage
	const maxBrokerFailures = 10
	brokerFailures := 0

	for {
		select {
		case <-ctx.Done():
			log.Printf("[pool] shutdown requested, draining up to %s", m.shutdownGrace)
			close(stop)
			graceTimer := time.AfterFunc(m.shutdownGrace, hardCancel)
			wg.Wait()
			graceTimer.Stop()
			telemetry.ActiveWorkers.Set(0)
			return ctx.Err()
		case <-ticker.C:
		}

		depth, err := m.queue.Depth(ctx, m.queueName)
		if err != nil {
			if errors.Is(err, queue.ErrUnavailable) {
				brokerFailures++
				log.Printf("[pool] broker unreachable (%d/%d): %v", brokerFailures, maxBrokerFailures, err)
				if brokerFailures >= maxBrokerFailures {
					hardCancel()
					wg.Wait()
					return err
				}
				continue
			}
			return err
		}
		brokerFailures = 0
		inflight, err := m.queue.InFlight(ctx, m.queueName)
		if err != nil {
			continue
		}

		m.mu.Lock()
		active := m.active
		m.mu.Unlock()

		telemetry.QueueDepthGauge.Set(float64(depth))
		telemetry.InFlightGauge.Set(float64(inflight))
		telemetry.ActiveWorkers.Set(float64(active))

		if depth == 0 && inflight == 0 && active == 0 {
			log.Printf("[pool] queue %q drained, stopping", m.queueName)
			return nil
		}
		// workers exit when they see an empty queue; restart slots
		// while tasks remain so retries get picked up
		for depth > 0 && active < m.size {
			m.spawn(workerCtx, stop, &wg)
			active++
		}
	}
}

func (m *Manager) spawn(ctx context.Context, stop <-chan struct{}, wg *sync.WaitGroup) {
	m.mu.Lock()
	m.active++
	m.spawned++
	id := m.spawned
	m.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			m.mu.Lock()
			m.active--
			m.mu.Unlock()
		}()
		if err := m.run(ctx, stop, id); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[pool] worker %d: %v", id, err)
		}
	}()
}
