package pool

import (
	"context"
	"sync"

	"github.com/clientpilot/backend/internal/infrastructure/monitoring"
)

// settlement is the terminal result of a queued task.
type settlement struct {
	value interface{}
	err   error
}

// Future resolves to a queued task's result.
type Future struct {
	ch chan settlement
}

// Wait blocks until the task settles or ctx is cancelled.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case s := <-f.ch:
		return s.value, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type queued struct {
	ctx      context.Context
	tenantID string
	fn       TaskFn
	future   *Future
}

// Queue bounds the number of tasks executing concurrently across the whole
// pool. Admission is strictly FIFO; completion order is not, because launch
// cost and task duration vary.
type Queue struct {
	dispatcher *Dispatcher
	maxRunning int
	metrics    *monitoring.Metrics

	mu      sync.Mutex
	pending []*queued
	running int
	closed  bool
}

// NewQueue creates an admission queue over the dispatcher.
func NewQueue(dispatcher *Dispatcher, maxConcurrentTasks int) *Queue {
	if maxConcurrentTasks <= 0 {
		maxConcurrentTasks = 1
	}
	return &Queue{
		dispatcher: dispatcher,
		maxRunning: maxConcurrentTasks,
	}
}

// WithMetrics adds metrics tracking to the queue.
func (q *Queue) WithMetrics(metrics *monitoring.Metrics) *Queue {
	q.metrics = metrics
	return q
}

// Submit enqueues a task and returns a future for its result. A failing
// task settles only its own future; the drain loop proceeds to the next
// entry regardless.
func (q *Queue) Submit(ctx context.Context, tenantID string, fn TaskFn) *Future {
	future := &Future{ch: make(chan settlement, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		future.ch <- settlement{err: ErrClosed}
		return future
	}
	q.pending = append(q.pending, &queued{
		ctx:      ctx,
		tenantID: tenantID,
		fn:       fn,
		future:   future,
	})
	q.publishDepth()
	q.mu.Unlock()

	q.drain()
	return future
}

// drain admits pending tasks while concurrency slots are free. Invoked
// after every submit and every settlement.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if q.closed || q.running >= q.maxRunning || len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		item := q.pending[0]
		q.pending = q.pending[1:]
		q.running++
		q.publishDepth()
		q.mu.Unlock()

		go q.run(item)
	}
}

func (q *Queue) run(item *queued) {
	value, err := q.dispatcher.Execute(item.ctx, item.tenantID, item.fn)
	item.future.ch <- settlement{value: value, err: err}

	q.mu.Lock()
	q.running--
	q.publishDepth()
	q.mu.Unlock()

	q.drain()
}

// Depth returns the number of tasks waiting for admission.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Running returns the number of tasks currently executing.
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Close rejects all pending tasks with ErrClosed and refuses new submits.
// In-flight tasks run to completion.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	for _, item := range q.pending {
		item.future.ch <- settlement{err: ErrClosed}
	}
	q.pending = nil
	q.publishDepth()
}

// publishDepth pushes queue gauges. Caller must hold the lock.
func (q *Queue) publishDepth() {
	q.metrics.SetQueueDepth(len(q.pending))
	q.metrics.SetTasksRunning(q.running)
}
