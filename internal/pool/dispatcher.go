package pool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clientpilot/backend/internal/infrastructure/monitoring"
	"github.com/clientpilot/backend/internal/page"
	"github.com/clientpilot/backend/internal/shared/id"
)

// Dispatcher binds tasks to sandboxes: it reuses the tenant's idle handle
// when one exists, launches a new one otherwise, and bounds every task
// with the configured deadline.
type Dispatcher struct {
	registry *Registry
	factory  *Factory
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewDispatcher creates a task dispatcher.
func NewDispatcher(registry *Registry, factory *Factory, taskTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
		timeout:  taskTimeout,
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking to the dispatcher.
func (d *Dispatcher) WithMetrics(metrics *monitoring.Metrics) *Dispatcher {
	d.metrics = metrics
	return d
}

// Execute runs one task for the tenant. ErrPoolExhausted propagates
// unchanged when no handle can be reused or launched; timeouts surface as
// ErrTaskTimeout with the sandbox marked errored; task errors surface as
// ErrTaskFailed with the cause preserved.
func (d *Dispatcher) Execute(ctx context.Context, tenantID string, fn TaskFn) (interface{}, error) {
	return d.ExecuteWithOptions(ctx, tenantID, fn, nil)
}

// ExecuteWithOptions is Execute with a per-call sandbox launch override.
func (d *Dispatcher) ExecuteWithOptions(ctx context.Context, tenantID string, fn TaskFn, launchOpts *page.Options) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h, err := d.acquire(ctx, tenantID, launchOpts)
	if err != nil {
		return nil, err
	}

	taskID := id.NewTaskID().String()
	start := time.Now()

	taskCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		value interface{}
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, taskErr := fn(taskCtx, h.sandbox)
		done <- outcome{v, taskErr}
	}()

	select {
	case o := <-done:
		duration := time.Since(start)
		if o.err != nil {
			d.registry.MarkError(h.ID)
			d.metrics.RecordTask("failed", duration)
			d.logger.Warn("task failed",
				zap.String("task_id", taskID),
				zap.String("sandbox_id", h.ID),
				zap.String("tenant_id", tenantID),
				zap.Error(o.err),
			)
			return nil, fmt.Errorf("%w: %w", ErrTaskFailed, o.err)
		}

		d.registry.Release(h.ID)
		d.metrics.RecordTask("ok", duration)
		d.logger.Debug("task completed",
			zap.String("task_id", taskID),
			zap.String("sandbox_id", h.ID),
			zap.Duration("duration", duration),
		)
		return o.value, nil

	case <-taskCtx.Done():
		// The task is abandoned, not preempted: the goroutine keeps the
		// buffered channel and exits when the page VM observes the
		// cancelled context. The handle is errored and left for the reaper.
		d.registry.MarkError(h.ID)
		d.metrics.RecordTask("timeout", time.Since(start))
		d.logger.Warn("task deadline exceeded",
			zap.String("task_id", taskID),
			zap.String("sandbox_id", h.ID),
			zap.String("tenant_id", tenantID),
			zap.Duration("timeout", d.timeout),
		)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrTaskTimeout
	}
}

// acquire claims the tenant's first idle handle or launches a fresh one.
func (d *Dispatcher) acquire(ctx context.Context, tenantID string, launchOpts *page.Options) (*Handle, error) {
	for {
		if h, ok := d.registry.Acquire(tenantID); ok {
			return h, nil
		}

		h, err := d.factory.Launch(ctx, tenantID, launchOpts)
		if err != nil {
			return nil, err
		}

		if claimed, ok := d.registry.AcquireByID(h.ID); ok {
			return claimed, nil
		}
		// A concurrent task for the same tenant claimed the fresh handle
		// between commit and our claim; go around again.
	}
}
