package pool

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clientpilot/backend/internal/infrastructure/monitoring"
	"github.com/clientpilot/backend/internal/page"
)

// Config is the pool's process-wide configuration. Constructed once at
// startup; there is no runtime mutation API.
type Config struct {
	MaxSandboxes       int           // Hard ceiling on live sandboxes
	MaxConcurrentTasks int           // Global in-flight task cap
	TaskTimeout        time.Duration // Per-task deadline
	IdleReclaim        time.Duration // Idle age before a sandbox is reaped
	ReapInterval       time.Duration // Background sweep cadence
	Defaults           page.Options  // Launch defaults (viewport, UA, hints)
}

// DefaultConfig returns production defaults for the pool.
func DefaultConfig() Config {
	return Config{
		MaxSandboxes:       12,
		MaxConcurrentTasks: 4,
		TaskTimeout:        30 * time.Second,
		IdleReclaim:        3 * time.Minute,
		ReapInterval:       time.Minute,
		Defaults:           page.DefaultOptions(),
	}
}

// PoolStatus is the orchestrator's introspection snapshot.
type PoolStatus struct {
	VMs                []Info `json:"vms"`
	QueueDepth         int    `json:"queue_depth"`
	Running            int    `json:"running"`
	MaxSandboxes       int    `json:"max_sandboxes"`
	MaxConcurrentTasks int    `json:"max_concurrent_tasks"`
	AutoReap           bool   `json:"auto_reap"`
}

// Orchestrator is the public pool surface: launch/destroy, direct and
// queued task execution, introspection, and reaper lifecycle.
type Orchestrator struct {
	cfg        Config
	registry   *Registry
	factory    *Factory
	dispatcher *Dispatcher
	queue      *Queue
	reaper     *Reaper
	logger     *zap.Logger
}

// New wires up a pool orchestrator over the given launcher.
func New(launcher Launcher, cfg Config, logger *zap.Logger) *Orchestrator {
	registry := NewRegistry(cfg.MaxSandboxes)
	factory := NewFactory(registry, launcher, cfg.Defaults, logger)
	dispatcher := NewDispatcher(registry, factory, cfg.TaskTimeout, logger)

	return &Orchestrator{
		cfg:        cfg,
		registry:   registry,
		factory:    factory,
		dispatcher: dispatcher,
		queue:      NewQueue(dispatcher, cfg.MaxConcurrentTasks),
		reaper:     NewReaper(registry, factory, cfg.IdleReclaim, logger),
		logger:     logger,
	}
}

// WithMetrics adds metrics tracking to all pool components.
func (o *Orchestrator) WithMetrics(metrics *monitoring.Metrics) *Orchestrator {
	o.factory.WithMetrics(metrics)
	o.dispatcher.WithMetrics(metrics)
	o.queue.WithMetrics(metrics)
	o.reaper.WithMetrics(metrics)
	return o
}

// Launch explicitly creates a sandbox for the tenant and returns its
// handle snapshot.
func (o *Orchestrator) Launch(ctx context.Context, tenantID string, opts *page.Options) (Info, error) {
	h, err := o.factory.Launch(ctx, tenantID, opts)
	if err != nil {
		return Info{}, err
	}
	info, _ := o.registry.Get(h.ID)
	return info, nil
}

// Destroy tears down one sandbox. No-op for unknown handles.
func (o *Orchestrator) Destroy(ctx context.Context, handleID string) {
	o.factory.Destroy(ctx, handleID)
}

// DestroyAllForTenant tears down every sandbox owned by the tenant and
// returns how many were destroyed.
func (o *Orchestrator) DestroyAllForTenant(ctx context.Context, tenantID string) int {
	destroyed := 0
	for _, info := range o.registry.All() {
		if info.TenantID == tenantID {
			o.factory.Destroy(ctx, info.ID)
			destroyed++
		}
	}
	return destroyed
}

// ExecuteNow dispatches a task immediately, bypassing the admission queue.
// Callers get ErrPoolExhausted feedback instead of waiting.
func (o *Orchestrator) ExecuteNow(ctx context.Context, tenantID string, fn TaskFn) (interface{}, error) {
	return o.dispatcher.Execute(ctx, tenantID, fn)
}

// Submit enqueues a task behind the global concurrency cap.
func (o *Orchestrator) Submit(ctx context.Context, tenantID string, fn TaskFn) *Future {
	return o.queue.Submit(ctx, tenantID, fn)
}

// Status returns a snapshot of the whole pool.
func (o *Orchestrator) Status() PoolStatus {
	return PoolStatus{
		VMs:                o.registry.All(),
		QueueDepth:         o.queue.Depth(),
		Running:            o.queue.Running(),
		MaxSandboxes:       o.cfg.MaxSandboxes,
		MaxConcurrentTasks: o.cfg.MaxConcurrentTasks,
		AutoReap:           o.reaper.Running(),
	}
}

// StatusOf returns a snapshot of one handle.
func (o *Orchestrator) StatusOf(handleID string) (Info, bool) {
	return o.registry.Get(handleID)
}

// Screenshot captures a snapshot of a sandbox's current page.
func (o *Orchestrator) Screenshot(ctx context.Context, handleID string) ([]byte, error) {
	o.registry.mu.RLock()
	h, ok := o.registry.entries[handleID]
	o.registry.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return h.sandbox.Screenshot(ctx)
}

// Sweep runs one reclamation pass with the configured idle threshold.
func (o *Orchestrator) Sweep(ctx context.Context) int {
	return o.reaper.Sweep(ctx, o.cfg.IdleReclaim)
}

// StartAutoReap starts the background reclamation loop. Idempotent.
func (o *Orchestrator) StartAutoReap(interval time.Duration) {
	if interval <= 0 {
		interval = o.cfg.ReapInterval
	}
	o.reaper.Start(interval)
}

// StopAutoReap stops the background reclamation loop. Idempotent.
func (o *Orchestrator) StopAutoReap() {
	o.reaper.Stop()
}

// Close shuts the pool down: stops the reaper, rejects queued tasks, and
// destroys every live sandbox.
func (o *Orchestrator) Close(ctx context.Context) {
	o.reaper.Stop()
	o.queue.Close()
	for _, info := range o.registry.All() {
		o.factory.Destroy(ctx, info.ID)
	}
	o.logger.Info("pool closed")
}
