package pool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clientpilot/backend/internal/infrastructure/monitoring"
)

// Reaper reclaims sandboxes that sit idle past the configured threshold,
// plus handles stuck in the error state. It runs independently of any
// pending task: a slow launch or long task never blocks a sweep.
type Reaper struct {
	registry *Registry
	factory  *Factory
	maxIdle  time.Duration
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewReaper creates a reaper with the given idle reclamation threshold.
func NewReaper(registry *Registry, factory *Factory, maxIdle time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{
		registry: registry,
		factory:  factory,
		maxIdle:  maxIdle,
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking to the reaper.
func (r *Reaper) WithMetrics(metrics *monitoring.Metrics) *Reaper {
	r.metrics = metrics
	return r
}

// Sweep destroys every handle that is errored or idle longer than maxIdle,
// and returns the number destroyed. Candidate selection runs over a
// registry snapshot; the factory re-checks each handle's status under the
// registry lock immediately before teardown, so a handle that went Busy
// after the snapshot always survives.
func (r *Reaper) Sweep(ctx context.Context, maxIdle time.Duration) int {
	now := time.Now()
	destroyed := 0

	for _, info := range r.registry.All() {
		switch info.State() {
		case StatusError:
			// Collected regardless of age.
		case StatusIdle:
			if now.Sub(info.IdleSince) <= maxIdle {
				continue
			}
		default:
			continue
		}

		if r.factory.Reap(ctx, info.ID, maxIdle) {
			destroyed++
			r.logger.Info("sandbox reaped",
				zap.String("sandbox_id", info.ID),
				zap.String("tenant_id", info.TenantID),
				zap.String("status", info.Status),
			)
		}
	}

	if destroyed > 0 {
		r.metrics.AddSandboxesReaped(destroyed)
	}
	return destroyed
}

// Start launches the background sweep loop. Idempotent: starting a running
// reaper is a no-op.
func (r *Reaper) Start(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.loop(interval, r.stop, r.done)
	r.logger.Info("reaper started",
		zap.Duration("interval", interval),
		zap.Duration("max_idle", r.maxIdle),
	)
}

// Stop halts the sweep loop and waits for an in-progress sweep to finish.
// Idempotent: stopping a stopped reaper is a no-op.
func (r *Reaper) Stop() {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	r.logger.Info("reaper stopped")
}

// Running reports whether the background loop is active.
func (r *Reaper) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

func (r *Reaper) loop(interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(context.Background(), r.maxIdle)
		case <-stop:
			return
		}
	}
}
