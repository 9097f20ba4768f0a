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

// Launcher creates and tears down the underlying sandbox resource. The
// page engine is the production implementation; tests substitute fakes.
type Launcher interface {
	Create(ctx context.Context, opts page.Options) (Sandbox, error)
	Destroy(ctx context.Context, sb Sandbox) error
}

// NewEngineLauncher adapts a page engine to the Launcher interface.
func NewEngineLauncher(engine *page.Engine) Launcher {
	return &engineLauncher{engine: engine}
}

type engineLauncher struct {
	engine *page.Engine
}

func (l *engineLauncher) Create(ctx context.Context, opts page.Options) (Sandbox, error) {
	return l.engine.Create(ctx, opts)
}

func (l *engineLauncher) Destroy(ctx context.Context, sb Sandbox) error {
	if pg, ok := sb.(*page.Page); ok {
		return l.engine.Destroy(ctx, pg)
	}
	return sb.Close()
}

// Factory launches and destroys sandbox handles. It is the only writer of
// registry membership; status flips belong to the dispatcher.
type Factory struct {
	registry *Registry
	launcher Launcher
	defaults page.Options
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewFactory creates a sandbox factory.
func NewFactory(registry *Registry, launcher Launcher, defaults page.Options, logger *zap.Logger) *Factory {
	return &Factory{
		registry: registry,
		launcher: launcher,
		defaults: defaults,
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking to the factory.
func (f *Factory) WithMetrics(metrics *monitoring.Metrics) *Factory {
	f.metrics = metrics
	return f
}

// Launch creates a sandbox for the tenant and registers its handle. The
// ceiling check and the slot claim are one atomic step; the sandbox is
// created against the reserved slot outside the lock, so the ceiling holds
// under concurrent launches without serializing creation I/O.
func (f *Factory) Launch(ctx context.Context, tenantID string, opts *page.Options) (*Handle, error) {
	if err := f.registry.Reserve(); err != nil {
		f.metrics.RecordLaunch("exhausted")
		return nil, err
	}

	launchOpts := f.defaults
	if opts != nil {
		launchOpts = *opts
	}

	sb, err := f.launcher.Create(ctx, launchOpts)
	if err != nil {
		f.registry.Unreserve()
		f.metrics.RecordLaunch("failed")
		f.logger.Error("sandbox launch failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	now := time.Now()
	h := &Handle{
		ID:         id.NewSandboxID().String(),
		TenantID:   tenantID,
		LaunchedAt: now,
		sandbox:    sb,
		status:     StatusIdle,
		idleSince:  now,
	}
	f.registry.Commit(h)

	f.metrics.RecordLaunch("ok")
	f.metrics.SetSandboxesLive(f.registry.Len())
	f.logger.Info("sandbox launched",
		zap.String("sandbox_id", h.ID),
		zap.String("tenant_id", tenantID),
	)
	return h, nil
}

// Destroy removes a handle and tears down its sandbox. Idempotent:
// destroying an unknown or already-destroyed handle is a warning-level
// no-op, never an error to the caller.
func (f *Factory) Destroy(ctx context.Context, handleID string) {
	h, ok := f.registry.Remove(handleID)
	if !ok {
		f.logger.Warn("destroy of unknown sandbox", zap.String("sandbox_id", handleID))
		return
	}
	f.teardown(ctx, h)
	f.metrics.SetSandboxesLive(f.registry.Len())
	f.logger.Info("sandbox destroyed",
		zap.String("sandbox_id", h.ID),
		zap.String("tenant_id", h.TenantID),
	)
}

// Reap removes a handle only if it is still reclaimable, then tears it
// down. Returns false when the handle went Busy since the caller's
// snapshot, or no longer exists.
func (f *Factory) Reap(ctx context.Context, handleID string, maxIdle time.Duration) bool {
	h, ok := f.registry.RemoveIfReclaimable(handleID, maxIdle, time.Now())
	if !ok {
		return false
	}
	f.teardown(ctx, h)
	f.metrics.SetSandboxesLive(f.registry.Len())
	return true
}

// teardown destroys the underlying sandbox. Failures are logged and
// swallowed so a broken teardown cannot cascade into pool failures.
func (f *Factory) teardown(ctx context.Context, h *Handle) {
	if err := f.launcher.Destroy(ctx, h.sandbox); err != nil {
		f.logger.Warn("sandbox teardown failed",
			zap.String("sandbox_id", h.ID),
			zap.Error(err),
		)
	}
}
