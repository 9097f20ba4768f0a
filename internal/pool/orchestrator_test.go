package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func newTestOrchestrator(cfg Config) (*Orchestrator, *fakeLauncher) {
	launcher := &fakeLauncher{}
	return New(launcher, cfg, zap.NewNop()), launcher
}

func TestOrchestratorLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSandboxes = 4
	o, launcher := newTestOrchestrator(cfg)
	defer o.Close(context.Background())

	info, err := o.Launch(context.Background(), "tenant-a", nil)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", info.TenantID)
	assert.Equal(t, StatusIdle, info.State())

	got, ok := o.StatusOf(info.ID)
	require.True(t, ok)
	assert.Equal(t, info.ID, got.ID)

	o.Destroy(context.Background(), info.ID)
	_, ok = o.StatusOf(info.ID)
	assert.False(t, ok)

	created, destroyed := launcher.counts()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, destroyed)
}

func TestOrchestratorStatusSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSandboxes = 6
	cfg.MaxConcurrentTasks = 3
	o, _ := newTestOrchestrator(cfg)
	defer o.Close(context.Background())

	_, err := o.Launch(context.Background(), "tenant-a", nil)
	require.NoError(t, err)
	_, err = o.Launch(context.Background(), "tenant-b", nil)
	require.NoError(t, err)

	st := o.Status()
	assert.Len(t, st.VMs, 2)
	assert.Equal(t, 6, st.MaxSandboxes)
	assert.Equal(t, 3, st.MaxConcurrentTasks)
	assert.Equal(t, 0, st.QueueDepth)
	assert.False(t, st.AutoReap)

	o.StartAutoReap(time.Minute)
	assert.True(t, o.Status().AutoReap)
	o.StopAutoReap()
	assert.False(t, o.Status().AutoReap)
}

func TestOrchestratorDestroyAllForTenant(t *testing.T) {
	cfg := DefaultConfig()
	o, _ := newTestOrchestrator(cfg)
	defer o.Close(context.Background())

	for i := 0; i < 2; i++ {
		_, err := o.Launch(context.Background(), "tenant-a", nil)
		require.NoError(t, err)
	}
	_, err := o.Launch(context.Background(), "tenant-b", nil)
	require.NoError(t, err)

	destroyed := o.DestroyAllForTenant(context.Background(), "tenant-a")
	assert.Equal(t, 2, destroyed)

	st := o.Status()
	require.Len(t, st.VMs, 1)
	assert.Equal(t, "tenant-b", st.VMs[0].TenantID)
}

func TestOrchestratorExecuteAndSubmit(t *testing.T) {
	cfg := DefaultConfig()
	o, _ := newTestOrchestrator(cfg)
	defer o.Close(context.Background())

	val, err := o.ExecuteNow(context.Background(), "tenant-a", noopTask(42))
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	f := o.Submit(context.Background(), "tenant-a", noopTask("queued"))
	val, err = f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "queued", val)
}

func TestOrchestratorSweep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleReclaim = 10 * time.Millisecond
	o, _ := newTestOrchestrator(cfg)
	defer o.Close(context.Background())

	_, err := o.Launch(context.Background(), "tenant-a", nil)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	reaped := o.Sweep(context.Background())
	assert.Equal(t, 1, reaped)
	assert.Empty(t, o.Status().VMs)
}

func TestOrchestratorScreenshotUnknownHandle(t *testing.T) {
	o, _ := newTestOrchestrator(DefaultConfig())
	defer o.Close(context.Background())

	_, err := o.Screenshot(context.Background(), "sbx_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrchestratorCloseDestroysEverything(t *testing.T) {
	cfg := DefaultConfig()
	o, launcher := newTestOrchestrator(cfg)

	_, err := o.Launch(context.Background(), "tenant-a", nil)
	require.NoError(t, err)
	_, err = o.Launch(context.Background(), "tenant-b", nil)
	require.NoError(t, err)

	o.Close(context.Background())

	created, destroyed := launcher.counts()
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, destroyed)

	f := o.Submit(context.Background(), "tenant-a", noopTask(nil))
	_, err = f.Wait(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
