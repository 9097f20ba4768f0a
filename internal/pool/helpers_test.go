package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clientpilot/backend/internal/page"
)

// fakeSandbox is an in-memory Sandbox for pool tests.
type fakeSandbox struct {
	mu     sync.Mutex
	closed bool
	visits []string
}

func (s *fakeSandbox) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sandbox closed")
	}
	s.visits = append(s.visits, url)
	return nil
}

func (s *fakeSandbox) Evaluate(ctx context.Context, script string) (interface{}, error) {
	return script, nil
}

func (s *fakeSandbox) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte(`{"snapshot":true}`), nil
}

func (s *fakeSandbox) Content() string { return "<html></html>" }
func (s *fakeSandbox) Title() string   { return "fake" }

func (s *fakeSandbox) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeLauncher counts creations and teardowns and can inject failures.
type fakeLauncher struct {
	mu          sync.Mutex
	created     int
	destroyed   int
	createDelay time.Duration
	createErr   error
	destroyErr  error
}

func (l *fakeLauncher) Create(ctx context.Context, opts page.Options) (Sandbox, error) {
	if l.createDelay > 0 {
		select {
		case <-time.After(l.createDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return nil, l.createErr
	}
	l.created++
	return &fakeSandbox{}, nil
}

func (l *fakeLauncher) Destroy(ctx context.Context, sb Sandbox) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.destroyed++
	if l.destroyErr != nil {
		return l.destroyErr
	}
	return sb.Close()
}

func (l *fakeLauncher) counts() (created, destroyed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.created, l.destroyed
}

// testPool builds a full component set over a fake launcher.
type testPool struct {
	launcher   *fakeLauncher
	registry   *Registry
	factory    *Factory
	dispatcher *Dispatcher
	queue      *Queue
	reaper     *Reaper
}

func newTestPool(maxSandboxes, maxConcurrent int, taskTimeout, idleReclaim time.Duration) *testPool {
	logger := zap.NewNop()
	launcher := &fakeLauncher{}
	registry := NewRegistry(maxSandboxes)
	factory := NewFactory(registry, launcher, page.DefaultOptions(), logger)
	dispatcher := NewDispatcher(registry, factory, taskTimeout, logger)

	return &testPool{
		launcher:   launcher,
		registry:   registry,
		factory:    factory,
		dispatcher: dispatcher,
		queue:      NewQueue(dispatcher, maxConcurrent),
		reaper:     NewReaper(registry, factory, idleReclaim, logger),
	}
}

// noopTask returns a task that settles immediately.
func noopTask(result interface{}) TaskFn {
	return func(ctx context.Context, sb Sandbox) (interface{}, error) {
		return result, nil
	}
}

// sleepTask returns a task that holds its sandbox for d, honoring ctx.
func sleepTask(d time.Duration) TaskFn {
	return func(ctx context.Context, sb Sandbox) (interface{}, error) {
		select {
		case <-time.After(d):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
