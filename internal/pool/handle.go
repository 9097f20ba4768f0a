package pool

import (
	"context"
	"time"
)

// Status is the lifecycle state of a pooled sandbox handle.
type Status int

const (
	// StatusIdle marks a handle eligible for reuse or reclamation.
	StatusIdle Status = iota
	// StatusBusy marks a handle bound to exactly one in-flight task.
	StatusBusy
	// StatusError marks a handle that failed its last task. Excluded from
	// reuse but still counted against the pool ceiling until destroyed.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusBusy:
		return "busy"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Sandbox is the set of operations a task may invoke on its execution
// context. The pool treats these as opaque; only task closures and the
// screenshot endpoint call through them.
type Sandbox interface {
	Navigate(ctx context.Context, url string) error
	Evaluate(ctx context.Context, script string) (interface{}, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Content() string
	Title() string
	Close() error
}

// TaskFn is a caller-supplied task closure. It receives the sandbox bound
// to it for the duration of the call and must respect ctx cancellation.
type TaskFn func(ctx context.Context, sb Sandbox) (interface{}, error)

// Handle is the pool's bookkeeping record for one live sandbox. Mutable
// fields are owned by the Registry and only touched under its lock.
type Handle struct {
	ID         string
	TenantID   string
	LaunchedAt time.Time

	sandbox Sandbox

	// Guarded by the registry.
	status         Status
	idleSince      time.Time
	tasksCompleted uint64
}

// Info is an immutable snapshot of a handle, safe to hand to callers.
type Info struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	Status         string    `json:"status"`
	LaunchedAt     time.Time `json:"launched_at"`
	IdleSince      time.Time `json:"idle_since"`
	TasksCompleted uint64    `json:"tasks_completed"`

	state Status
}

// State returns the typed status the snapshot was taken with.
func (i Info) State() Status { return i.state }

// snapshot copies the handle's current state. Caller must hold the
// registry lock.
func (h *Handle) snapshot() Info {
	return Info{
		ID:             h.ID,
		TenantID:       h.TenantID,
		Status:         h.status.String(),
		LaunchedAt:     h.LaunchedAt,
		IdleSince:      h.idleSince,
		TasksCompleted: h.tasksCompleted,
		state:          h.status,
	}
}
