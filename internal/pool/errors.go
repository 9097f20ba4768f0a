package pool

import "errors"

var (
	// ErrPoolExhausted is returned when launching a sandbox would exceed the
	// pool ceiling. Expected under load; callers may retry later.
	ErrPoolExhausted = errors.New("sandbox pool exhausted")

	// ErrLaunchFailed wraps sandbox creation failures. No handle is created
	// and the pool ceiling is unaffected.
	ErrLaunchFailed = errors.New("sandbox launch failed")

	// ErrTaskTimeout is returned when a task exceeds the configured deadline.
	// The task is abandoned and its sandbox is marked errored.
	ErrTaskTimeout = errors.New("task deadline exceeded")

	// ErrTaskFailed wraps errors returned by task closures. The underlying
	// cause is preserved for diagnostics.
	ErrTaskFailed = errors.New("task failed")

	// ErrNotFound is returned when a handle ID is not in the registry.
	ErrNotFound = errors.New("sandbox not found")

	// ErrClosed is returned for operations on a closed orchestrator.
	ErrClosed = errors.New("pool is closed")
)
