package pool

import (
	"sync"
	"time"
)

// Registry is the single source of truth for handle existence and status.
// All membership changes come from the Factory and all status flips come
// from the Dispatcher; everything happens under one mutex so the pool
// ceiling and Busy exclusivity hold under true concurrency.
type Registry struct {
	mu       sync.RWMutex
	max      int
	reserved int // launch slots claimed but not yet committed
	entries  map[string]*Handle
	order    []string // insertion order, drives FindIdle determinism
}

// NewRegistry creates a registry with a hard ceiling on live handles.
func NewRegistry(maxSandboxes int) *Registry {
	if maxSandboxes <= 0 {
		maxSandboxes = 1
	}
	return &Registry{
		max:     maxSandboxes,
		entries: make(map[string]*Handle),
	}
}

// Reserve claims a launch slot against the ceiling. The reservation holds
// the slot while sandbox creation does I/O outside the lock, so concurrent
// launches can never overshoot maxSandboxes.
func (r *Registry) Reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries)+r.reserved >= r.max {
		return ErrPoolExhausted
	}
	r.reserved++
	return nil
}

// Unreserve releases a claimed slot after a failed launch.
func (r *Registry) Unreserve() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reserved > 0 {
		r.reserved--
	}
}

// Commit inserts a launched handle, consuming its reservation.
func (r *Registry) Commit(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reserved > 0 {
		r.reserved--
	}
	r.entries[h.ID] = h
	r.order = append(r.order, h.ID)
}

// FindIdle returns a snapshot of the first idle handle owned by the tenant,
// in insertion order.
func (r *Registry) FindIdle(tenantID string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hid := range r.order {
		h, ok := r.entries[hid]
		if ok && h.TenantID == tenantID && h.status == StatusIdle {
			return h.snapshot(), true
		}
	}
	return Info{}, false
}

// Acquire finds the tenant's first idle handle and flips it Busy in one
// step, so two concurrent tasks can never claim the same handle.
func (r *Registry) Acquire(tenantID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, hid := range r.order {
		h, ok := r.entries[hid]
		if ok && h.TenantID == tenantID && h.status == StatusIdle {
			h.status = StatusBusy
			return h, true
		}
	}
	return nil, false
}

// AcquireByID flips a specific handle Busy if it is currently idle.
func (r *Registry) AcquireByID(id string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.entries[id]
	if !ok || h.status != StatusIdle {
		return nil, false
	}
	h.status = StatusBusy
	return h, true
}

// Release returns a busy handle to idle after a successful task.
func (r *Registry) Release(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.entries[id]
	if !ok {
		return false
	}
	h.status = StatusIdle
	h.idleSince = time.Now()
	h.tasksCompleted++
	return true
}

// MarkError puts a handle into the terminal error state.
func (r *Registry) MarkError(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.entries[id]
	if !ok {
		return false
	}
	h.status = StatusError
	return true
}

// Get returns a snapshot of one handle.
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.entries[id]
	if !ok {
		return Info{}, false
	}
	return h.snapshot(), true
}

// All returns snapshots of every live handle in insertion order. The
// snapshot is taken at call time; iteration never blocks mutation.
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.entries))
	for _, hid := range r.order {
		if h, ok := r.entries[hid]; ok {
			infos = append(infos, h.snapshot())
		}
	}
	return infos
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Remove unconditionally deletes a handle from the registry, returning it
// so the caller can tear down the underlying sandbox outside the lock.
func (r *Registry) Remove(id string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	r.delete(id)
	return h, true
}

// RemoveIfReclaimable deletes a handle only if it is still reclaimable:
// errored, or idle longer than maxIdle. The status re-check happens here,
// under the lock, so a handle that went Busy after the reaper's snapshot
// always survives.
func (r *Registry) RemoveIfReclaimable(id string, maxIdle time.Duration, now time.Time) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.entries[id]
	if !ok {
		return nil, false
	}

	switch h.status {
	case StatusError:
		// Errored handles are collected on the next sweep regardless of age.
	case StatusIdle:
		if now.Sub(h.idleSince) <= maxIdle {
			return nil, false
		}
	default:
		return nil, false
	}

	r.delete(id)
	return h, true
}

// delete removes an entry and its order slot. Caller must hold the lock.
func (r *Registry) delete(id string) {
	delete(r.entries, id)
	for i, hid := range r.order {
		if hid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
