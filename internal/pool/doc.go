/*
Package pool implements the tenant sandbox pool orchestrator.

# Overview

The pool launches, reuses, schedules work onto, and reclaims a bounded set
of isolated page sessions on behalf of many tenants. Automation tasks for
dozens of clients run concurrently without cross-contaminating state,
exceeding host resources, or blocking each other indefinitely.

# Components

 1. Registry: single source of truth for handle existence and status
 2. Factory: the only writer of registry membership; enforces the ceiling
 3. Dispatcher: per-tenant sandbox affinity plus bounded task execution
 4. Queue: FIFO admission behind the global concurrency cap
 5. Reaper: background reclamation of idle and errored sandboxes
 6. Orchestrator: the public facade combining all of the above

# Guarantees

  - Live sandboxes never exceed MaxSandboxes, including under concurrent
    launches (slot reservation makes check-then-act atomic)
  - A handle is Busy for the whole duration of exactly one task
  - Idle handles are reused in insertion order (deterministic affinity)
  - Running tasks never exceed MaxConcurrentTasks; admission is FIFO,
    completion order is unconstrained
  - Every task is bounded by TaskTimeout; on expiry the caller gets
    ErrTaskTimeout promptly and the sandbox is errored
  - The reaper never destroys a Busy handle: reclaimability is re-checked
    under the registry lock immediately before teardown

# Error Policy

ErrPoolExhausted and ErrTaskTimeout are the two conditions callers handle
explicitly. Task errors wrap their cause in ErrTaskFailed. Teardown
failures are logged and swallowed; a broken destroy never stops the reaper
or surfaces to task callers. Errored handles stay counted against the
ceiling until the next sweep collects them.
*/
package pool
