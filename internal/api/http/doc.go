// Package http provides REST API handlers for the sandbox service.
//
// Handlers translate between HTTP requests and the pool orchestrator:
// sandbox lifecycle, task execution (direct and queued), reaper control,
// and introspection. Pool errors map onto HTTP statuses (exhausted pool
// becomes 429, task timeout becomes 504).
package http
