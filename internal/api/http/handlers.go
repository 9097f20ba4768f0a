package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clientpilot/backend/internal/infrastructure/config"
	"github.com/clientpilot/backend/internal/page"
	"github.com/clientpilot/backend/internal/pool"
	"github.com/clientpilot/backend/internal/shared/id"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	orchestrator *pool.Orchestrator
	profiles     map[string]config.Profile
	logger       *zap.Logger
	started      time.Time
}

// NewHandlers creates a new handler set.
func NewHandlers(orchestrator *pool.Orchestrator, logger *zap.Logger) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		logger:       logger,
		started:      time.Now(),
	}
}

// WithProfiles makes named sandbox profiles selectable at launch time.
func (h *Handlers) WithProfiles(profiles map[string]config.Profile) *Handlers {
	h.profiles = profiles
	return h
}

// Root handles health check.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "ClientPilot Sandbox Service",
		"version": "1.0.0",
	})
}

// Health handles detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	st := h.orchestrator.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"sandboxes":      len(st.VMs),
		"queue_depth":    st.QueueDepth,
		"auto_reap":      st.AutoReap,
	})
}

// Status returns the pool introspection snapshot.
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.Status())
}

// ListSandboxes lists all live sandboxes, optionally filtered by tenant.
func (h *Handlers) ListSandboxes(c *gin.Context) {
	st := h.orchestrator.Status()
	tenant := c.Query("tenant_id")

	vms := st.VMs
	if tenant != "" {
		filtered := vms[:0:0]
		for _, info := range vms {
			if info.TenantID == tenant {
				filtered = append(filtered, info)
			}
		}
		vms = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"sandboxes": vms,
		"count":     len(vms),
	})
}

// launchRequest is the body for POST /sandboxes.
type launchRequest struct {
	TenantID       string `json:"tenant_id" binding:"required"`
	Profile        string `json:"profile,omitempty"`
	ViewportWidth  int    `json:"viewport_width,omitempty"`
	ViewportHeight int    `json:"viewport_height,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
}

// LaunchSandbox explicitly provisions a sandbox for a tenant.
func (h *Handlers) LaunchSandbox(c *gin.Context) {
	var req launchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var base *page.Options
	if req.Profile != "" {
		profile, ok := h.profiles[req.Profile]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown profile: " + req.Profile})
			return
		}
		opts := profile.PageOptions()
		base = &opts
	}

	opts := launchOptions(base, req.ViewportWidth, req.ViewportHeight, req.UserAgent)
	info, err := h.orchestrator.Launch(c.Request.Context(), req.TenantID, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"sandbox": info})
}

// DestroySandbox tears down one sandbox by handle ID.
func (h *Handlers) DestroySandbox(c *gin.Context) {
	handleID := c.Param("id")
	if !id.IsValid(handleID, id.SandboxPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sandbox id"})
		return
	}

	_, found := h.orchestrator.StatusOf(handleID)
	h.orchestrator.Destroy(c.Request.Context(), handleID)

	c.JSON(http.StatusOK, gin.H{
		"success":    found,
		"sandbox_id": handleID,
	})
}

// DestroyTenantSandboxes tears down every sandbox owned by a tenant.
func (h *Handlers) DestroyTenantSandboxes(c *gin.Context) {
	tenantID := c.Param("id")
	destroyed := h.orchestrator.DestroyAllForTenant(c.Request.Context(), tenantID)

	c.JSON(http.StatusOK, gin.H{
		"tenant_id": tenantID,
		"destroyed": destroyed,
	})
}

// Screenshot captures a snapshot of a sandbox's current page.
func (h *Handlers) Screenshot(c *gin.Context) {
	handleID := c.Param("id")

	data, err := h.orchestrator.Screenshot(c.Request.Context(), handleID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}

// taskRequest is the body for POST /tasks/execute and /tasks/submit.
// A task navigates to URL (when given) and then evaluates Script
// (when given) against the loaded page.
type taskRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	URL      string `json:"url,omitempty"`
	Script   string `json:"script,omitempty"`
}

func (r *taskRequest) compile() (pool.TaskFn, error) {
	if r.URL == "" && r.Script == "" {
		return nil, errors.New("task needs a url, a script, or both")
	}
	url, script := r.URL, r.Script

	return func(ctx context.Context, sb pool.Sandbox) (interface{}, error) {
		if url != "" {
			if err := sb.Navigate(ctx, url); err != nil {
				return nil, err
			}
		}
		if script != "" {
			return sb.Evaluate(ctx, script)
		}
		return gin.H{"url": url, "title": sb.Title()}, nil
	}, nil
}

// ExecuteTask runs a task immediately, bypassing the admission queue.
func (h *Handlers) ExecuteTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := req.compile()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID := id.NewTaskID()
	start := time.Now()
	result, err := h.orchestrator.ExecuteNow(c.Request.Context(), req.TenantID, task)
	if err != nil {
		h.logger.Warn("task failed",
			zap.String("task_id", taskID.String()),
			zap.String("tenant_id", req.TenantID),
			zap.Error(err))
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":     taskID,
		"result":      result,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// SubmitTask runs a task through the admission queue, waiting for its
// turn behind the global concurrency cap.
func (h *Handlers) SubmitTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := req.compile()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID := id.NewTaskID()
	start := time.Now()
	future := h.orchestrator.Submit(c.Request.Context(), req.TenantID, task)
	result, err := future.Wait(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":     taskID,
		"result":      result,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// StartReaper starts the background reclamation loop.
func (h *Handlers) StartReaper(c *gin.Context) {
	var body struct {
		IntervalMs int `json:"interval_ms,omitempty"`
	}
	// Body is optional; ignore bind errors on an empty body.
	_ = c.ShouldBindJSON(&body)

	h.orchestrator.StartAutoReap(time.Duration(body.IntervalMs) * time.Millisecond)
	c.JSON(http.StatusOK, gin.H{"auto_reap": true})
}

// StopReaper stops the background reclamation loop.
func (h *Handlers) StopReaper(c *gin.Context) {
	h.orchestrator.StopAutoReap()
	c.JSON(http.StatusOK, gin.H{"auto_reap": false})
}

// respondError maps pool errors to HTTP statuses.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pool.ErrPoolExhausted):
		status = http.StatusTooManyRequests
	case errors.Is(err, pool.ErrTaskTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, pool.ErrTaskFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, pool.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pool.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func launchOptions(base *page.Options, width, height int, userAgent string) *page.Options {
	if base == nil && width == 0 && height == 0 && userAgent == "" {
		return nil
	}
	opts := page.DefaultOptions()
	if base != nil {
		opts = *base
	}
	if width > 0 {
		opts.ViewportWidth = width
	}
	if height > 0 {
		opts.ViewportHeight = height
	}
	if userAgent != "" {
		opts.UserAgent = userAgent
	}
	return &opts
}
