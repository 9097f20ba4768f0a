package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clientpilot/backend/internal/infrastructure/config"
	"github.com/clientpilot/backend/internal/page"
	"github.com/clientpilot/backend/internal/pool"
)

type stubSandbox struct {
	url string
}

func (s *stubSandbox) Navigate(ctx context.Context, url string) error {
	s.url = url
	return nil
}

func (s *stubSandbox) Evaluate(ctx context.Context, script string) (interface{}, error) {
	return "evaluated", nil
}

func (s *stubSandbox) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte(`{"url":"` + s.url + `"}`), nil
}

func (s *stubSandbox) Content() string { return "<html></html>" }
func (s *stubSandbox) Title() string   { return "Stub Page" }
func (s *stubSandbox) Close() error    { return nil }

type stubLauncher struct{}

func (stubLauncher) Create(ctx context.Context, opts page.Options) (pool.Sandbox, error) {
	return &stubSandbox{}, nil
}

func (stubLauncher) Destroy(ctx context.Context, sb pool.Sandbox) error {
	return sb.Close()
}

func newTestRouter(t *testing.T, cfg pool.Config) (*gin.Engine, *pool.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orchestrator := pool.New(stubLauncher{}, cfg, zap.NewNop())
	t.Cleanup(func() { orchestrator.Close(context.Background()) })

	handlers := NewHandlers(orchestrator, zap.NewNop()).WithProfiles(config.BuiltinProfiles())
	router := gin.New()
	router.GET("/health", handlers.Health)
	router.GET("/status", handlers.Status)
	router.GET("/sandboxes", handlers.ListSandboxes)
	router.POST("/sandboxes", handlers.LaunchSandbox)
	router.DELETE("/sandboxes/:id", handlers.DestroySandbox)
	router.GET("/sandboxes/:id/screenshot", handlers.Screenshot)
	router.DELETE("/tenants/:id/sandboxes", handlers.DestroyTenantSandboxes)
	router.POST("/tasks/execute", handlers.ExecuteTask)
	router.POST("/tasks/submit", handlers.SubmitTask)
	router.POST("/reaper/start", handlers.StartReaper)
	router.POST("/reaper/stop", handlers.StopReaper)
	return router, orchestrator
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestLaunchAndListSandboxes(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodPost, "/sandboxes", `{"tenant_id":"acme"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Sandbox pool.Info `json:"sandbox"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "acme", created.Sandbox.TenantID)
	assert.Equal(t, "idle", created.Sandbox.Status)

	w = doJSON(router, http.MethodPost, "/sandboxes", `{"tenant_id":"globex"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/sandboxes?tenant_id=acme", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Sandboxes []pool.Info `json:"sandboxes"`
		Count     int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Count)
	assert.Equal(t, "acme", listed.Sandboxes[0].TenantID)
}

func TestLaunchWithProfile(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodPost, "/sandboxes", `{"tenant_id":"acme","profile":"compact"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/sandboxes", `{"tenant_id":"acme","profile":"no-such-profile"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLaunchRequiresTenant(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodPost, "/sandboxes", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLaunchExhaustedPoolReturns429(t *testing.T) {
	cfg := pool.DefaultConfig()
	cfg.MaxSandboxes = 1
	router, _ := newTestRouter(t, cfg)

	w := doJSON(router, http.MethodPost, "/sandboxes", `{"tenant_id":"acme"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/sandboxes", `{"tenant_id":"acme"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestDestroySandboxValidation(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodDelete, "/sandboxes/not-a-sandbox-id", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDestroyTenantSandboxes(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	for i := 0; i < 2; i++ {
		w := doJSON(router, http.MethodPost, "/sandboxes", `{"tenant_id":"acme"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(router, http.MethodDelete, "/tenants/acme/sandboxes", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Destroyed int `json:"destroyed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Destroyed)
}

func TestExecuteTask(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodPost, "/tasks/execute",
		`{"tenant_id":"acme","url":"https://example.com","script":"page.title"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "evaluated", body["result"])
	assert.NotEmpty(t, body["task_id"])
}

func TestExecuteTaskRejectsEmptyWork(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodPost, "/tasks/execute", `{"tenant_id":"acme"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitTask(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodPost, "/tasks/submit",
		`{"tenant_id":"acme","script":"1+1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "evaluated", body["result"])
}

func TestScreenshotUnknownSandbox(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodGet, "/sandboxes/sbx_missing/screenshot", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReaperEndpoints(t *testing.T) {
	router, orchestrator := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodPost, "/reaper/start", `{"interval_ms":60000}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, orchestrator.Status().AutoReap)

	w = doJSON(router, http.MethodPost, "/reaper/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, orchestrator.Status().AutoReap)
}

func TestStatusEndpoint(t *testing.T) {
	cfg := pool.DefaultConfig()
	cfg.MaxSandboxes = 7
	router, _ := newTestRouter(t, cfg)

	w := doJSON(router, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var st pool.PoolStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 7, st.MaxSandboxes)
	assert.Equal(t, 0, st.QueueDepth)
}

func TestTaskValidationRequiresTenant(t *testing.T) {
	router, _ := newTestRouter(t, pool.DefaultConfig())

	w := doJSON(router, http.MethodPost, "/tasks/execute", `{"script":"1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
