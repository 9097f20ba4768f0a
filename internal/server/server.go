package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/clientpilot/backend/internal/api/http"
	"github.com/clientpilot/backend/internal/api/middleware"
	"github.com/clientpilot/backend/internal/api/ws"
	"github.com/clientpilot/backend/internal/infrastructure/config"
	"github.com/clientpilot/backend/internal/infrastructure/logging"
	"github.com/clientpilot/backend/internal/infrastructure/monitoring"
	"github.com/clientpilot/backend/internal/page"
	"github.com/clientpilot/backend/internal/pool"
)

// Server wraps the HTTP server and dependencies.
type Server struct {
	router       *gin.Engine
	orchestrator *pool.Orchestrator
	engine       *page.Engine
	logger       *logging.Logger
	config       *config.Config
	metrics      *monitoring.Metrics
}

// NewServer creates a new server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing ClientPilot sandbox service",
		zap.String("port", cfg.Server.Port),
		zap.Int("max_sandboxes", cfg.Pool.MaxSandboxes),
		zap.Int("max_concurrent_tasks", cfg.Pool.MaxConcurrentTasks),
	)

	metrics := monitoring.NewMetrics()

	// Resolve the sandbox profile (viewport, UA, resource hints).
	profiles, err := config.LoadProfiles(cfg.Pool.ProfilePath)
	if err != nil {
		return nil, err
	}
	profile, ok := profiles[cfg.Pool.Profile]
	if !ok {
		logger.Warn("unknown sandbox profile, using standard",
			zap.String("profile", cfg.Pool.Profile))
		profile = profiles["standard"]
	}

	engine := page.NewEngine(logger.Logger)

	poolCfg := pool.Config{
		MaxSandboxes:       cfg.Pool.MaxSandboxes,
		MaxConcurrentTasks: cfg.Pool.MaxConcurrentTasks,
		TaskTimeout:        time.Duration(cfg.Pool.TaskTimeoutMs) * time.Millisecond,
		IdleReclaim:        time.Duration(cfg.Pool.IdleReclaimMs) * time.Millisecond,
		ReapInterval:       time.Duration(cfg.Pool.ReapIntervalMs) * time.Millisecond,
		Defaults:           profile.PageOptions(),
	}
	orchestrator := pool.New(pool.NewEngineLauncher(engine), poolCfg, logger.Logger).
		WithMetrics(metrics)
	orchestrator.StartAutoReap(poolCfg.ReapInterval)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(orchestrator, logger.Logger).WithProfiles(profiles)
	wsHandler := ws.NewHandler(orchestrator, logger.Logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/status", handlers.Status)

	// Sandbox management
	router.GET("/sandboxes", handlers.ListSandboxes)
	router.POST("/sandboxes", handlers.LaunchSandbox)
	router.DELETE("/sandboxes/:id", handlers.DestroySandbox)
	router.GET("/sandboxes/:id/screenshot", handlers.Screenshot)
	router.DELETE("/tenants/:id/sandboxes", handlers.DestroyTenantSandboxes)

	// Task execution
	router.POST("/tasks/execute", handlers.ExecuteTask)
	router.POST("/tasks/submit", handlers.SubmitTask)

	// Reaper lifecycle
	router.POST("/reaper/start", handlers.StartReaper)
	router.POST("/reaper/stop", handlers.StopReaper)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:       router,
		orchestrator: orchestrator,
		engine:       engine,
		logger:       logger,
		config:       cfg,
		metrics:      metrics,
	}, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close gracefully shuts down the server: stops the reaper, rejects
// queued tasks, and destroys every live sandbox.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.orchestrator.Close(ctx)

	s.logger.Info("Server shutdown complete")
	return s.logger.Sync()
}
