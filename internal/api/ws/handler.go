package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clientpilot/backend/internal/pool"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// message is an inbound client frame.
type message struct {
	Type     string `json:"type"`
	Interval int    `json:"interval_ms,omitempty"`
}

// session serializes writes; gorilla connections allow one writer at a
// time and the push loop runs beside the read loop's replies.
type session struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *session) send(data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(data)
}

// Handler streams pool status over WebSocket connections.
type Handler struct {
	orchestrator *pool.Orchestrator
	logger       *zap.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(orchestrator *pool.Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// HandleConnection handles WebSocket upgrade and messages.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sess := &session{conn: conn}
	sess.send(map[string]interface{}{
		"type":    "system",
		"message": "Connected to ClientPilot pool stream",
	})

	// One push loop per connection, started on subscribe.
	stop := make(chan struct{})
	defer close(stop)
	subscribed := false

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "status":
			h.sendStatus(sess)
		case "subscribe":
			if subscribed {
				continue
			}
			subscribed = true
			interval := time.Duration(msg.Interval) * time.Millisecond
			if interval < 250*time.Millisecond {
				interval = time.Second
			}
			go h.pushLoop(sess, interval, stop)
		case "ping":
			sess.send(map[string]interface{}{"type": "pong"})
		default:
			h.sendError(sess, "unknown message type")
		}
	}
}

// pushLoop pushes status snapshots on a fixed cadence until the
// connection's read loop ends or a write fails.
func (h *Handler) pushLoop(sess *session, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.sendStatus(sess); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (h *Handler) sendStatus(sess *session) error {
	return sess.send(map[string]interface{}{
		"type":      "pool_status",
		"status":    h.orchestrator.Status(),
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handler) sendError(sess *session, msg string) error {
	return sess.send(map[string]interface{}{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}
