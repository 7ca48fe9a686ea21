package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/healthpalm/aisha/backend/internal/domain/chat"
	"github.com/healthpalm/aisha/backend/internal/domain/session"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/logging"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/monitoring"
	"github.com/healthpalm/aisha/backend/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the gateway sits behind the site origin
	},
}

// Handler manages WebSocket connections for interactive chat.
type Handler struct {
	store      *session.Store
	controller *chat.Controller
	logger     *logging.Logger
	metrics    *monitoring.Metrics
}

// NewHandler creates a WebSocket handler.
func NewHandler(store *session.Store, controller *chat.Controller, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:      store,
		controller: controller,
		logger:     logger,
	}
}

// WithMetrics adds metrics tracking to the handler.
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// HandleConnection upgrades the request and serves chat messages until
// the peer disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	reqCtx := c.Request.Context()

	h.send(conn, gin.H{
		"type":    "system",
		"message": "Connected to Aisha chat gateway",
	})

	for {
		var msg types.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "chat":
			sub, reply, ok := h.controller.Submit(reqCtx, msg.Text)
			if !ok {
				h.send(conn, gin.H{"type": "ignored"})
				continue
			}
			title := ""
			if sess, found := h.store.Get(sub.SessionID); found {
				title = sess.Title
			}
			h.send(conn, gin.H{
				"type":          "chat_response",
				"submission_id": sub.ID,
				"session_id":    sub.SessionID,
				"reply":         reply.Text,
				"renamed":       sub.Renamed,
				"title":         title,
			})
		case "ping":
			h.send(conn, gin.H{"type": "pong"})
		default:
			h.send(conn, gin.H{
				"type":    "error",
				"message": "unknown message type: " + msg.Type,
			})
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, payload gin.H) {
	if err := conn.WriteJSON(payload); err != nil {
		h.logger.Warn("websocket write failed", zap.Error(err))
	}
}
