package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/healthpalm/aisha/backend/internal/domain/chat"
	"github.com/healthpalm/aisha/backend/internal/domain/session"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/logging"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/monitoring"
	"github.com/healthpalm/aisha/backend/internal/shared/types"
	"github.com/healthpalm/aisha/backend/internal/transport/assistant"
)

// Prober reports whether the assistant service is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// Handlers contains HTTP request handlers for the gateway API.
type Handlers struct {
	store      *session.Store
	controller *chat.Controller
	transport  chat.Transport
	prober     Prober
	metrics    *monitoring.Metrics
	logger     *logging.Logger
	started    time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(
	store *session.Store,
	controller *chat.Controller,
	transport chat.Transport,
	prober Prober,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		store:      store,
		controller: controller,
		transport:  transport,
		prober:     prober,
		metrics:    metrics,
		logger:     logger,
		started:    time.Now(),
	}
}

// Root handles the root endpoint.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "aisha-chat-gateway",
		"version": "1.0.0",
		"status":  "running",
	})
}

// Health returns gateway health, store statistics, and whether the
// assistant service answers a probe.
func (h *Handlers) Health(c *gin.Context) {
	assistantStatus := "reachable"
	if h.prober != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := h.prober.Ping(ctx); err != nil {
			assistantStatus = "unreachable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": time.Since(h.started).Seconds(),
		"assistant":      assistantStatus,
		"store":          h.store.Stats(),
	})
}

// ListSessions returns every session plus the active pointer.
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions":  h.store.Sessions(),
		"active_id": h.store.ActiveID(),
	})
}

// CreateSession starts a new chat session and makes it active.
func (h *Handlers) CreateSession(c *gin.Context) {
	sess := h.store.Create()
	h.logger.Info("session created", zap.Int("session_id", sess.ID))
	c.JSON(http.StatusCreated, gin.H{"session": sess, "active_id": sess.ID})
}

// SelectSession makes the given session active.
func (h *Handlers) SelectSession(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if !h.store.Select(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_id": id})
}

// DeleteSession removes a session and its messages.
func (h *Handlers) DeleteSession(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	activeID, ok := h.store.Delete(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	h.logger.Info("session deleted", zap.Int("session_id", id), zap.Int("active_id", activeID))
	c.JSON(http.StatusOK, gin.H{"deleted": id, "active_id": activeID})
}

// GetMessages returns a session's full message list.
func (h *Handlers) GetMessages(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	msgs, ok := h.store.Messages(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "messages": msgs})
}

// Submit runs one chat exchange against the active session. Blank input
// is a no-op answered with 204; transport failures still return 200 with
// the apology reply, so the conversation never stalls on the client.
func (h *Handlers) Submit(c *gin.Context) {
	var req types.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	sub := h.controller.Begin(req.Text)
	if sub == nil {
		c.Status(http.StatusNoContent)
		return
	}

	reply, err := h.transport.Send(c.Request.Context(), sub.Text, sub.History)
	if err != nil && h.metrics != nil {
		h.metrics.RecordTransportFailure(string(assistant.Classify(err)))
	}
	msg := h.controller.Resolve(sub, reply, err)

	title := ""
	if sess, ok := h.store.Get(sub.SessionID); ok {
		title = sess.Title
	}
	c.JSON(http.StatusOK, gin.H{
		"submission_id": sub.ID,
		"session_id":    sub.SessionID,
		"reply":         msg.Text,
		"renamed":       sub.Renamed,
		"title":         title,
	})
}

// Export streams a gzip-compressed JSON archive of the full store.
func (h *Handlers) Export(c *gin.Context) {
	archive := struct {
		ExportedAt time.Time `json:"exported_at"`
		types.Snapshot
	}{
		ExportedAt: time.Now().UTC(),
		Snapshot:   h.store.Snapshot(),
	}

	payload, err := sonic.Marshal(archive)
	if err != nil {
		h.logger.Error("failed to encode export archive", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode archive"})
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Encoding", "gzip")
	c.Header("Content-Disposition", `attachment; filename="aisha-sessions.json.gz"`)
	c.Status(http.StatusOK)

	gz := gzip.NewWriter(c.Writer)
	if _, err := gz.Write(payload); err != nil {
		h.logger.Error("failed to write export archive", zap.Error(err))
		return
	}
	if err := gz.Close(); err != nil {
		h.logger.Error("failed to flush export archive", zap.Error(err))
	}
}
