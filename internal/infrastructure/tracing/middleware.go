package tracing

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthpalm/aisha/backend/internal/infrastructure/logging"
)

// Middleware assigns every request a trace id, reusing the caller's
// X-Trace-ID when present, and logs request completion with it.
func Middleware(logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNop()
	}

	return func(c *gin.Context) {
		id := TraceID(c.GetHeader(HeaderName))
		if id == "" {
			id = NewTraceID()
		}

		c.Request = c.Request.WithContext(With(c.Request.Context(), id))
		c.Header(HeaderName, string(id))

		start := time.Now()
		c.Next()

		logger.Debug("request completed",
			zap.String("trace_id", string(id)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
