package tracing

import (
	"context"

	"github.com/google/uuid"
)

// TraceID identifies one request end to end. It is accepted from the
// X-Trace-ID header so the frontend and assistant service can correlate
// their logs with the gateway's.
type TraceID string

type contextKey struct{}

// HeaderName is the propagation header for trace ids.
const HeaderName = "X-Trace-ID"

// NewTraceID generates a fresh trace id.
func NewTraceID() TraceID {
	return TraceID(uuid.New().String())
}

// With returns a context carrying the trace id.
func With(ctx context.Context, id TraceID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the trace id, if any.
func FromContext(ctx context.Context) (TraceID, bool) {
	id, ok := ctx.Value(contextKey{}).(TraceID)
	return id, ok
}
