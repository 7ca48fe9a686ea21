package types

// SubmitRequest represents a chat submission from the presentation layer.
// Text is deliberately unvalidated: blank input is a documented no-op,
// not a request error.
type SubmitRequest struct {
	Text string `json:"text"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}
