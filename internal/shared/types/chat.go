package types

import "time"

// Sender identifies who authored a chat message. The wire values match
// what the frontend renders and what older persisted stores contain.
type Sender string

const (
	SenderUser      Sender = "You"
	SenderAssistant Sender = "Aisha"
)

// Role returns the assistant-API role for this sender.
func (s Sender) Role() string {
	if s == SenderUser {
		return "user"
	}
	return "assistant"
}

// Message is a single chat message. Messages are append-only and
// ordered by insertion within a session.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Session identifies a named conversation. Date is kept as a plain
// YYYY-MM-DD string for presentation.
type Session struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// ChatTurn is one entry of the conversation history sent to the
// assistant service.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Snapshot is a full copy of the session store state, used for
// persistence round-trips and archive export.
type Snapshot struct {
	Sessions []Session         `json:"sessions"`
	Messages map[int][]Message `json:"messages"`
	ActiveID int               `json:"active_id"`
}

// StoreStats contains session store statistics
type StoreStats struct {
	TotalSessions int        `json:"total_sessions"`
	TotalMessages int        `json:"total_messages"`
	ActiveID      int        `json:"active_id"`
	LastPersisted *time.Time `json:"last_persisted,omitempty"`
}
