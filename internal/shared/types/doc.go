// Package types provides shared data structures for the AiSHA backend.
//
// Core Types:
//   - Session: a named conversation
//   - Message: a single chat message (append-only per session)
//   - ChatTurn: conversation history entry for the assistant API
//   - Snapshot: full session store state for persistence and export
//
// Request Types:
//   - SubmitRequest: chat submission
//   - WSMessage: WebSocket communication
package types
