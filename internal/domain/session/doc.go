// Package session owns the set of chat sessions, the active session
// pointer, and the per-session message lists.
//
// The Store is the single serialization point for all conversation
// state. Every mutation is written through to the persistence adapter
// for each of the keys it touches, after the in-memory state is
// updated, so the durable shadow copy never diverges from memory on
// any mutation path.
//
// Invariants:
//   - Every session id in the list has a message-map entry.
//   - The active pointer references an existing session whenever the
//     list is non-empty; emptying the list creates a fresh session and
//     redirects the pointer before any read.
//   - Message lists are append-only.
//
// Example Usage:
//
//	store := session.NewStore(persist, logger)
//	created := store.Create()
//	store.Append(created.ID, types.Message{Sender: types.SenderUser, Text: "Hello"})
package session
