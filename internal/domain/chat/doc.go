// Package chat orchestrates user submissions as an explicit two-phase
// protocol: Begin appends the user message optimistically and derives
// the session title when it is the first user message; Resolve settles
// the submission with the assistant reply or a fixed apology.
//
// Splitting the phases makes the interleaving of overlapping
// submissions explicit: replies land FIFO-by-completion in the session
// that originated them, which may no longer be the active one.
package chat
