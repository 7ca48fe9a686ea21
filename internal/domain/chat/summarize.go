package chat

import "strings"

// titleWords is how much of the first user message becomes the session
// title before it is elided.
const titleWords = 6

// Summarize derives a short session title from the first user message:
// the first six whitespace-separated words, with a literal ellipsis
// when the message is longer. Blank input yields an empty title.
func Summarize(text string) string {
	words := strings.Fields(text)
	if len(words) <= titleWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:titleWords], " ") + "..."
}
