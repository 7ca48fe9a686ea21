package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"seven words elided", "one two three four five six seven", "one two three four five six..."},
		{"exactly six words", "one two three four five six", "one two three four five six"},
		{"single word", "hi", "hi"},
		{"empty", "", ""},
		{"whitespace only", "   \t  ", ""},
		{"collapses runs of whitespace", "my   back  pain\tworsened", "my back pain worsened"},
		{"long claim message", "Paid 8k for malaria meds at Faith Clinic yesterday", "Paid 8k for malaria meds at..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.in))
		})
	}
}
