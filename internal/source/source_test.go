package source

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"under limit", "short", 100, "short"},
		{"at limit", "exact", 5, "exact"},
		{"over limit ascii", "abcdefgh", 4, "abcd"},
		{"zero limit keeps all", "anything", 0, "anything"},
		{"negative limit keeps all", "anything", -1, "anything"},
		{"cut lands mid rune", strings.Repeat("é", 10), 11, strings.Repeat("é", 5)},
		{"cut lands on rune boundary", strings.Repeat("é", 10), 10, strings.Repeat("é", 5)},
		{"four byte rune", "ab\U0001F600cd", 4, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
