// Package source implements the collaborators that yield raw code
// candidates to the ingestion pipeline.
package source

import (
	"context"
	"unicode/utf8"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

// Source yields raw candidates from one place codes are published. A source
// may fail independently; the pipeline continues with the remaining sources.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.RawCandidate, error)
}

// truncate caps s at limit bytes without splitting a multi-byte rune, so
// stored context stays valid UTF-8.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
