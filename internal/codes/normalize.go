// Package codes provides normalization and text extraction for redemption
// codes.
package codes

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]`)

// Normalize returns the canonical form of a raw code used for duplicate
// comparison: surrounding whitespace trimmed, letters uppercased, and every
// non-alphanumeric character (dashes, spaces, other separators) removed.
// Pure and idempotent; an empty or whitespace-only input yields "".
// Normalize does not validate code shape.
func Normalize(raw string) string {
	return nonAlnum.ReplaceAllString(strings.ToUpper(strings.TrimSpace(raw)), "")
}
