package codes

import (
	"regexp"
	"sort"
	"strings"
)

// Shapes of codes seen in the wild: five groups of five characters, or
// four to five groups of four.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b[A-Z0-9]{5}(?:-[A-Z0-9]{5}){4}\b`),
	regexp.MustCompile(`(?i)\b[A-Z0-9]{4}(?:-[A-Z0-9]{4}){3,4}\b`),
}

// Extract finds candidate codes in free text and reformats each into its
// standard dashed-group form. Results are de-duplicated and sorted.
func Extract(text string) []string {
	if text == "" {
		return nil
	}
	found := make(map[string]struct{})
	for _, pat := range codePatterns {
		for _, m := range pat.FindAllString(text, -1) {
			found[reformat(m)] = struct{}{}
		}
	}
	if len(found) == 0 {
		return nil
	}
	out := make([]string, 0, len(found))
	for code := range found {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// reformat rebuilds a matched code into uniform dashed groups so that
// visually different spellings of the same code extract identically.
func reformat(match string) string {
	normalized := Normalize(match)
	switch len(normalized) {
	case 25:
		return joinGroups(normalized, 5)
	case 16, 20:
		return joinGroups(normalized, 4)
	default:
		return strings.ToUpper(match)
	}
}

func joinGroups(s string, size int) string {
	groups := make([]string, 0, len(s)/size)
	for i := 0; i < len(s); i += size {
		groups = append(groups, s[i:i+size])
	}
	return strings.Join(groups, "-")
}
