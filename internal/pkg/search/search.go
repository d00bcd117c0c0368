// Package search holds shared helpers for keyword search queries.
package search

import (
	"strings"
	"time"
)

// DefaultSearchTimeout bounds search queries so an unindexed ILIKE scan
// cannot hold a connection indefinitely.
const DefaultSearchTimeout = 5 * time.Second

// MaxKeywords limits the number of keywords in a single search request.
const MaxKeywords = 10

// EscapeILIKE escapes LIKE metacharacters in a keyword and wraps it in
// wildcards for substring matching. The backslash must be escaped first.
func EscapeILIKE(keyword string) string {
	escaped := strings.ReplaceAll(keyword, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `%`, `\%`)
	escaped = strings.ReplaceAll(escaped, `_`, `\_`)
	return "%" + escaped + "%"
}

// NormalizeKeywords trims whitespace, drops empties, and caps the keyword
// count at MaxKeywords.
func NormalizeKeywords(keywords []string) []string {
	result := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		trimmed := strings.TrimSpace(kw)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
		if len(result) == MaxKeywords {
			break
		}
	}
	return result
}
