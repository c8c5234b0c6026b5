// Package strutil provides rune-safe truncation helpers shared across the
// service.
package strutil

// Truncate shortens s to at most maxLen runes, appending "..." when anything
// was cut. Rune-level truncation keeps multi-byte characters intact. Returns
// "" for maxLen <= 0 to avoid slice bounds panics.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// Prefix returns the first maxLen runes of s without an ellipsis marker.
func Prefix(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
