// Package text provides utilities for text processing shared by the
// generation, filtering, and publishing layers.
package text

import "strings"

// CountRunes counts the number of Unicode characters (runes) in the given
// text. Post length limits are defined in characters, not bytes, so counting
// runes keeps multi-byte characters and emoji from being over-counted.
//
// Examples:
//
//	CountRunes("hello")    // 5
//	CountRunes("héllo")    // 5
//	CountRunes("")         // 0
func CountRunes(text string) int {
	return len([]rune(text))
}

// Truncate shortens text to at most limit runes, appending suffix when
// anything was cut. The suffix counts against the limit.
func Truncate(text string, limit int, suffix string) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := limit - len([]rune(suffix))
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + suffix
}

// CollapseWhitespace replaces runs of whitespace with single spaces and trims
// the ends. Feed content often arrives with HTML-derived spacing.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
