// Package metrics derives small local features from prompt text so the
// observation log can record the shape of what the user typed without
// storing the text itself.
package metrics

import (
	"strings"
	"unicode/utf8"
)

// Features summarizes a prompt's size along four axes. None of the fields
// can reconstruct the original text.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// CountFeatures measures s and returns its byte, rune, word, and line counts.
func CountFeatures(s string) Features {
	return Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: countWords(s),
		Lines: countLines(s),
	}
}

// countWords splits on Unicode whitespace, so a run of spaces or a tab
// counts the same as a single separator.
func countWords(s string) int {
	return len(strings.Fields(s))
}

// countLines counts newline-separated lines. The empty prompt has zero
// lines; any non-empty prompt has at least one.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}
