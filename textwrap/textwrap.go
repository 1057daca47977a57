// Package textwrap breaks text into lines that fit a width budget.
package textwrap

import "strings"

// MeasureFunc returns the rendered width of s in the caller's units.
type MeasureFunc func(s string) float64

// Wrap splits text into lines whose measured width does not exceed maxWidth.
//
// Lines are filled greedily: words are appended to the current line until the
// next word would push it past maxWidth, at which point the line is closed and
// the word starts a new one. Words are never split, so a word that is wider
// than maxWidth on its own occupies a line by itself. Runs of whitespace in
// text are treated as a single separator; blank text yields no lines.
func Wrap(text string, maxWidth float64, measure MeasureFunc) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if measure(candidate) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	return append(lines, line)
}
