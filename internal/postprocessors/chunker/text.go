package chunker

import "strings"

// Normalise collapses runs of whitespace into single spaces and trims the ends.
func Normalise(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// CountWords returns the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
