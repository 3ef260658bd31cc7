// Package textseg splits long text into chunks a speech provider accepts,
// preferring sentence and clause boundaries over hard cuts.
package textseg

import "strings"

const (
	sentenceTerminators = "。！？.!?"
	clauseSeparators    = "，,；;"
)

// Segment splits text into pieces of at most maxLength characters (runes).
// Text that already fits is returned as a single segment. Segments are never
// empty and their concatenation equals text. Empty text yields nil; a
// non-positive maxLength returns text unsplit.
func Segment(text string, maxLength int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if maxLength <= 0 || len(runes) <= maxLength {
		return []string{text}
	}

	var segments []string
	for len(runes) > maxLength {
		cut := splitPoint(runes[:maxLength])
		segments = append(segments, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		segments = append(segments, string(runes))
	}
	return segments
}

// splitPoint returns the length of the first segment taken from window. A
// boundary only counts when it sits in the second half of the window so
// segments never shrink below half the limit.
func splitPoint(window []rune) int {
	if i := lastBoundary(window, sentenceTerminators); i >= 0 {
		return i + 1
	}
	if i := lastBoundary(window, clauseSeparators); i >= 0 {
		return i + 1
	}
	return len(window)
}

func lastBoundary(window []rune, set string) int {
	floor := len(window) / 2
	for i := len(window) - 1; i >= floor; i-- {
		if strings.ContainsRune(set, window[i]) {
			return i
		}
	}
	return -1
}
