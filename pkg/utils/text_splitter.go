package utils

import (
	"strings"
	"unicode"
)

// SplitText cuts text into pieces of at most maxChars runes for backends with a per-request
// input limit. It prefers to break after a sentence end, then at whitespace, and only slices
// a word when nothing better exists. Pieces concatenate back to the trimmed input minus the
// whitespace at the break points.
func SplitText(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= maxChars {
			chunks = append(chunks, string(runes))
			break
		}

		cut := breakPoint(runes[:maxChars])
		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		runes = runes[cut:]
		for len(runes) > 0 && unicode.IsSpace(runes[0]) {
			runes = runes[1:]
		}
	}
	return chunks
}

// breakPoint returns how many runes of window to keep. Only the back half of the window is
// searched so pieces stay reasonably full.
func breakPoint(window []rune) int {
	half := len(window) / 2

	for i := len(window) - 1; i >= half; i-- {
		if isSentenceEnd(window[i]) && (i+1 == len(window) || unicode.IsSpace(window[i+1])) {
			return i + 1
		}
	}
	for i := len(window) - 1; i >= half; i-- {
		if unicode.IsSpace(window[i]) {
			return i
		}
	}
	return len(window)
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '\n'
}
