package utils

import "strings"

// StripPunctuation removes ASCII punctuation from retrieved content before
// it is fed into a prompt.
func StripPunctuation(text string) string {
	const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 128 && strings.ContainsRune(punctuation, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TruncateBytes caps a string at n bytes, matching the grounding-context
// size limit on the serving path.
func TruncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
