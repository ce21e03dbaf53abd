package ner

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var sentenceBoundary = regexp.MustCompile(`[.!?:]\s+|[.!?:]$`)

const minSentenceLength = 4

// SplitSentences cuts a transcript on terminal punctuation. Fragments of
// three characters or fewer are dropped and each sentence gets a closing
// period back, since the token classifier is sensitive to sentence endings.
func SplitSentences(text string) []string {
	parts := sentenceBoundary.Split(strings.TrimSpace(text), -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		cleaned := strings.TrimSpace(part)
		if utf8.RuneCountInString(cleaned) < minSentenceLength {
			continue
		}
		if !strings.HasSuffix(cleaned, ".") && !strings.HasSuffix(cleaned, "!") && !strings.HasSuffix(cleaned, "?") {
			cleaned += "."
		}
		sentences = append(sentences, cleaned)
	}
	return sentences
}
