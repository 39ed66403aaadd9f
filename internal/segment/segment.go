// Package segment is the sentence segmentation collaborator: it turns raw
// report text into the ordered, normalized sentence strings the markup
// engine consumes. It is a heuristic splitter, not a linguistic model.
package segment

import (
	"strings"
	"unicode"
)

// Split segments report text into an ordered sequence of sentences. Sentence
// terminators are '.', '!', '?' followed by whitespace or end of text;
// newlines are treated as spaces first so wrapped reports segment the same
// as unwrapped ones.
func Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Only split when the terminator ends a token; "3.5 mm" stays whole.
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// Normalize lowercases a sentence and collapses it to the character set the
// lexicon patterns are written against: letters, digits, hyphens, and single
// spaces. Everything else becomes a space.
func Normalize(sentence string) string {
	var b strings.Builder
	b.Grow(len(sentence))

	lastSpace := true
	for _, r := range strings.ToLower(sentence) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}
