package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maltedev/phone-catalog-scraper/internal/config"
)

// Contains reports whether term occurs in text under the given match policy.
// Both arguments are expected to be folded already.
//
// A word boundary on the left is any non letter/digit rune; on the right it is
// any non-letter rune, so "iphone15" still contains the word "iphone".
func Contains(text, term, policy string) bool {
	if term == "" {
		return false
	}
	if policy == config.MatchSubstring {
		return strings.Contains(text, term)
	}

	for from := 0; from <= len(text)-len(term); {
		idx := strings.Index(text[from:], term)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(term)

		if leftBoundary(text, start) && (policy == config.MatchPrefix || rightBoundary(text, end)) {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return false
}

func leftBoundary(text string, at int) bool {
	if at == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:at])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func rightBoundary(text string, at int) bool {
	if at >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[at:])
	return !unicode.IsLetter(r)
}
