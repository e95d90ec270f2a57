// Package normalize turns raw document text into a comparison-safe form.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spigell/resume-matcher/internal/matcherr"
)

var (
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	linkPattern   = regexp.MustCompile(`(?:https?://|www\.)\S+`)
	nonLetterChar = regexp.MustCompile(`[^a-zA-Z\s]`)
)

// minTermLength is the shortest term kept in a keyword set, exclusive.
const minTermLength = 2

// Text strips emails, links and every non-letter character, then lowercases and collapses
// whitespace. Empty input yields empty output. Invalid UTF-8 is a NormalizationError.
func Text(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", matcherr.NewNormalizationError("input text is not valid utf-8")
	}

	text = emailPattern.ReplaceAllString(text, "")
	text = linkPattern.ReplaceAllString(text, "")
	text = nonLetterChar.ReplaceAllString(text, "")
	text = strings.ToLower(text)

	return strings.Join(strings.Fields(text), " "), nil
}

// Terms builds a keyword set: trimmed, lowercased, longer than two runes and deduplicated.
// The first occurrence wins and input order is kept.
func Terms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	result := make([]string, 0, len(terms))

	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if utf8.RuneCountInString(term) <= minTermLength {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		result = append(result, term)
	}

	return result
}
