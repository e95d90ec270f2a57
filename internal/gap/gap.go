// Package gap compares resume and job keyword sets.
package gap

import (
	"strings"
)

const bullet = "•"

var stopWords = map[string]struct{}{
	"the":         {},
	"and":         {},
	"for":         {},
	"with":        {},
	"job":         {},
	"description": {},
	bullet:        {},
}

// Analysis is the result of one comparison. Matched and Missing never share a term;
// Technical is a subset of Missing.
type Analysis struct {
	Matched   []string `json:"matched"`
	Missing   []string `json:"missing"`
	Technical []string `json:"technical"`
}

// Analyzer compares keyword sets against a technical vocabulary.
type Analyzer struct {
	vocabulary []string
}

// NewAnalyzer creates an Analyzer. An empty vocabulary selects DefaultVocabulary.
func NewAnalyzer(vocabulary []string) *Analyzer {
	if len(vocabulary) == 0 {
		vocabulary = DefaultVocabulary
	}

	a := &Analyzer{}
	seen := make(map[string]struct{}, len(vocabulary))
	for _, term := range vocabulary {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		a.vocabulary = append(a.vocabulary, term)
	}

	return a
}

// Vocabulary returns the technical terms in use.
func (a *Analyzer) Vocabulary() []string {
	return append([]string(nil), a.vocabulary...)
}

// Analyze reports which resume terms are backed by the job terms and which job terms the resume
// text does not mention. Containment is case-insensitive substring matching, so "python"
// matches the job term "python developer". Output follows input order and each term is reported
// once, lowercased.
func (a *Analyzer) Analyze(resumeTerms, jobTerms []string, resumeFullText string) Analysis {
	text := strings.ToLower(resumeFullText)
	jobs := lowerAll(jobTerms)

	result := Analysis{
		Matched:   []string{},
		Missing:   []string{},
		Technical: []string{},
	}

	for _, term := range dedupe(lowerAll(resumeTerms)) {
		if !strings.Contains(text, term) {
			continue
		}
		if containedInAny(term, jobs) {
			result.Matched = append(result.Matched, term)
		}
	}

	for _, term := range dedupe(jobs) {
		if excluded(term) || strings.Contains(text, term) {
			continue
		}
		result.Missing = append(result.Missing, term)
		if a.technical(term) {
			result.Technical = append(result.Technical, term)
		}
	}

	return result
}

func (a *Analyzer) technical(term string) bool {
	for _, v := range a.vocabulary {
		if strings.Contains(term, v) {
			return true
		}
	}
	return false
}

func excluded(term string) bool {
	if _, ok := stopWords[term]; ok {
		return true
	}
	return len([]rune(term)) <= 2 || strings.Contains(term, bullet)
}

func containedInAny(term string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(t, term) {
			return true
		}
	}
	return false
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
