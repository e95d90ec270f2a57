// Package recommend turns a match score and gap analysis into resume suggestions.
package recommend

import (
	"strings"

	"github.com/spigell/resume-matcher/internal/gap"
)

const (
	// DefaultThreshold is the score below which keyword advice is given.
	DefaultThreshold = 0.6
	// MaxTechnicalTerms caps the terms named in the technical skills suggestion.
	MaxTechnicalTerms = 5

	MsgKeywords   = "Consider adding more relevant keywords from the job description"
	MsgSkills     = "Add a clear skills section to your resume"
	MsgExperience = "Include detailed work experience"

	technicalPrefix = "Consider adding these technical skills: "
)

// Input is everything the rules look at.
type Input struct {
	Score         float64
	Gap           gap.Analysis
	HasSkills     bool
	HasExperience bool
	// Threshold overrides DefaultThreshold when set. Zero and negative values are honoured.
	Threshold *float64
}

// Synthesize applies the rules in fixed order: low score, missing skills section, missing
// experience, technical gaps. No message is emitted twice.
func Synthesize(in Input) []string {
	threshold := DefaultThreshold
	if in.Threshold != nil {
		threshold = *in.Threshold
	}

	out := []string{}
	add := func(msg string) {
		for _, existing := range out {
			if existing == msg {
				return
			}
		}
		out = append(out, msg)
	}

	if in.Score < threshold {
		add(MsgKeywords)
	}
	if !in.HasSkills {
		add(MsgSkills)
	}
	if !in.HasExperience {
		add(MsgExperience)
	}

	if len(in.Gap.Technical) > 0 {
		terms := in.Gap.Technical
		if len(terms) > MaxTechnicalTerms {
			terms = terms[:MaxTechnicalTerms]
		}
		add(technicalPrefix + strings.Join(terms, ", "))
	}

	return out
}
