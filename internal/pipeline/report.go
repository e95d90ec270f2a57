package pipeline

import (
	"github.com/spigell/resume-matcher/internal/gap"
	"github.com/spigell/resume-matcher/internal/matcherr"
)

// Report is the result of one resume/job analysis.
type Report struct {
	Score           float64         `json:"match_score"`
	KeyTerms        []string        `json:"key_terms"`
	Skills          map[string]bool `json:"skills"`
	Experience      string          `json:"experience"`
	Contact         Contact         `json:"contact_information"`
	Recommendations []string        `json:"recommendations"`
	Details         Details         `json:"details"`
}

type Contact struct {
	Name   []string `json:"name"`
	Emails []string `json:"email"`
	Phones []string `json:"phone"`
}

// SimilarityResult is a score with the text it was computed against.
type SimilarityResult struct {
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// Details carries diagnostics for the report consumer.
type Details struct {
	ResumeKeywords      []string           `json:"resume_keywords"`
	JobKeywords         []string           `json:"job_keywords"`
	Similarity          []SimilarityResult `json:"similarity_details"`
	Gap                 gap.Analysis       `json:"skills_analysis"`
	EmbeddingModel      string             `json:"embedding_model,omitempty"`
	EmbeddingDimensions int                `json:"embedding_dimensions"`
	Stages              []matcherr.Stage   `json:"stages"`
}
