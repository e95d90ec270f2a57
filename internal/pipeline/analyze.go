package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matcherr"
	"github.com/spigell/resume-matcher/internal/normalize"
	"github.com/spigell/resume-matcher/internal/recommend"
	"github.com/spigell/resume-matcher/internal/similarity"
)

// Analyze scores resume against job. Any stage failure stops the run and is returned as a
// *matcherr.StageError naming the stage.
func (o *Orchestrator) Analyze(ctx context.Context, resume, job document.Document) (*Report, error) {
	log := o.logger.With(zap.String("resume_id", resume.ID), zap.String("job_id", job.ID))
	t := newTracker(ctx, log)

	if err := t.enter(matcherr.StageNormalizeBoth); err != nil {
		return nil, err
	}

	var resumeText, jobText, resumeFull string
	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		resumeText, err = normalizeRequired(resume.Text(o.opts.EmbedSource), "resume text")
		return err
	})
	g.Go(func() error {
		var err error
		jobText, err = normalizeRequired(job.Text(o.opts.EmbedSource), "job description text")
		return err
	})
	g.Go(func() error {
		var err error
		resumeFull, err = normalize.Text(resume.CleanData)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, t.fail(matcherr.StageNormalizeBoth, err)
	}

	log.Debug("texts normalized",
		zap.String("resume_preview", logger.TruncateForLog(resumeText, PreviewLength)),
		zap.String("job_preview", logger.TruncateForLog(jobText, PreviewLength)),
	)

	if err := t.enter(matcherr.StageEmbed); err != nil {
		return nil, err
	}

	vectors, err := o.embedder.Embed(ctx, []string{resumeText, jobText})
	if err != nil {
		return nil, t.fail(matcherr.StageEmbed, err)
	}
	if len(vectors) != 2 {
		return nil, t.fail(matcherr.StageEmbed, matcherr.NewEmbeddingServiceError("", fmt.Sprintf("got %d vectors for 2 texts", len(vectors)), nil))
	}
	resumeVec, jobVec := vectors[0], vectors[1]

	if err := t.enter(matcherr.StageScore); err != nil {
		return nil, err
	}

	// An indexed collection may hold points of earlier runs, so the hit is looked up by id.
	hits, err := o.engine.Rank(ctx, jobVec, []similarity.Point{{ID: resume.ID, Vector: resumeVec, Text: resumeText}}, 0)
	if err != nil {
		return nil, t.fail(matcherr.StageScore, err)
	}
	hit, ok := findHit(hits, resume.ID)
	if !ok {
		return nil, t.fail(matcherr.StageScore, fmt.Errorf("similarity engine returned no result for resume %q", resume.ID))
	}

	score := similarity.Clamp(hit.Score)
	log.Info("resume scored", zap.Float64("score", score))

	if err := t.enter(matcherr.StageGapAnalyze); err != nil {
		return nil, err
	}

	resumeTerms := normalize.Terms(append(append([]string{}, resume.ExtractedKeywords...), resume.Terms()...))
	jobTerms := normalize.Terms(job.ExtractedKeywords)
	analysis := o.analyzer.Analyze(resumeTerms, jobTerms, resumeFull)

	log.Debug("gap analyzed",
		zap.Int("matched", len(analysis.Matched)),
		zap.Int("missing", len(analysis.Missing)),
		zap.Int("technical", len(analysis.Technical)),
	)

	if err := t.enter(matcherr.StageRecommend); err != nil {
		return nil, err
	}

	recommendations := recommend.Synthesize(recommend.Input{
		Score:         score,
		Gap:           analysis,
		HasSkills:     resume.HasSkills(),
		HasExperience: resume.HasExperience(),
		Threshold:     o.opts.RecommendThreshold,
	})

	skills := make(map[string]bool, len(analysis.Matched)+len(analysis.Missing))
	for _, term := range analysis.Matched {
		skills[term] = true
	}
	for _, term := range analysis.Missing {
		skills[term] = false
	}

	return &Report{
		Score:      score,
		KeyTerms:   nonNil(resume.Terms()),
		Skills:     skills,
		Experience: resume.Experience,
		Contact: Contact{
			Name:   nonNil(resume.Name),
			Emails: nonNil(resume.Emails),
			Phones: nonNil(resume.Phones),
		},
		Recommendations: recommendations,
		Details: Details{
			ResumeKeywords:      nonNil(resume.ExtractedKeywords),
			JobKeywords:         nonNil(job.ExtractedKeywords),
			Similarity:          []SimilarityResult{{Score: score, Text: resumeText}},
			Gap:                 analysis,
			EmbeddingModel:      o.model(),
			EmbeddingDimensions: len(jobVec),
			Stages:              t.done(),
		},
	}, nil
}

// normalizeRequired normalizes text and rejects an empty result before it reaches the
// embedding service.
func normalizeRequired(text, field string) (string, error) {
	normalized, err := normalize.Text(text)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	if normalized == "" {
		return "", matcherr.NewEmptyInputError(field)
	}
	return normalized, nil
}

func findHit(hits []similarity.Hit, id string) (similarity.Hit, bool) {
	for _, hit := range hits {
		if hit.ID == id {
			return hit, true
		}
	}
	return similarity.Hit{}, false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
