package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matcherr"
	"github.com/spigell/resume-matcher/internal/similarity"
)

// Candidate is one ranked resume.
type Candidate = filtering.Candidate

// Rank scores many resumes against one job description with a single embedding batch, then
// applies the candidate filters. Resumes whose text normalizes to nothing are skipped.
func (o *Orchestrator) Rank(ctx context.Context, job document.Document, resumes []document.Document) (*filtering.Candidates, error) {
	log := o.logger.With(zap.String("job_id", job.ID), zap.Int("resumes", len(resumes)))
	t := newTracker(ctx, log)

	if len(resumes) == 0 {
		return nil, t.fail(matcherr.StageInit, matcherr.NewEmptyInputError("resume list"))
	}

	seen := make(map[string]struct{}, len(resumes))
	for _, r := range resumes {
		if _, ok := seen[r.ID]; ok {
			return nil, t.fail(matcherr.StageInit, fmt.Errorf("duplicate resume id %q", r.ID))
		}
		seen[r.ID] = struct{}{}
	}

	if err := t.enter(matcherr.StageNormalizeBoth); err != nil {
		return nil, err
	}

	jobText, err := normalizeRequired(job.Text(o.opts.EmbedSource), "job description text")
	if err != nil {
		return nil, t.fail(matcherr.StageNormalizeBoth, err)
	}

	texts := make([]string, len(resumes))
	g := new(errgroup.Group)
	for i, r := range resumes {
		g.Go(func() error {
			text, err := normalizeRequired(r.Text(o.opts.EmbedSource), "resume text")
			if err != nil && matcherr.KindOf(err) != matcherr.KindEmptyInput {
				return fmt.Errorf("resume %s: %w", r.ID, err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, t.fail(matcherr.StageNormalizeBoth, err)
	}

	request := []string{jobText}
	kept := make([]document.Document, 0, len(resumes))
	for i, r := range resumes {
		if texts[i] == "" {
			log.Warn("skipping resume without text", logger.Document(r.ID)...)
			continue
		}
		request = append(request, texts[i])
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return nil, t.fail(matcherr.StageNormalizeBoth, matcherr.NewEmptyInputError("every resume text"))
	}

	if err := t.enter(matcherr.StageEmbed); err != nil {
		return nil, err
	}

	vectors, err := o.embedder.Embed(ctx, request)
	if err != nil {
		return nil, t.fail(matcherr.StageEmbed, err)
	}
	if len(vectors) != len(request) {
		return nil, t.fail(matcherr.StageEmbed, matcherr.NewEmbeddingServiceError("",
			fmt.Sprintf("got %d vectors for %d texts", len(vectors), len(request)), nil))
	}

	if err := t.enter(matcherr.StageScore); err != nil {
		return nil, err
	}

	points := make([]similarity.Point, len(kept))
	for i, r := range kept {
		points[i] = similarity.Point{ID: r.ID, Vector: vectors[i+1], Text: request[i+1]}
	}

	hits, err := o.engine.Rank(ctx, vectors[0], points, 0)
	if err != nil {
		return nil, t.fail(matcherr.StageScore, err)
	}
	hits = similarity.Top(batchHits(hits, points), o.opts.SearchLimit)

	candidates := &filtering.Candidates{Items: make([]*Candidate, 0, len(hits))}
	for _, hit := range hits {
		candidates.Items = append(candidates.Items, &Candidate{
			ID:      hit.ID,
			Score:   similarity.Clamp(hit.Score),
			Preview: Preview(hit.Text),
		})
	}

	minimum := 0.0
	if o.opts.MinimumScore != nil {
		minimum = *o.opts.MinimumScore
	}
	steps := []filtering.Filter{
		filtering.NewExcludeFile(o.opts.ExcludeFile, log),
		filtering.NewMinimumScore(minimum, log),
	}
	if o.opts.MinimumScore == nil {
		filtering.DisableByName(steps, "minimum_score", "minimum score is not configured")
	}

	log.Debug("candidate filters", zap.Any("filters", filtering.Describe(steps)))

	if err := filtering.Run(ctx, log, steps, candidates); err != nil {
		return nil, t.fail(matcherr.StageScore, err)
	}

	log.Info("resumes ranked", zap.Int("candidates", candidates.Len()), zap.Strings("stages", stageNames(t.done())))

	return candidates, nil
}

// batchHits drops hits for points that are not part of this batch.
func batchHits(hits []similarity.Hit, points []similarity.Point) []similarity.Hit {
	ids := make(map[string]struct{}, len(points))
	for _, p := range points {
		ids[p.ID] = struct{}{}
	}

	kept := make([]similarity.Hit, 0, len(points))
	for _, hit := range hits {
		if _, ok := ids[hit.ID]; ok {
			kept = append(kept, hit)
		}
	}
	return kept
}

// Preview returns the first PreviewLength characters of text.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength])
}

func stageNames(stages []matcherr.Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return names
}
