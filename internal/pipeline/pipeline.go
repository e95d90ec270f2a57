// Package pipeline sequences normalization, embedding, scoring, gap analysis and
// recommendations over parsed documents.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/gap"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matcherr"
	"github.com/spigell/resume-matcher/internal/similarity"
)

// PreviewLength is the number of characters of candidate text shown in rankings.
const PreviewLength = 100

// Options tunes an Orchestrator. Zero values select defaults.
type Options struct {
	// EmbedSource picks the document text that is embedded.
	EmbedSource document.Source
	// RecommendThreshold is the score under which keyword advice is given; nil uses
	// recommend.DefaultThreshold.
	RecommendThreshold *float64
	// SearchLimit caps the number of ranked candidates.
	SearchLimit int
	// MinimumScore drops ranked candidates under it; nil keeps all of them.
	MinimumScore *float64
	// ExcludeFile lists candidates already reviewed.
	ExcludeFile string
}

// Orchestrator runs analyses. It holds no per-request state and is safe for concurrent use when
// its collaborators are.
type Orchestrator struct {
	embedder embedding.Provider
	engine   similarity.Engine
	analyzer *gap.Analyzer
	opts     Options
	logger   *zap.Logger
}

// New wires an Orchestrator. A nil analyzer uses the default technical vocabulary.
func New(embedder embedding.Provider, engine similarity.Engine, analyzer *gap.Analyzer, opts Options, log *zap.Logger) (*Orchestrator, error) {
	if embedder == nil {
		return nil, matcherr.NewConfigurationError("embedding.provider", "embedding provider is not configured")
	}
	if engine == nil {
		return nil, matcherr.NewConfigurationError("similarity.mode", "similarity engine is not configured")
	}
	if analyzer == nil {
		analyzer = gap.NewAnalyzer(nil)
	}
	if opts.EmbedSource == "" {
		opts.EmbedSource = document.SourceKeywords
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 30
	}

	if log == nil {
		log = zap.NewNop()
	}
	if named, ok := embedder.(interface {
		Name() string
		Model() string
	}); ok {
		log = logger.WithCommonFields(log, named.Name(), named.Model())
	}

	return &Orchestrator{
		embedder: embedder,
		engine:   engine,
		analyzer: analyzer,
		opts:     opts,
		logger:   log,
	}, nil
}

// model reports the embedding model when the provider exposes it.
func (o *Orchestrator) model() string {
	if m, ok := o.embedder.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

// tracker walks the stage state machine for one request.
type tracker struct {
	ctx    context.Context
	logger *zap.Logger
	trail  []matcherr.Stage
}

func newTracker(ctx context.Context, log *zap.Logger) *tracker {
	return &tracker{ctx: ctx, logger: log, trail: []matcherr.Stage{matcherr.StageInit}}
}

// enter moves to stage. Cancellation is honoured only here, between stages.
func (t *tracker) enter(stage matcherr.Stage) error {
	if err := t.ctx.Err(); err != nil {
		return t.fail(stage, err)
	}
	t.trail = append(t.trail, stage)
	t.logger.Debug("stage started", logger.Stage(string(stage)))
	return nil
}

func (t *tracker) fail(stage matcherr.Stage, err error) error {
	wrapped := matcherr.WrapStage(stage, err)
	failed, _ := matcherr.StageOf(wrapped)
	t.trail = append(t.trail, matcherr.StageFailed)
	t.logger.Warn("stage failed",
		logger.Stage(string(failed)),
		zap.String("kind", string(matcherr.KindOf(err))),
		zap.Error(err),
	)
	return wrapped
}

func (t *tracker) done() []matcherr.Stage {
	t.trail = append(t.trail, matcherr.StageDone)
	return append([]matcherr.Stage(nil), t.trail...)
}
