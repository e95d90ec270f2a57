package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/embedding/embeddingtest"
	"github.com/spigell/resume-matcher/internal/matcherr"
	"github.com/spigell/resume-matcher/internal/recommend"
	"github.com/spigell/resume-matcher/internal/similarity"
	"github.com/spigell/resume-matcher/internal/vectorstore"
)

func sampleResume() document.Document {
	return document.Document{
		ID:                "resume",
		CleanData:         "Experienced Python developer, jane@example.com",
		ExtractedKeywords: []string{"python", "react"},
		Experience:        "Five years of backend work",
		Name:              []string{"Jane Doe"},
		Emails:            []string{"jane@example.com"},
	}
}

func sampleJob() document.Document {
	return document.Document{
		ID:                "job",
		CleanData:         "Python engineer with Vue and agile practice",
		ExtractedKeywords: []string{"python", "vue", "agile"},
	}
}

func newService(t *testing.T, stub *embeddingtest.Stub) *embedding.Service {
	t.Helper()
	svc, err := embedding.NewService(stub, embedding.Options{RetryBase: time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func newOrchestrator(t *testing.T, embedder embedding.Provider, engine similarity.Engine, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(embedder, engine, nil, opts, zap.NewNop())
	require.NoError(t, err)
	return o
}

func TestAnalyzeBuildsReport(t *testing.T) {
	jobVec := embedding.Vector{0.45, float32(math.Sqrt(1 - 0.45*0.45))}
	stub := embeddingtest.NewStub(2, embeddingtest.Response{
		Vectors: []embedding.Vector{{1, 0}, jobVec},
	})
	o := newOrchestrator(t, newService(t, stub), similarity.NewDirect(), Options{})

	report, err := o.Analyze(context.Background(), sampleResume(), sampleJob())
	require.NoError(t, err)

	assert.InDelta(t, 0.45, report.Score, 1e-6)
	assert.Equal(t, []string{
		recommend.MsgKeywords,
		recommend.MsgSkills,
		"Consider adding these technical skills: vue",
	}, report.Recommendations)
	assert.Equal(t, map[string]bool{"python": true, "vue": false, "agile": false}, report.Skills)
	assert.Equal(t, []string{"python"}, report.Details.Gap.Matched)
	assert.Equal(t, []string{"vue"}, report.Details.Gap.Technical)
	assert.Equal(t, []string{"Jane Doe"}, report.Contact.Name)
	assert.Empty(t, report.KeyTerms)
	assert.Equal(t, 2, report.Details.EmbeddingDimensions)
	assert.Equal(t, "stub-model", report.Details.EmbeddingModel)
	assert.Equal(t, "python react", report.Details.Similarity[0].Text)
	assert.Equal(t, []matcherr.Stage{
		matcherr.StageInit,
		matcherr.StageNormalizeBoth,
		matcherr.StageEmbed,
		matcherr.StageScore,
		matcherr.StageGapAnalyze,
		matcherr.StageRecommend,
		matcherr.StageDone,
	}, report.Details.Stages)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"python react", "python vue agile"}, calls[0])
}

func TestAnalyzeEmbedsCleanTextWhenConfigured(t *testing.T) {
	stub := embeddingtest.NewStub(8)
	o := newOrchestrator(t, newService(t, stub), similarity.NewDirect(), Options{EmbedSource: document.SourceText})

	_, err := o.Analyze(context.Background(), sampleResume(), sampleJob())
	require.NoError(t, err)

	assert.Equal(t, []string{"experienced python developer", "python engineer with vue and agile practice"}, stub.Calls()[0])
}

func TestAnalyzeFailsInEmbedOnCountMismatch(t *testing.T) {
	stub := embeddingtest.NewStub(2, embeddingtest.Response{
		Vectors: []embedding.Vector{{1, 0}},
	})
	o := newOrchestrator(t, newService(t, stub), similarity.NewDirect(), Options{})

	report, err := o.Analyze(context.Background(), sampleResume(), sampleJob())
	require.Error(t, err)
	assert.Nil(t, report)

	stage, ok := matcherr.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, matcherr.StageEmbed, stage)
	assert.ErrorIs(t, err, matcherr.ErrEmbeddingService)

	payload := matcherr.NewPayload(err)
	assert.Equal(t, matcherr.StageEmbed, payload.Error.Stage)
	assert.Equal(t, matcherr.KindEmbeddingService, payload.Error.Kind)
}

func TestAnalyzeChecksCountWithoutService(t *testing.T) {
	stub := embeddingtest.NewStub(2, embeddingtest.Response{
		Vectors: []embedding.Vector{{1, 0}},
	})
	o := newOrchestrator(t, stub, similarity.NewDirect(), Options{})

	_, err := o.Analyze(context.Background(), sampleResume(), sampleJob())

	stage, _ := matcherr.StageOf(err)
	assert.Equal(t, matcherr.StageEmbed, stage)
	assert.ErrorIs(t, err, matcherr.ErrEmbeddingService)
}

func TestAnalyzeFailsInScoreOnDimensionMismatch(t *testing.T) {
	stub := embeddingtest.NewStub(2, embeddingtest.Response{
		Vectors: []embedding.Vector{{1, 0, 0}, {1, 0}},
	})
	o := newOrchestrator(t, stub, similarity.NewDirect(), Options{})

	_, err := o.Analyze(context.Background(), sampleResume(), sampleJob())

	stage, _ := matcherr.StageOf(err)
	assert.Equal(t, matcherr.StageScore, stage)
	assert.ErrorIs(t, err, matcherr.ErrDimensionMismatch)
}

func TestAnalyzeRejectsEmptyTextBeforeEmbedding(t *testing.T) {
	stub := embeddingtest.NewStub(2)
	o := newOrchestrator(t, newService(t, stub), similarity.NewDirect(), Options{})

	resume := sampleResume()
	resume.ExtractedKeywords = []string{"2024", "@@"}

	_, err := o.Analyze(context.Background(), resume, sampleJob())

	stage, _ := matcherr.StageOf(err)
	assert.Equal(t, matcherr.StageNormalizeBoth, stage)
	assert.ErrorIs(t, err, matcherr.ErrEmptyInput)
	assert.Empty(t, stub.Calls())
}

func TestAnalyzeRejectsInvalidEncoding(t *testing.T) {
	stub := embeddingtest.NewStub(2)
	o := newOrchestrator(t, stub, similarity.NewDirect(), Options{})

	job := sampleJob()
	job.ExtractedKeywords = []string{"python", "\xff\xfe"}

	_, err := o.Analyze(context.Background(), sampleResume(), job)
	assert.Equal(t, matcherr.KindNormalization, matcherr.KindOf(err))
}

func TestAnalyzeStopsWhenCancelled(t *testing.T) {
	stub := embeddingtest.NewStub(2)
	o := newOrchestrator(t, stub, similarity.NewDirect(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Analyze(ctx, sampleResume(), sampleJob())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, stub.Calls())
}

func TestAnalyzeDirectAndIndexedAgree(t *testing.T) {
	direct := newOrchestrator(t, embeddingtest.NewStub(16), similarity.NewDirect(), Options{})
	engine, err := similarity.NewIndexed(vectorstore.NewMemory(), similarity.IndexedOptions{Reset: true}, nil)
	require.NoError(t, err)
	indexed := newOrchestrator(t, embeddingtest.NewStub(16), engine, Options{})

	a, err := direct.Analyze(context.Background(), sampleResume(), sampleJob())
	require.NoError(t, err)
	b, err := indexed.Analyze(context.Background(), sampleResume(), sampleJob())
	require.NoError(t, err)

	assert.InDelta(t, a.Score, b.Score, 1e-9)
	assert.Equal(t, a.Recommendations, b.Recommendations)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, similarity.NewDirect(), nil, Options{}, nil)
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)

	_, err = New(embeddingtest.NewStub(2), nil, nil, Options{}, nil)
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)
}

func rankResumes(n int) []document.Document {
	resumes := make([]document.Document, n)
	for i := range resumes {
		resumes[i] = document.Document{
			ID:                fmt.Sprintf("candidate-%d", i),
			ExtractedKeywords: []string{"python", fmt.Sprintf("skill %c", 'a'+i), strings.Repeat("x", 120)},
		}
	}
	return resumes
}

func TestRankOrdersAndPreviews(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	stub := embeddingtest.NewStub(16)
	o, err := New(newService(t, stub), similarity.NewDirect(), nil, Options{}, zap.New(core))
	require.NoError(t, err)

	candidates, err := o.Rank(context.Background(), sampleJob(), rankResumes(4))
	require.NoError(t, err)
	require.Equal(t, 4, candidates.Len())

	for i := 1; i < candidates.Len(); i++ {
		assert.GreaterOrEqual(t, candidates.Items[i-1].Score, candidates.Items[i].Score)
	}
	for _, c := range candidates.Items {
		assert.Len(t, []rune(c.Preview), PreviewLength)
	}

	require.Len(t, stub.Calls(), 1, "ranking embeds everything in one batch")
	assert.Len(t, stub.Calls()[0], 5)
	assert.Equal(t, 1, logs.FilterMessage("resumes ranked").Len())
}

func TestRankAppliesMinimumScore(t *testing.T) {
	job := sampleJob()
	resumes := []document.Document{
		{ID: "close", ExtractedKeywords: []string{"close"}},
		{ID: "far", ExtractedKeywords: []string{"far"}},
	}
	stub := embeddingtest.NewStub(2, embeddingtest.Response{
		Vectors: []embedding.Vector{{1, 0}, {0.9, 0.1}, {-1, 0}},
	})

	minimum := 0.5
	engine, err := similarity.NewIndexed(vectorstore.NewMemory(), similarity.IndexedOptions{Reset: true}, nil)
	require.NoError(t, err)
	o := newOrchestrator(t, stub, engine, Options{MinimumScore: &minimum})

	candidates, err := o.Rank(context.Background(), job, resumes)
	require.NoError(t, err)
	assert.Equal(t, []string{"close"}, candidates.IDs())
}

func TestRankSkipsEmptyResumes(t *testing.T) {
	stub := embeddingtest.NewStub(4)
	o := newOrchestrator(t, stub, similarity.NewDirect(), Options{})

	resumes := []document.Document{
		{ID: "empty", ExtractedKeywords: []string{"123"}},
		{ID: "ok", ExtractedKeywords: []string{"python"}},
	}

	candidates, err := o.Rank(context.Background(), sampleJob(), resumes)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, candidates.IDs())
}

func TestRankRejectsDuplicateIDs(t *testing.T) {
	o := newOrchestrator(t, embeddingtest.NewStub(4), similarity.NewDirect(), Options{})

	resumes := []document.Document{
		{ID: "same", ExtractedKeywords: []string{"python"}},
		{ID: "same", ExtractedKeywords: []string{"golang"}},
	}

	_, err := o.Rank(context.Background(), sampleJob(), resumes)
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	assert.Len(t, []rune(Preview(strings.Repeat("é", 150))), PreviewLength)
}

func sharedCollectionOrchestrator(t *testing.T, responses ...embeddingtest.Response) *Orchestrator {
	t.Helper()
	engine, err := similarity.NewIndexed(vectorstore.NewMemory(), similarity.IndexedOptions{Collection: "shared"}, nil)
	require.NoError(t, err)
	return newOrchestrator(t, embeddingtest.NewStub(2, responses...), engine, Options{})
}

func TestAnalyzeScoresOwnResumeInSharedCollection(t *testing.T) {
	o := sharedCollectionOrchestrator(t,
		embeddingtest.Response{Vectors: []embedding.Vector{{1, 0}, {1, 0}, {-1, 0}}},
		embeddingtest.Response{Vectors: []embedding.Vector{{-1, 0}, {1, 0}}},
	)
	good := document.Document{ID: "good", ExtractedKeywords: []string{"python"}}
	weak := document.Document{ID: "weak", ExtractedKeywords: []string{"cobol"}}

	_, err := o.Rank(context.Background(), sampleJob(), []document.Document{good, weak})
	require.NoError(t, err)

	report, err := o.Analyze(context.Background(), weak, sampleJob())
	require.NoError(t, err)

	assert.InDelta(t, -1, report.Score, 1e-9)
	assert.Contains(t, report.Recommendations, recommend.MsgKeywords)
}

func TestRankIgnoresPointsOfEarlierRuns(t *testing.T) {
	o := sharedCollectionOrchestrator(t,
		embeddingtest.Response{Vectors: []embedding.Vector{{1, 0}, {1, 0}}},
		embeddingtest.Response{Vectors: []embedding.Vector{{1, 0}, {0, 1}}},
	)

	_, err := o.Rank(context.Background(), sampleJob(), []document.Document{{ID: "first", ExtractedKeywords: []string{"python"}}})
	require.NoError(t, err)

	candidates, err := o.Rank(context.Background(), sampleJob(), []document.Document{{ID: "second", ExtractedKeywords: []string{"golang"}}})
	require.NoError(t, err)

	assert.Equal(t, []string{"second"}, candidates.IDs())
}

func TestAnalyzeHonoursZeroRecommendThreshold(t *testing.T) {
	stub := embeddingtest.NewStub(2, embeddingtest.Response{
		Vectors: []embedding.Vector{{1, 0}, {0.2, float32(math.Sqrt(1 - 0.2*0.2))}},
	})
	zero := 0.0
	o := newOrchestrator(t, stub, similarity.NewDirect(), Options{RecommendThreshold: &zero})

	report, err := o.Analyze(context.Background(), sampleResume(), sampleJob())
	require.NoError(t, err)

	assert.InDelta(t, 0.2, report.Score, 1e-6)
	assert.NotContains(t, report.Recommendations, recommend.MsgKeywords)
}
