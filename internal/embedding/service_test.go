package embedding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/embedding/embeddingtest"
	"github.com/spigell/resume-matcher/internal/matcherr"
)

func newService(t *testing.T, backend embedding.Backend, opts embedding.Options) *embedding.Service {
	t.Helper()
	if opts.RetryBase == 0 {
		opts.RetryBase = time.Millisecond
	}
	svc, err := embedding.NewService(backend, opts, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestServiceEmbedPreservesOrder(t *testing.T) {
	stub := embeddingtest.NewStub(8)
	svc := newService(t, stub, embedding.Options{})

	vectors, err := svc.Embed(context.Background(), []string{"python developer", "vue engineer"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	assert.Equal(t, embeddingtest.Hash("python developer", 8), vectors[0])
	assert.Equal(t, embeddingtest.Hash("vue engineer", 8), vectors[1])
}

func TestServiceEmbedCountMismatch(t *testing.T) {
	stub := embeddingtest.NewStub(4, embeddingtest.Response{
		Vectors: []embedding.Vector{{1, 0, 0, 0}},
	})
	svc := newService(t, stub, embedding.Options{})

	_, err := svc.Embed(context.Background(), []string{"resume", "job"})
	require.Error(t, err)
	assert.ErrorIs(t, err, matcherr.ErrEmbeddingService)
	assert.Len(t, stub.Calls(), 1)
}

func TestServiceEmbedRejectsInconsistentDimensions(t *testing.T) {
	stub := embeddingtest.NewStub(4, embeddingtest.Response{
		Vectors: []embedding.Vector{{1, 0, 0, 0}, {1, 0}},
	})
	svc := newService(t, stub, embedding.Options{})

	_, err := svc.Embed(context.Background(), []string{"resume", "job"})
	assert.ErrorIs(t, err, matcherr.ErrEmbeddingService)
	assert.Equal(t, matcherr.KindEmbeddingService, matcherr.KindOf(err))
}

func TestServiceEmbedRejectsEmptyVectors(t *testing.T) {
	stub := embeddingtest.NewStub(4, embeddingtest.Response{
		Vectors: []embedding.Vector{{}, {}},
	})
	svc := newService(t, stub, embedding.Options{})

	_, err := svc.Embed(context.Background(), []string{"resume", "job"})
	assert.ErrorIs(t, err, matcherr.ErrEmbeddingService)
}

func TestServiceEmbedRejectsEmptyInput(t *testing.T) {
	stub := embeddingtest.NewStub(4)
	svc := newService(t, stub, embedding.Options{})

	_, err := svc.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, matcherr.ErrEmptyInput)

	_, err = svc.Embed(context.Background(), []string{"resume", "  "})
	assert.ErrorIs(t, err, matcherr.ErrEmptyInput)

	assert.Empty(t, stub.Calls(), "backend must not be called for empty input")
}

func TestServiceRetriesTemporaryErrors(t *testing.T) {
	stub := embeddingtest.NewStub(4,
		embeddingtest.Response{Err: embedding.Temporary(errors.New("503 service unavailable"))},
	)
	svc := newService(t, stub, embedding.Options{MaxAttempts: 2})

	vectors, err := svc.Embed(context.Background(), []string{"resume"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Len(t, stub.Calls(), 2)
}

func TestServiceStopsAfterAttemptsExhausted(t *testing.T) {
	temp := embedding.Temporary(errors.New("429 too many requests"))
	stub := embeddingtest.NewStub(4,
		embeddingtest.Response{Err: temp},
		embeddingtest.Response{Err: temp},
		embeddingtest.Response{Err: temp},
	)
	svc := newService(t, stub, embedding.Options{MaxAttempts: 2})

	_, err := svc.Embed(context.Background(), []string{"resume"})
	assert.ErrorIs(t, err, matcherr.ErrEmbeddingService)
	assert.Len(t, stub.Calls(), 2)
}

func TestServiceDoesNotRetryPermanentErrors(t *testing.T) {
	stub := embeddingtest.NewStub(4,
		embeddingtest.Response{Err: errors.New("400 bad request")},
	)
	svc := newService(t, stub, embedding.Options{MaxAttempts: 3})

	_, err := svc.Embed(context.Background(), []string{"resume"})
	assert.ErrorIs(t, err, matcherr.ErrEmbeddingService)
	assert.Len(t, stub.Calls(), 1)
}

func TestServicePassesConfigurationErrorsThrough(t *testing.T) {
	stub := embeddingtest.NewStub(4,
		embeddingtest.Response{Err: matcherr.NewConfigurationError("cohere api key", "")},
	)
	svc := newService(t, stub, embedding.Options{})

	_, err := svc.Embed(context.Background(), []string{"resume"})
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)
	assert.NotErrorIs(t, err, matcherr.ErrEmbeddingService)
}

func TestServiceTimeoutIsServiceError(t *testing.T) {
	stub := embeddingtest.NewStub(4)
	svc := newService(t, stub, embedding.Options{})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := svc.Embed(ctx, []string{"resume"})
	assert.ErrorIs(t, err, matcherr.ErrEmbeddingService)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServiceCachesVectors(t *testing.T) {
	stub := embeddingtest.NewStub(4)
	svc := newService(t, stub, embedding.Options{CacheSize: 16})

	_, err := svc.Embed(context.Background(), []string{"job description"})
	require.NoError(t, err)

	vectors, err := svc.Embed(context.Background(), []string{"resume", "job description"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	calls := stub.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"resume"}, calls[1], "cached text must not be requested again")
	assert.Equal(t, embeddingtest.Hash("job description", 4), vectors[1])
}

func TestNewServiceRequiresBackend(t *testing.T) {
	_, err := embedding.NewService(nil, embedding.Options{}, nil)
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)
}

func TestIsTemporaryStatus(t *testing.T) {
	assert.True(t, embedding.IsTemporaryStatus(429))
	assert.True(t, embedding.IsTemporaryStatus(503))
	assert.False(t, embedding.IsTemporaryStatus(400))
	assert.False(t, embedding.IsTemporary(errors.New("plain")))
}
