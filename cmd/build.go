package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/embedding/cohere"
	"github.com/spigell/resume-matcher/internal/embedding/gemini"
	"github.com/spigell/resume-matcher/internal/embedding/openai"
	"github.com/spigell/resume-matcher/internal/gap"
	"github.com/spigell/resume-matcher/internal/matcherr"
	"github.com/spigell/resume-matcher/internal/pipeline"
	"github.com/spigell/resume-matcher/internal/secrets"
	"github.com/spigell/resume-matcher/internal/similarity"
	"github.com/spigell/resume-matcher/internal/vectorstore"
	"github.com/spigell/resume-matcher/internal/vectorstore/pgvector"
)

var providerEnv = map[string]string{
	"cohere": "COHERE_API_KEY",
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
}

func newBackend(ctx context.Context, cfg *EmbeddingConfig, logger *zap.Logger) (embedding.Backend, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	env, ok := providerEnv[provider]
	if !ok {
		return nil, matcherr.NewConfigurationError("embedding.provider", fmt.Sprintf("unsupported embedding provider: %s", cfg.Provider))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  provider + " api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   env,
	})
	if err != nil {
		return nil, err
	}

	switch provider {
	case "gemini":
		return gemini.NewClient(ctx, apiKey, gemini.WithModel(cfg.Model), gemini.WithDimensions(cfg.Dimensions))
	case "openai":
		return openai.NewClient(apiKey, openai.WithModel(cfg.Model), openai.WithDimensions(cfg.Dimensions), openai.WithBaseURL(cfg.BaseURL))
	default:
		return cohere.New(logger, apiKey, cohere.WithModel(cfg.Model), cohere.WithBaseURL(cfg.BaseURL))
	}
}

func newEmbeddingService(ctx context.Context, cfg *EmbeddingConfig, logger *zap.Logger) (*embedding.Service, error) {
	backend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return embedding.NewService(backend, embedding.Options{
		Timeout:           cfg.Timeout,
		MaxAttempts:       cfg.MaxRetries + 1,
		RequestsPerSecond: cfg.RequestsPerSecond,
		CacheSize:         cfg.CacheSize,
		MaxLogLength:      cfg.MaxLogLength,
	}, logger)
}

// newEngine returns the configured similarity engine and a function releasing its store.
func newEngine(ctx context.Context, config *Config, logger *zap.Logger) (similarity.Engine, func(), error) {
	if config.Similarity.Mode != "indexed" {
		return similarity.NewDirect(), func() {}, nil
	}

	var (
		store   similarity.Store
		release = func() {}
	)

	switch config.VectorStore.Driver {
	case "pgvector":
		pg, err := pgvector.New(ctx, config.VectorStore.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		store, release = pg, pg.Close
	default:
		store = vectorstore.NewMemory()
	}

	engine, err := similarity.NewIndexed(store, similarity.IndexedOptions{
		Collection: config.Similarity.Collection,
		Reset:      config.Similarity.ResetCollection,
	}, logger)
	if err != nil {
		release()
		return nil, nil, err
	}

	return engine, release, nil
}

func newOrchestrator(ctx context.Context, config *Config, logger *zap.Logger) (*pipeline.Orchestrator, func(), error) {
	service, err := newEmbeddingService(ctx, config.Embedding, logger)
	if err != nil {
		return nil, nil, err
	}

	engine, release, err := newEngine(ctx, config, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := pipeline.Options{
		EmbedSource:        document.Source(config.Analysis.EmbedSource),
		RecommendThreshold: config.Analysis.RecommendThreshold,
		SearchLimit:        config.Similarity.SearchLimit,
	}
	if config.Rank != nil {
		opts.MinimumScore = config.Rank.MinimumScore
		opts.ExcludeFile = config.Rank.ExcludeFile
	}

	orchestrator, err := pipeline.New(service, engine, gap.NewAnalyzer(config.Analysis.TechnicalTerms), opts, logger)
	if err != nil {
		release()
		return nil, nil, err
	}

	return orchestrator, release, nil
}
