// Package openai provides an embedding backend on top of the official OpenAI Go SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/matcherr"
)

const (
	providerName = "openai"
	defaultModel = openaisdk.EmbeddingModelTextEmbedding3Small
)

type embeddingsAPI interface {
	New(ctx context.Context, body openaisdk.EmbeddingNewParams, opts ...option.RequestOption) (*openaisdk.CreateEmbeddingResponse, error)
}

// Client calls the OpenAI embeddings API.
type Client struct {
	embeddings embeddingsAPI
	model      string
	dimensions int
}

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	model      string
	dimensions int
	baseURL    string
}

// WithModel sets the embedding model name. Empty keeps text-embedding-3-small.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

// WithDimensions requests a shortened embedding. Zero keeps the model default.
func WithDimensions(dim int) Option {
	return func(c *clientConfig) {
		c.dimensions = dim
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = strings.TrimSpace(url)
	}
}

// NewClient creates an OpenAI embeddings client. SDK retries are disabled; the embedding
// service owns the retry policy.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, matcherr.NewConfigurationError("openai api key", "openai api key is required")
	}

	cfg := clientConfig{model: string(defaultModel)}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.dimensions < 0 {
		return nil, matcherr.NewConfigurationError("embedding.dimensions",
			fmt.Sprintf("invalid embedding dimensions %d", cfg.dimensions))
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.baseURL))
	}

	sdk := openaisdk.NewClient(requestOpts...)

	return &Client{
		embeddings: &sdk.Embeddings,
		model:      cfg.model,
		dimensions: cfg.dimensions,
	}, nil
}

// Name implements embedding.Backend.
func (c *Client) Name() string { return providerName }

// Model implements embedding.Backend.
func (c *Client) Model() string { return c.model }

// Embed implements embedding.Provider.
func (c *Client) Embed(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openaisdk.EmbeddingModel(c.model),
	}
	if c.dimensions > 0 {
		params.Dimensions = param.NewOpt(int64(c.dimensions))
	}

	resp, err := c.embeddings.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([]embedding.Vector, len(data))
	for i, item := range data {
		vec := make(embedding.Vector, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	return vectors, nil
}

func classify(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized {
			return matcherr.NewConfigurationError("openai api key", fmt.Sprintf("openai rejected credentials: %v", err))
		}
		if embedding.IsTemporaryStatus(apiErr.StatusCode) {
			return embedding.Temporary(fmt.Errorf("openai embedding: %w", err))
		}
	}
	return fmt.Errorf("openai embedding: %w", err)
}

var _ embedding.Backend = (*Client)(nil)
