// Package gemini provides an embedding backend on top of the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/matcherr"
)

const (
	providerName    = "gemini"
	defaultModel    = "gemini-embedding-001"
	defaultTaskType = "SEMANTIC_SIMILARITY"
)

type embedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Client calls the Gemini embeddings API.
type Client struct {
	models     embedder
	model      string
	dimensions int
	taskType   string
}

// Option configures the Client.
type Option func(*Client)

// WithModel sets the embedding model name. Empty keeps the default.
func WithModel(model string) Option {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

// WithDimensions requests a reduced output dimensionality. Zero keeps the model default.
func WithDimensions(dim int) Option {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// NewClient creates a Gemini embeddings client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, matcherr.NewConfigurationError("gemini api key", "gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, opts...)
}

func newClient(models embedder, opts ...Option) (*Client, error) {
	c := &Client{
		models:   models,
		model:    defaultModel,
		taskType: defaultTaskType,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dimensions < 0 || c.dimensions > math.MaxInt32 {
		return nil, matcherr.NewConfigurationError("embedding.dimensions",
			fmt.Sprintf("invalid embedding dimensions %d", c.dimensions))
	}

	return c, nil
}

// Name implements embedding.Backend.
func (c *Client) Name() string { return providerName }

// Model implements embedding.Backend.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Embed implements embedding.Provider.
func (c *Client) Embed(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	if c == nil || c.models == nil {
		return nil, errors.New("gemini client is not initialized")
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: c.taskType}
	if c.dimensions > 0 {
		//nolint:gosec // bounded by math.MaxInt32 in newClient
		dim := int32(c.dimensions)
		cfg.OutputDimensionality = &dim
	}

	resp, err := c.models.EmbedContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil {
		return nil, errors.New("gemini api returned empty response")
	}

	vectors := make([]embedding.Vector, 0, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini api returned nil embedding at index %d", i)
		}
		vec := make(embedding.Vector, len(emb.Values))
		copy(vec, emb.Values)
		vectors = append(vectors, vec)
	}

	return vectors, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return matcherr.NewConfigurationError("gemini api key", fmt.Sprintf("gemini rejected credentials: %v", err))
		}
		if embedding.IsTemporaryStatus(apiErr.Code) {
			return embedding.Temporary(fmt.Errorf("embed content: %w", err))
		}
	}
	return fmt.Errorf("embed content: %w", err)
}

var _ embedding.Backend = (*Client)(nil)
