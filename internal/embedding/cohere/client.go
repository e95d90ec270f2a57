// Package cohere provides an embedding backend for the Cohere embed API.
package cohere

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matcherr"
)

const (
	providerName     = "cohere"
	apiURL           = "https://api.cohere.ai/v1"
	defaultModel     = "embed-english-v3.0"
	defaultInputType = "search_document"
	userAgent        = "spigell/resume-matcher"
	contentType      = "application/json"
	contentEncoding  = "gzip"
	// Cohere refuses larger batches.
	maxBatch = 96
	// Error bodies are cut to this length before they reach logs and errors.
	maxErrorBody = 512
)

type Client struct {
	token      string
	model      string
	inputType  string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// Option configures the Client.
type Option func(*Client)

// WithModel sets the embedding model name. Empty keeps embed-english-v3.0.
func WithModel(model string) Option {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url = strings.TrimRight(strings.TrimSpace(url), "/"); url != "" {
			c.APIURL = url
		}
	}
}

// WithInputType sets the Cohere input_type. Empty keeps search_document.
func WithInputType(inputType string) Option {
	return func(c *Client) {
		if inputType = strings.TrimSpace(inputType); inputType != "" {
			c.inputType = inputType
		}
	}
}

func New(log *zap.Logger, token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, matcherr.NewConfigurationError("cohere api key", "COHERE_API_KEY is not set")
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		token:     token,
		model:     defaultModel,
		inputType: defaultInputType,
		APIURL:    apiURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.WithCommonFields(log, providerName, c.model)

	return c, nil
}

// Name implements embedding.Backend.
func (c *Client) Name() string { return providerName }

// Model implements embedding.Backend.
func (c *Client) Model() string { return c.model }

type embedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	ID         string      `json:"id"`
	Embeddings [][]float32 `json:"embeddings"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Embed implements embedding.Provider. Requests larger than the API batch limit are split and
// the results concatenated in order.
func (c *Client) Embed(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	vectors := make([]embedding.Vector, 0, len(texts))

	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	payload, err := json.Marshal(embedRequest{
		Model:     c.model,
		Texts:     texts,
		InputType: c.inputType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+"/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, data)
	}

	var response embedResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}

	c.logger.Debug("got response from Cohere", zap.String("id", response.ID), zap.Int("embeddings", len(response.Embeddings)))

	vectors := make([]embedding.Vector, len(response.Embeddings))
	for i, values := range response.Embeddings {
		vectors[i] = values
	}

	return vectors, nil
}

func (c *Client) statusError(resp *http.Response, body []byte) error {
	message := strings.TrimSpace(string(body))
	var decoded errorResponse
	if json.Unmarshal(body, &decoded) == nil && decoded.Message != "" {
		message = decoded.Message
	}
	message = logger.TruncateForLog(message, maxErrorBody)

	if resp.StatusCode == http.StatusUnauthorized {
		return matcherr.NewConfigurationError("cohere api key", fmt.Sprintf("cohere rejected credentials: %s", message))
	}

	err := fmt.Errorf("bad status: %s: %s", resp.Status, message)
	if embedding.IsTemporaryStatus(resp.StatusCode) {
		return embedding.Temporary(err)
	}
	return err
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// Transport failures are worth another attempt unless the caller gave up.
		if req.Context().Err() != nil {
			return nil, err
		}
		return nil, embedding.Temporary(err)
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}

var _ embedding.Backend = (*Client)(nil)
