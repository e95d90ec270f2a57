// Package embeddingtest provides embedding backends for tests.
package embeddingtest

import (
	"context"
	"crypto/sha256"
	"math"
	"sync"

	"github.com/spigell/resume-matcher/internal/embedding"
)

// Response is one scripted backend reply.
type Response struct {
	Vectors []embedding.Vector
	Err     error
}

// Stub replays scripted responses in order. When the script is exhausted it falls back to
// Hash vectors of Dimensions length.
type Stub struct {
	ProviderName string
	ModelName    string
	Dimensions   int

	mu        sync.Mutex
	responses []Response
	calls     [][]string
}

// NewStub creates a stub producing dims-long hash vectors once the script runs out.
func NewStub(dims int, responses ...Response) *Stub {
	return &Stub{ProviderName: "stub", ModelName: "stub-model", Dimensions: dims, responses: responses}
}

// Name implements embedding.Backend.
func (s *Stub) Name() string { return s.ProviderName }

// Model implements embedding.Backend.
func (s *Stub) Model() string { return s.ModelName }

// Embed implements embedding.Provider.
func (s *Stub) Embed(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, append([]string(nil), texts...))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(s.responses) > 0 {
		res := s.responses[0]
		s.responses = s.responses[1:]
		return res.Vectors, res.Err
	}

	vectors := make([]embedding.Vector, len(texts))
	for i, text := range texts {
		vectors[i] = Hash(text, s.Dimensions)
	}
	return vectors, nil
}

// Calls returns the texts of every Embed call made so far.
func (s *Stub) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.calls...)
}

// Hash returns a deterministic unit vector derived from the text hash.
func Hash(text string, dims int) embedding.Vector {
	sum := sha256.Sum256([]byte(text))
	vec := make(embedding.Vector, dims)

	var norm float64
	for i := range vec {
		vec[i] = float32(sum[i%len(sum)])/127.5 - 1.0
		norm += float64(vec[i]) * float64(vec[i])
	}

	if norm == 0 {
		return vec
	}

	magnitude := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= magnitude
	}
	return vec
}

var _ embedding.Backend = (*Stub)(nil)
