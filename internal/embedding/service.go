package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matcherr"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxAttempts  = 3
	defaultRetryBase    = 500 * time.Millisecond
	defaultRetryMax     = 5 * time.Second
	defaultMaxLogLength = 200
)

// Options tunes the Service. Zero values select defaults.
type Options struct {
	// Timeout bounds a whole Embed call, retries included.
	Timeout time.Duration
	// MaxAttempts is the number of backend calls made for one Embed call.
	MaxAttempts int
	// RetryBase is the first backoff delay, doubled on every retry.
	RetryBase time.Duration
	// RequestsPerSecond limits backend calls; zero disables the limiter.
	RequestsPerSecond float64
	// CacheSize is the number of vectors kept in memory; zero disables the cache.
	CacheSize    int
	MaxLogLength int
}

// Service validates requests and responses around a Backend. It never substitutes a
// zero vector for a failed call: a failure is an EmbeddingServiceError.
type Service struct {
	backend Backend
	opts    Options
	limiter *rate.Limiter
	cache   *lru.Cache[string, Vector]
	logger  *zap.Logger
}

// NewService wraps backend with timeout, retry, rate limiting and caching.
func NewService(backend Backend, opts Options, log *zap.Logger) (*Service, error) {
	if backend == nil {
		return nil, matcherr.NewConfigurationError("embedding.provider", "embedding backend is not configured")
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	s := &Service{
		backend: backend,
		opts:    opts,
		logger:  logger.WithCommonFields(log, backend.Name(), backend.Model()),
	}

	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, Vector](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		s.cache = cache
	}

	return s, nil
}

// Name returns the backend provider name.
func (s *Service) Name() string { return s.backend.Name() }

// Model returns the backend model identifier.
func (s *Service) Model() string { return s.backend.Model() }

// Embed returns one vector per text in input order.
func (s *Service) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, matcherr.NewEmptyInputError("embedding request")
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, matcherr.NewEmptyInputError(fmt.Sprintf("text at index %d", i))
		}
	}

	result := make([]Vector, len(texts))
	missing := make([]int, 0, len(texts))
	for i, text := range texts {
		if vec, ok := s.cached(text); ok {
			result[i] = vec
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		request := make([]string, len(missing))
		for j, idx := range missing {
			request[j] = texts[idx]
		}

		vectors, err := s.embedRemote(ctx, request)
		if err != nil {
			return nil, err
		}

		for j, idx := range missing {
			result[idx] = vectors[j]
		}
	}

	if err := s.validate(result, len(texts)); err != nil {
		return nil, err
	}

	for _, idx := range missing {
		s.store(texts[idx], result[idx])
	}

	return result, nil
}

func (s *Service) embedRemote(ctx context.Context, texts []string) ([]Vector, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	totalRunes := 0
	for _, text := range texts {
		totalRunes += utf8.RuneCountInString(text)
	}

	s.logger.Debug("embedding request",
		zap.Int("texts", len(texts)),
		zap.Int("total_length", totalRunes),
		zap.String("first_text_preview", logger.TruncateForLog(texts[0], s.opts.MaxLogLength)),
	)

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, s.serviceError("rate limiter wait", err)
			}
		}

		vectors, err := s.backend.Embed(ctx, texts)
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, s.serviceError(fmt.Sprintf("got %d vectors for %d texts", len(vectors), len(texts)), nil)
			}
			s.logger.Debug("embedding response", zap.Int("vectors", len(vectors)), zap.Int("attempt", attempt))
			return vectors, nil
		}

		if errors.Is(err, matcherr.ErrConfiguration) {
			return nil, err
		}

		lastErr = err
		if !IsTemporary(err) || attempt == s.opts.MaxAttempts {
			break
		}

		delay := utils.Backoff(s.opts.RetryBase, defaultRetryMax, attempt)
		s.logger.Warn("embedding request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := utils.WaitFor(ctx, delay); err != nil {
			return nil, s.serviceError("waiting for retry", err)
		}
	}

	return nil, s.serviceError("request failed", lastErr)
}

func (s *Service) validate(vectors []Vector, expected int) error {
	if len(vectors) != expected {
		return s.serviceError(fmt.Sprintf("got %d vectors for %d texts", len(vectors), expected), nil)
	}

	dims := len(vectors[0])
	if dims == 0 {
		return s.serviceError("returned an empty vector", nil)
	}

	for i, vec := range vectors {
		if len(vec) != dims {
			return s.serviceError(fmt.Sprintf("vector %d has %d dimensions, expected %d", i, len(vec), dims),
				matcherr.NewDimensionMismatchError(dims, len(vec)))
		}
	}

	return nil
}

func (s *Service) serviceError(message string, cause error) error {
	var svcErr *matcherr.EmbeddingServiceError
	if errors.As(cause, &svcErr) {
		return cause
	}
	return matcherr.NewEmbeddingServiceError(s.backend.Name(), message, cause)
}

func (s *Service) cacheKey(text string) string {
	return s.backend.Model() + "\x00" + text
}

func (s *Service) cached(text string) (Vector, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(s.cacheKey(text))
}

func (s *Service) store(text string, vec Vector) {
	if s.cache == nil || len(vec) == 0 {
		return
	}
	s.cache.Add(s.cacheKey(text), vec)
}
