// Package embedding turns normalized text into dense vectors through a remote service.
package embedding

import (
	"context"
	"errors"
)

// Vector is a dense embedding. All vectors compared to one another must share a length.
type Vector []float32

// Provider returns one vector per input text, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([]Vector, error)
}

// Backend is a single remote embedding service.
type Backend interface {
	Provider
	// Name is the provider name used in logs and errors.
	Name() string
	// Model is the embedding model identifier.
	Model() string
}

// TemporaryError marks a backend failure that may succeed on retry.
type TemporaryError struct {
	Err error
}

// Temporary wraps err as retryable. A nil err stays nil.
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return &TemporaryError{Err: err}
}

func (e *TemporaryError) Error() string { return e.Err.Error() }

func (e *TemporaryError) Unwrap() error { return e.Err }

// Temporary reports that the failure is retryable.
func (e *TemporaryError) Temporary() bool { return true }

// IsTemporary reports whether err is marked as retryable anywhere in its chain.
func IsTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// IsTemporaryStatus reports whether an HTTP status code is worth retrying.
func IsTemporaryStatus(code int) bool {
	return code == 429 || code >= 500
}
