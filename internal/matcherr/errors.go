// Package matcherr provides the error taxonomy shared by the matching pipeline.
package matcherr

import (
	"errors"
	"fmt"
)

// Kind names an error class as reported at the boundary.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindNormalization     Kind = "normalization"
	KindEmbeddingService  Kind = "embedding_service"
	KindDimensionMismatch Kind = "dimension_mismatch"
	KindEmptyInput        Kind = "empty_input"
	KindUnknown           Kind = "unknown"
)

// ErrConfiguration is the sentinel for missing credentials or endpoints.
var ErrConfiguration = &ConfigurationError{}

// ConfigurationError is fatal and is never retried.
type ConfigurationError struct {
	Setting string
	Message string
}

// NewConfigurationError creates a ConfigurationError for the given setting.
func NewConfigurationError(setting, message string) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Message: message}
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Setting != "" {
		return e.Setting + " is not configured"
	}
	return "configuration error"
}

// Is implements the error interface for error comparison.
func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)
	return ok
}

// ErrNormalization is the sentinel for malformed text input.
var ErrNormalization = &NormalizationError{}

// NormalizationError reports input that cannot be normalized. The caller may retry with
// cleaned input.
type NormalizationError struct {
	Message string
}

// NewNormalizationError creates a NormalizationError with a custom message.
func NewNormalizationError(message string) *NormalizationError {
	return &NormalizationError{Message: message}
}

func (e *NormalizationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "malformed input text"
}

// Is implements the error interface for error comparison.
func (e *NormalizationError) Is(target error) bool {
	_, ok := target.(*NormalizationError)
	return ok
}

// ErrEmbeddingService is the sentinel for remote embedding failures.
var ErrEmbeddingService = &EmbeddingServiceError{}

// EmbeddingServiceError covers remote errors, timeouts and malformed responses.
type EmbeddingServiceError struct {
	Provider string
	Message  string
	Err      error
}

// NewEmbeddingServiceError wraps cause with the provider name.
func NewEmbeddingServiceError(provider, message string, cause error) *EmbeddingServiceError {
	return &EmbeddingServiceError{Provider: provider, Message: message, Err: cause}
}

func (e *EmbeddingServiceError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "embedding service failed"
	}
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *EmbeddingServiceError) Is(target error) bool {
	_, ok := target.(*EmbeddingServiceError)
	return ok
}

// ErrDimensionMismatch is the sentinel for vectors of different lengths.
var ErrDimensionMismatch = &DimensionMismatchError{}

// DimensionMismatchError is a programmer or data error and fails the request.
type DimensionMismatchError struct {
	Left  int
	Right int
}

// NewDimensionMismatchError creates a DimensionMismatchError for the two lengths.
func NewDimensionMismatchError(left, right int) *DimensionMismatchError {
	return &DimensionMismatchError{Left: left, Right: right}
}

func (e *DimensionMismatchError) Error() string {
	if e.Left == 0 && e.Right == 0 {
		return "vector dimension mismatch"
	}
	return fmt.Sprintf("vector dimension mismatch: %d != %d", e.Left, e.Right)
}

// Is implements the error interface for error comparison.
func (e *DimensionMismatchError) Is(target error) bool {
	_, ok := target.(*DimensionMismatchError)
	return ok
}

// ErrEmptyInput is the sentinel for empty texts rejected before embedding.
var ErrEmptyInput = &EmptyInputError{}

// EmptyInputError is returned when a text is empty after normalization.
type EmptyInputError struct {
	Field string
}

// NewEmptyInputError creates an EmptyInputError for the named input.
func NewEmptyInputError(field string) *EmptyInputError {
	return &EmptyInputError{Field: field}
}

func (e *EmptyInputError) Error() string {
	if e.Field != "" {
		return e.Field + " is empty"
	}
	return "input is empty"
}

// Is implements the error interface for error comparison.
func (e *EmptyInputError) Is(target error) bool {
	_, ok := target.(*EmptyInputError)
	return ok
}

// KindOf returns the taxonomy kind of err, looking through wrapping.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNormalization):
		return KindNormalization
	case errors.Is(err, ErrEmbeddingService):
		return KindEmbeddingService
	case errors.Is(err, ErrDimensionMismatch):
		return KindDimensionMismatch
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	default:
		return KindUnknown
	}
}
