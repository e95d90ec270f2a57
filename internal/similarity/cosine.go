// Package similarity scores embedding vectors against each other.
package similarity

import (
	"math"

	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/matcherr"
)

// Cosine returns dot(a, b) / (|a| * |b|). Vectors of different length are a
// DimensionMismatchError; a zero-magnitude vector scores 0.
func Cosine(a, b embedding.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, matcherr.NewDimensionMismatchError(len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return Clamp(score), nil
}

// Clamp bounds a score to [-1, 1]. Floating point error can push the ratio slightly outside.
func Clamp(score float64) float64 {
	switch {
	case score > 1:
		return 1
	case score < -1:
		return -1
	default:
		return score
	}
}
