package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/matcherr"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b embedding.Vector
		want float64
	}{
		{name: "self", a: embedding.Vector{0.3, -1.2, 4}, b: embedding.Vector{0.3, -1.2, 4}, want: 1},
		{name: "negation", a: embedding.Vector{0.3, -1.2, 4}, b: embedding.Vector{-0.3, 1.2, -4}, want: -1},
		{name: "orthogonal", a: embedding.Vector{1, 0}, b: embedding.Vector{0, 5}, want: 0},
		{name: "scaled", a: embedding.Vector{1, 1}, b: embedding.Vector{3, 3}, want: 1},
		{name: "zero magnitude", a: embedding.Vector{0, 0}, b: embedding.Vector{1, 2}, want: 0},
		{name: "both zero", a: embedding.Vector{0, 0}, b: embedding.Vector{0, 0}, want: 0},
		{name: "partial", a: embedding.Vector{1, 0}, b: embedding.Vector{1, 1}, want: 1 / math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.LessOrEqual(t, got, 1.0)
			assert.GreaterOrEqual(t, got, -1.0)
		})
	}
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine(embedding.Vector{1, 2, 3}, embedding.Vector{1, 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, matcherr.ErrDimensionMismatch)

	var mismatch *matcherr.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3, mismatch.Left)
	assert.Equal(t, 2, mismatch.Right)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(1.0000001))
	assert.Equal(t, -1.0, Clamp(-1.2))
	assert.Equal(t, 0.5, Clamp(0.5))
}
