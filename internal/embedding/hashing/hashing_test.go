package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	s := 0.0
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestNewEmbedder_DefaultDimension(t *testing.T) {
	e := NewEmbedder(0)
	assert.Equal(t, DefaultDimension, e.Dimension())
	assert.Equal(t, "hashing", e.Name())
}

func TestEmbed_DeterministicAndNormalised(t *testing.T) {
	e := NewEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Paris is the capital of France.")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Paris is the capital of France.")
	require.NoError(t, err)

	require.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-6)
}

func TestEmbed_SimilarTextsScoreHigher(t *testing.T) {
	e := NewEmbedder(256)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "What is the capital of France?")
	related, _ := e.Embed(ctx, "Paris is the capital of France.")
	unrelated, _ := e.Embed(ctx, "Photosynthesis converts light into chemical energy.")

	assert.Greater(t, dot(query, related), dot(query, unrelated))
}

func TestEmbed_StopwordsOnlyIsZeroVector(t *testing.T) {
	e := NewEmbedder(16)
	vec, err := e.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vec)
}

func TestEmbedBatch(t *testing.T) {
	e := NewEmbedder(32)
	ctx := context.Background()

	vecs, err := e.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	single, _ := e.Embed(ctx, "beta")
	assert.Equal(t, single, vecs[1])
}

func TestEmbed_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbedder(8).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
