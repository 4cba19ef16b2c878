package rag

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	lastText string
	vec      []float32
}

func (r *recordingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	r.lastText = text
	return r.vec, nil
}

func TestE5Embedder_Prefixes(t *testing.T) {
	client := &recordingClient{vec: make([]float32, 4)}
	e := NewE5Embedder(client, "e5-test", 4)

	_, err := e.EmbedQuery(context.Background(), "what is go")
	require.NoError(t, err)
	assert.Equal(t, "query: what is go", client.lastText)

	_, err = e.EmbedPassage(context.Background(), "go is a language")
	require.NoError(t, err)
	assert.Equal(t, "passage: go is a language", client.lastText)
}

func TestE5Embedder_DimensionCheck(t *testing.T) {
	client := &recordingClient{vec: make([]float32, 3)}
	e := NewE5Embedder(client, "e5-test", 4)

	_, err := e.EmbedQuery(context.Background(), "x")
	require.Error(t, err)
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	h := NewHashEmbedder(384)
	ctx := context.Background()

	a, err := h.EmbedPassage(ctx, "hello world")
	require.NoError(t, err)
	b, err := h.EmbedPassage(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := h.EmbedPassage(ctx, "different text")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestHashEmbedder_UnitNorm(t *testing.T) {
	h := NewHashEmbedder(64)

	vec, err := h.EmbedQuery(context.Background(), "normalize me")
	require.NoError(t, err)
	require.Len(t, vec, 64)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}
