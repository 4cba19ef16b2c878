package rag

import (
	"context"
	"hash/fnv"
	"math"
)

// HashEmbedder is a deterministic offline embedder. Identical text
// always maps to the same unit vector, so it is usable for tests and
// for running without an embedding server, but carries no semantics.
type HashEmbedder struct {
	dims int
}

func NewHashEmbedder(dims int) *HashEmbedder {
	return &HashEmbedder{dims: dims}
}

func (h *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return h.embed(text), nil
}

func (h *HashEmbedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return h.embed(text), nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	hasher := fnv.New64a()
	hasher.Write([]byte(text))
	state := hasher.Sum64()

	vec := make([]float32, h.dims)
	var norm float64
	for i := range vec {
		// Linear congruential step per component.
		state = state*6364136223846793005 + 1442695040888963407
		v := float64(int64(state>>11))/float64(1<<52) - 1.0
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (h *HashEmbedder) Dimensions() int { return h.dims }

func (h *HashEmbedder) ModelID() string { return "hash-v1" }
