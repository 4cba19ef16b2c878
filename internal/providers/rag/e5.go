package rag

import (
	"context"
	"fmt"
)

// textEmbedder is the raw embedding transport behind the E5 wrapper.
type textEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// E5Embedder applies the query/passage prefixes that E5-family models
// were trained with. Skipping them noticeably degrades retrieval.
type E5Embedder struct {
	client  textEmbedder
	modelID string
	dims    int
}

func NewE5Embedder(client textEmbedder, modelID string, dims int) *E5Embedder {
	return &E5Embedder{
		client:  client,
		modelID: modelID,
		dims:    dims,
	}
}

func (e *E5Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, "query: "+text)
}

func (e *E5Embedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, "passage: "+text)
}

func (e *E5Embedder) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.client.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != e.dims {
		return nil, fmt.Errorf("model %s returned %d dims, expected %d", e.modelID, len(vec), e.dims)
	}
	return vec, nil
}

func (e *E5Embedder) Dimensions() int { return e.dims }

func (e *E5Embedder) ModelID() string { return e.modelID }
