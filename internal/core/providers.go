package core

import "context"

// EngineToken is one element of a generation stream. A stream carries
// zero or more token events followed by exactly one terminal event
// (Done set, or Err set).
type EngineToken struct {
	Text string
	Done bool
	Err  error
}

// InferenceEngine is the external text-generation collaborator. The
// returned channel is closed after the terminal event. The engine must
// observe ctx cancellation between tokens so cooperative cancellation
// is bounded by one token's compute time.
type InferenceEngine interface {
	LoadModel(ctx context.Context, model string, contextLength int) error
	Generate(ctx context.Context, prompt []PromptSegment, params SamplingParams) (<-chan EngineToken, error)
	Unload(ctx context.Context) error
}

// Embedder is the external embedding collaborator. Embeddings are
// deterministic for identical input and have a fixed dimension per
// model identifier. Queries and passages are encoded separately
// because E5-style models prefix them differently.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedPassage(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	ModelID() string
}
