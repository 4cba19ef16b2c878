package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/recall/pkg/log"
)

type RAGConfig struct {
	// Provider selects the embedding backend: "ollama" for a local
	// server, "hash" for the deterministic offline embedder.
	Provider   string `env:"RECALL_EMBEDDING_PROVIDER" envDefault:"ollama"`
	BaseURL    string `env:"RECALL_EMBEDDING_BASE_URL" envDefault:"http://localhost:11434"`
	ModelName  string `env:"RECALL_EMBEDDING_MODEL" envDefault:"intfloat/multilingual-e5-small"`
	Dimensions int    `env:"RECALL_EMBEDDING_DIMENSIONS" envDefault:"384"`

	// Background indexing
	IndexInterval time.Duration `env:"RECALL_INDEX_INTERVAL" envDefault:"30s"`
	IndexBatch    int           `env:"RECALL_INDEX_BATCH" envDefault:"64"`

	// Search
	RelevanceFloor float64 `env:"RECALL_RELEVANCE_FLOOR" envDefault:"0.5"`
}

func NewRAGConfig(ctx context.Context) *RAGConfig {
	c := &RAGConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse RAG config")
	}
	return c
}
