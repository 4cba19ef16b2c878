package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/recall/pkg/log"
)

type LLMConfig struct {
	BaseURL       string        `env:"RECALL_LLM_BASE_URL" envDefault:"http://localhost:11434"`
	Model         string        `env:"RECALL_LLM_MODEL" envDefault:"qwen2.5:3b"`
	Temperature   float64       `env:"RECALL_LLM_TEMPERATURE" envDefault:"0.7"`
	MaxTokens     int           `env:"RECALL_LLM_MAX_TOKENS" envDefault:"1024"`
	ContextLength int           `env:"RECALL_LLM_CONTEXT_LENGTH" envDefault:"4096"`
	Timeout       time.Duration `env:"RECALL_LLM_TIMEOUT" envDefault:"5m"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	return c
}
