package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/recall/pkg/log"
)

type PersonaConfig struct {
	// MinMessages is the analysis threshold; below it the analyzer
	// refuses to produce a profile.
	MinMessages int `env:"RECALL_PERSONA_MIN_MESSAGES" envDefault:"20"`
	// SampleLimit caps how many recent user messages one run reads.
	SampleLimit int `env:"RECALL_PERSONA_SAMPLE_LIMIT" envDefault:"500"`
}

func NewPersonaConfig(ctx context.Context) *PersonaConfig {
	c := &PersonaConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Persona config")
	}
	return c
}
