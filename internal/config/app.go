package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/recall/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"RECALL_RUNTIME_PATH" envDefault:".recall"`

	// Context Assembly
	ContextTokenBudget int  `env:"RECALL_CONTEXT_TOKEN_BUDGET" envDefault:"2048"`
	RecentTurns        int  `env:"RECALL_RECENT_TURNS" envDefault:"10"`
	RetrievalLimit     int  `env:"RECALL_RETRIEVAL_LIMIT" envDefault:"5"`
	TopMemories        int  `env:"RECALL_TOP_MEMORIES" envDefault:"5"`
	RetrievalEnabled   bool `env:"RECALL_RETRIEVAL_ENABLED" envDefault:"true"`
	PersonaEnabled     bool `env:"RECALL_PERSONA_ENABLED" envDefault:"true"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	if filepath.IsAbs(c.RuntimePath) {
		return c.RuntimePath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, c.RuntimePath)
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.GetRuntimePath(), "recall.db")
}

func (c AppConfig) GetExportPath() string {
	return filepath.Join(c.GetRuntimePath(), "export")
}
