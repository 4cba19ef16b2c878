package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/providers/llm"
	"github.com/sandevgo/recall/internal/providers/rag"
	"github.com/sandevgo/recall/internal/service/assembler"
	"github.com/sandevgo/recall/internal/service/generation"
	"github.com/sandevgo/recall/internal/service/index"
	"github.com/sandevgo/recall/internal/service/persona"
	"github.com/sandevgo/recall/internal/storage/sqlite"
	"github.com/sandevgo/recall/pkg/log"
)

// App wires every service of the engine together. Subcommands build it
// once and use the parts they need.
type App struct {
	Cfg    *config.AppConfig
	LLMCfg *config.LLMConfig
	RAGCfg *config.RAGConfig

	DB         *sql.DB
	Sessions   *sqlite.SessionsRepo
	Messages   *sqlite.MessagesRepo
	Memory     *sqlite.MemoryRepo
	Persona    *sqlite.PersonaRepo
	Embeddings *sqlite.EmbeddingsRepo
	Export     *sqlite.ExportRepo
	Stats      *sqlite.StatsRepo

	Index       *index.Service
	Analyzer    *persona.Analyzer
	Assembler   *assembler.Assembler
	Engine      *llm.Ollama
	Coordinator *generation.Coordinator
}

func NewApp(ctx context.Context) (*App, func(), error) {
	logger := log.FromCtx(ctx)

	if err := initEnv(ctx); err != nil {
		return nil, nil, err
	}

	appCfg := config.NewAppConfig(ctx)
	llmCfg := config.NewLLMConfig(ctx)
	ragCfg := config.NewRAGConfig(ctx)
	personaCfg := config.NewPersonaConfig(ctx)

	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}

	app := &App{
		Cfg:        appCfg,
		LLMCfg:     llmCfg,
		RAGCfg:     ragCfg,
		DB:         db,
		Sessions:   sqlite.NewSessionsRepo(db),
		Messages:   sqlite.NewMessagesRepo(db),
		Memory:     sqlite.NewMemoryRepo(db),
		Persona:    sqlite.NewPersonaRepo(db),
		Embeddings: sqlite.NewEmbeddingsRepo(db),
		Export:     sqlite.NewExportRepo(db),
		Stats:      sqlite.NewStatsRepo(db),
	}

	embedder := newEmbedder(ragCfg)

	app.Index, err = index.NewService(embedder, app.Embeddings, app.Messages, app.Memory, ragCfg.IndexBatch)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := app.Index.Rebuild(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	app.Analyzer = persona.NewAnalyzer(app.Messages, app.Persona, personaCfg.MinMessages, personaCfg.SampleLimit)

	app.Assembler = assembler.New(app.Persona, app.Index, app.Memory, app.Messages, assembler.Config{
		TokenBudget:      appCfg.ContextTokenBudget,
		RecentTurns:      appCfg.RecentTurns,
		RetrievalLimit:   appCfg.RetrievalLimit,
		TopMemories:      appCfg.TopMemories,
		RelevanceFloor:   ragCfg.RelevanceFloor,
		RetrievalEnabled: appCfg.RetrievalEnabled,
		PersonaEnabled:   appCfg.PersonaEnabled,
	})

	app.Engine = llm.NewOllama(llmCfg.BaseURL, llmCfg.Model, llmCfg.Timeout)
	app.Coordinator = generation.NewCoordinator(app.Engine, app.Assembler, app.Messages)

	return app, cleanup, nil
}

// withApp is the shared scaffold for one-shot subcommands.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	ctx, flushLog := setupLogger(cmd.Context())
	defer flushLog()

	app, cleanup, err := NewApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(ctx, app)
}

func newEmbedder(cfg *config.RAGConfig) core.Embedder {
	if cfg.Provider == "hash" {
		return rag.NewHashEmbedder(cfg.Dimensions)
	}
	client := rag.NewOllamaClient(cfg.BaseURL, cfg.ModelName)
	return rag.NewE5Embedder(client, cfg.ModelName, cfg.Dimensions)
}

func initEnv(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(config.GetRuntimePath(), ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
