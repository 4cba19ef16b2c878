package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sandevgo/recall/internal/service/index"
	"github.com/sandevgo/recall/internal/transport/cli"
	"github.com/sandevgo/recall/pkg/log"
	"github.com/sandevgo/recall/pkg/srv"
)

var chatSessionID int64

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long:  `Opens the interactive chat loop. A new session is created from the first message unless --session continues an existing one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		logger := log.FromCtx(ctx)

		app, cleanup, err := NewApp(ctx)
		if err != nil {
			return err
		}

		if err := app.Coordinator.LoadModel(ctx, app.LLMCfg.Model, app.LLMCfg.ContextLength); err != nil {
			logger.Warn().Err(err).Msg("model warmup failed, continuing anyway")
		}

		readLine, err := cli.NewReadLine(app.Cfg, app.LLMCfg, app.Coordinator, app.Sessions, chatSessionID)
		if err != nil {
			cleanup()
			return err
		}

		// Interrupt handling happens inside the chat loop: at the
		// prompt ^C exits, during generation it cancels the run.
		runCtx, done := context.WithCancel(ctx)
		defer done()

		services := []srv.Service{
			srv.NewCleanup(func() error { cleanup(); return nil }),
			index.NewWorker(app.Index, app.RAGCfg.IndexInterval),
		}
		srv.StartServices(runCtx, services, func(error) { done() })

		go func() {
			defer done()
			if err := readLine.Start(runCtx); err != nil {
				logger.Error().Err(err).Msg("chat loop failed")
			}
		}()

		srv.ShutdownServices(runCtx, services)
		if err := readLine.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to close chat input")
		}

		logger.Info().Msg("recall has been shut down gracefully")
		return nil
	},
}

func init() {
	chatCmd.Flags().Int64Var(&chatSessionID, "session", 0, "continue an existing session id")
	rootCmd.AddCommand(chatCmd)
}
