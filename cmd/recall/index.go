package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/service/ui"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the semantic index",
}

var indexRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Index everything that has no embedding yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			n, err := app.Index.IndexAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d items\n", n)
			return nil
		})
	},
}

var indexResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all embeddings so the next run re-indexes from scratch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			if err := app.Embeddings.DeleteAllEmbeddings(ctx); err != nil {
				return err
			}
			fmt.Println("embeddings cleared")
			return nil
		})
	},
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			stats, err := app.Index.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Println(ui.TitleStyle.Render("Semantic index"))
			fmt.Printf("  model:      %s\n", stats.Model)
			fmt.Printf("  dimension:  %d\n", stats.Dimension)
			fmt.Printf("  embeddings: %d (%d messages, %d memories)\n",
				stats.TotalEmbeddings,
				stats.ByType[core.SourceMessage],
				stats.ByType[core.SourceMemory],
			)
			return nil
		})
	},
}

func init() {
	indexCmd.AddCommand(indexRunCmd, indexResetCmd, indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}
