package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export conversations as fine-tuning datasets",
}

var exportPairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Export instruction/response pairs as JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			pairs, err := app.Export.ExportPairs(ctx)
			if err != nil {
				return err
			}
			path := exportOutput
			if path == "" {
				path = filepath.Join(app.Cfg.GetExportPath(), "pairs.jsonl")
			}
			if err := writeJSONL(path, len(pairs), func(i int) any { return pairs[i] }); err != nil {
				return err
			}
			fmt.Printf("exported %d pairs to %s\n", len(pairs), path)
			return nil
		})
	},
}

var exportConversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Export multi-turn conversations as JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			convs, err := app.Export.ExportConversations(ctx)
			if err != nil {
				return err
			}
			path := exportOutput
			if path == "" {
				path = filepath.Join(app.Cfg.GetExportPath(), "conversations.jsonl")
			}
			if err := writeJSONL(path, len(convs), func(i int) any { return convs[i] }); err != nil {
				return err
			}
			fmt.Printf("exported %d conversations to %s\n", len(convs), path)
			return nil
		})
	},
}

var exportDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Export a full snapshot of sessions, memories and persona",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			dump, err := app.Export.ExportDump(ctx)
			if err != nil {
				return err
			}
			path := exportOutput
			if path == "" {
				path = filepath.Join(app.Cfg.GetExportPath(), "dump.json")
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create export directory: %w", err)
			}
			data, err := json.MarshalIndent(dump, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode dump: %w", err)
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("failed to write dump: %w", err)
			}
			fmt.Printf("exported %d sessions, %d memories to %s\n", len(dump.Sessions), len(dump.Memories), path)
			return nil
		})
	},
}

func writeJSONL(path string, n int, record func(int) any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	enc := json.NewEncoder(f)
	for i := 0; i < n; i++ {
		if err := enc.Encode(record(i)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return f.Close()
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportOutput, "output", "", "output file path")
	exportCmd.AddCommand(exportPairsCmd, exportConversationsCmd, exportDumpCmd)
	rootCmd.AddCommand(exportCmd)
}
