package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/service/ui"
)

var (
	memoryAddCategory  string
	memoryImportance   int
	memoryListCategory string
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage durable memories",
}

var memoryAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Record a memory entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			id, err := app.Memory.AddMemory(ctx, core.MemoryEntry{
				Content:    args[0],
				Category:   memoryAddCategory,
				Importance: memoryImportance,
			})
			if err != nil {
				return err
			}
			fmt.Printf("memory %d recorded\n", id)
			return nil
		})
	},
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List memories, most important first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			memories, err := app.Memory.ListMemories(ctx, memoryListCategory)
			if err != nil {
				return err
			}
			if len(memories) == 0 {
				fmt.Println(ui.InfoStyle.Render("no memories yet"))
				return nil
			}
			for _, m := range memories {
				fmt.Printf("%s %s %s\n",
					ui.UsageStyle.Render(fmt.Sprintf("#%d", m.ID)),
					m.Content,
					ui.DescStyle.Render(fmt.Sprintf("[%s, importance %d]", m.Category, m.Importance)),
				)
			}
			return nil
		})
	},
}

var memoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a memory entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid memory id %q", args[0])
		}
		return withApp(cmd, func(ctx context.Context, app *App) error {
			if err := app.Memory.DeleteMemory(ctx, id); err != nil {
				return err
			}
			fmt.Printf("memory %d deleted\n", id)
			return nil
		})
	},
}

func init() {
	memoryAddCmd.Flags().StringVar(&memoryAddCategory, "category", core.CategoryFact, "memory category")
	memoryAddCmd.Flags().IntVar(&memoryImportance, "importance", 5, "importance from 1 to 10")
	memoryListCmd.Flags().StringVar(&memoryListCategory, "category", "", "filter by category")

	memoryCmd.AddCommand(memoryAddCmd, memoryListCmd, memoryDeleteCmd)
	rootCmd.AddCommand(memoryCmd)
}
