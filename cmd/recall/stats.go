package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandevgo/recall/internal/service/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			s, err := app.Stats.GetStats(ctx)
			if err != nil {
				return err
			}
			fmt.Println(ui.TitleStyle.Render("Store"))
			fmt.Printf("  sessions:    %d\n", s.TotalSessions)
			fmt.Printf("  messages:    %d (%d user, %d assistant)\n", s.TotalMessages, s.UserMessages, s.AssistantMessages)
			fmt.Printf("  memories:    %d\n", s.TotalMemories)
			fmt.Printf("  characters:  %d (~%d tokens)\n", s.TotalCharacters, s.EstimatedTokens)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
