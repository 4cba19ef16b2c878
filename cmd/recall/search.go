package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandevgo/recall/internal/service/ui"
)

var (
	searchLimit int
	searchText  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search past conversations and memories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			if searchText {
				msgs, err := app.Messages.SearchMessagesByText(ctx, args[0], searchLimit)
				if err != nil {
					return err
				}
				if len(msgs) == 0 {
					fmt.Println(ui.InfoStyle.Render("no matches"))
					return nil
				}
				for _, m := range msgs {
					fmt.Printf("%s %s\n", ui.UsageStyle.Render(fmt.Sprintf("session %d", m.SessionID)), m.Content)
				}
				return nil
			}

			hits, err := app.Index.Search(ctx, args[0], searchLimit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println(ui.InfoStyle.Render("no matches"))
				return nil
			}
			for _, h := range hits {
				fmt.Printf("%s %s %s\n",
					ui.UsageStyle.Render(fmt.Sprintf("%.2f", h.Similarity)),
					h.Content,
					ui.DescStyle.Render(fmt.Sprintf("[%s %d]", h.SourceType, h.SourceID)),
				)
			}
			return nil
		})
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum results")
	searchCmd.Flags().BoolVar(&searchText, "text", false, "substring search instead of semantic")
	rootCmd.AddCommand(searchCmd)
}
