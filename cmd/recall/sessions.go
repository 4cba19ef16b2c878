package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandevgo/recall/internal/service/ui"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently active first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			sessions, err := app.Sessions.ListSessions(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println(ui.InfoStyle.Render("no sessions yet"))
				return nil
			}

			for _, s := range sessions {
				fmt.Printf("%s %s %s\n",
					ui.UsageStyle.Render(fmt.Sprintf("#%d", s.ID)),
					ui.TitleStyle.Render(s.Title),
					ui.DescStyle.Render(fmt.Sprintf("(%d messages, %s)", s.MessageCount, s.UpdatedAt.Format(time.DateTime))),
				)
				if s.LastMessagePreview != "" {
					fmt.Printf("   %s\n", ui.DescStyle.Render(s.LastMessagePreview))
				}
			}
			return nil
		})
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q", args[0])
		}
		return withApp(cmd, func(ctx context.Context, app *App) error {
			session, err := app.Sessions.GetSession(ctx, id)
			if err != nil {
				return err
			}
			fmt.Println(ui.TitleStyle.Render(session.Title))

			msgs, err := app.Messages.GetRecentMessages(ctx, id, session.MessageCount)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				who := ui.AssistantStyle.Render("assistant")
				if m.IsUser {
					who = ui.UsageStyle.Render("user")
				}
				fmt.Printf("[%s] %s\n", who, m.Content)
			}
			return nil
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session and all its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q", args[0])
		}
		return withApp(cmd, func(ctx context.Context, app *App) error {
			if err := app.Sessions.DeleteSession(ctx, id); err != nil {
				return err
			}
			fmt.Printf("session %d deleted\n", id)
			return nil
		})
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
