package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/service/persona"
	"github.com/sandevgo/recall/internal/service/ui"
)

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Analyze and inspect the user's style profile",
}

var personaAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Recompute the profile from message history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			traits, err := app.Analyzer.Analyze(ctx)
			if errors.Is(err, core.ErrInsufficientData) {
				fmt.Println(ui.InfoStyle.Render("not enough messages yet, keep chatting"))
				return nil
			}
			if err != nil {
				return err
			}
			printTraits(traits)
			return nil
		})
	},
}

var personaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			traits, err := app.Persona.GetPersona(ctx)
			if err != nil {
				return err
			}
			if traits == nil {
				fmt.Println(ui.InfoStyle.Render("no profile yet, run 'recall persona analyze'"))
				return nil
			}
			printTraits(traits)
			return nil
		})
	},
}

var personaPromptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the system prompt derived from the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App) error {
			traits, err := app.Persona.GetPersona(ctx)
			if err != nil {
				return err
			}
			fmt.Println(persona.BuildPrompt(traits))
			return nil
		})
	},
}

func printTraits(t *core.PersonaTraits) {
	fmt.Println(ui.TitleStyle.Render("User persona"))
	fmt.Printf("  writing style:   %s\n", t.WritingStyle)
	fmt.Printf("  tone:            %s\n", t.Tone)
	fmt.Printf("  language:        %s\n", t.Language)
	fmt.Printf("  emoji usage:     %s\n", t.EmojiUsage)
	fmt.Printf("  punctuation:     %s\n", t.PunctuationStyle)
	fmt.Printf("  response length: %s\n", t.ResponseLength)
	fmt.Printf("  vocabulary:      %s\n", t.VocabularyLevel)
	fmt.Printf("  avg words/msg:   %.1f\n", t.AvgMessageLength)
	if len(t.CommonPhrases) > 0 {
		fmt.Printf("  common phrases:  %s\n", strings.Join(t.CommonPhrases, ", "))
	}
	if len(t.TopicsOfInterest) > 0 {
		fmt.Printf("  topics:          %s\n", strings.Join(t.TopicsOfInterest, ", "))
	}
	fmt.Printf("  analyzed:        %d messages, %s\n", t.MessagesAnalyzed, t.LastUpdated.Format(time.DateTime))
}

func init() {
	personaCmd.AddCommand(personaAnalyzeCmd, personaShowCmd, personaPromptCmd)
	rootCmd.AddCommand(personaCmd)
}
