package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/service/generation"
	"github.com/sandevgo/recall/internal/service/ui"
	"github.com/sandevgo/recall/pkg/log"
)

const sessionTitleLength = 40

// ReadLine is the interactive chat loop. Each submitted line becomes
// one generation run; Ctrl+C during a run cancels the run, Ctrl+C at
// the prompt exits.
type ReadLine struct {
	cfg         *config.AppConfig
	llmCfg      *config.LLMConfig
	coordinator *generation.Coordinator
	sessions    core.SessionsRepository
	sessionID   int64
	rl          *readline.Instance
}

func NewReadLine(
	cfg *config.AppConfig,
	llmCfg *config.LLMConfig,
	coordinator *generation.Coordinator,
	sessions core.SessionsRepository,
	sessionID int64,
) (*ReadLine, error) {
	// Ensure runtime directory exists
	if err := os.MkdirAll(cfg.GetRuntimePath(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.GetRuntimePath(), "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:         cfg,
		llmCfg:      llmCfg,
		coordinator: coordinator,
		sessions:    sessions,
		sessionID:   sessionID,
		rl:          rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("chat started, type 'exit' to quit")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		if err := r.ensureSession(ctx, line); err != nil {
			fmt.Fprintf(r.rl.Stdout(), "%s\n", ui.ErrorStyle.Render(fmt.Sprintf("Error: %v", err)))
			continue
		}

		if err := r.generate(ctx, line); err != nil {
			logger.Error().Err(err).Msg("generation run failed")
			fmt.Fprintf(r.rl.Stdout(), "%s\n", ui.ErrorStyle.Render(fmt.Sprintf("Error: %v", err)))
		}
	}
}

// ensureSession lazily creates a session titled after the opening
// message.
func (r *ReadLine) ensureSession(ctx context.Context, firstLine string) error {
	if r.sessionID != 0 {
		return nil
	}

	title := firstLine
	if runes := []rune(title); len(runes) > sessionTitleLength {
		title = string(runes[:sessionTitleLength])
	}

	id, err := r.sessions.CreateSession(ctx, title)
	if err != nil {
		return err
	}
	r.sessionID = id
	fmt.Fprintf(r.rl.Stdout(), "%s\n", ui.InfoStyle.Render(fmt.Sprintf("session %d created", id)))
	return nil
}

func (r *ReadLine) generate(ctx context.Context, prompt string) error {
	// Ctrl+C during a run cancels just the run, not the chat.
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	events, err := r.coordinator.Start(runCtx, generation.Request{
		SessionID: r.sessionID,
		Prompt:    prompt,
		Params: core.SamplingParams{
			Temperature:   r.llmCfg.Temperature,
			MaxTokens:     r.llmCfg.MaxTokens,
			ContextLength: r.llmCfg.ContextLength,
		},
		Timeout: r.llmCfg.Timeout,
	})
	if err != nil {
		return err
	}

	out := r.rl.Stdout()
	for ev := range events {
		switch ev.Kind {
		case generation.EventToken:
			fmt.Fprint(out, ui.AssistantStyle.Render(ev.Token))
		case generation.EventCompleted:
			fmt.Fprintln(out)
		case generation.EventCancelled:
			fmt.Fprintf(out, "\n%s\n", ui.InfoStyle.Render("[cancelled]"))
		case generation.EventFailed:
			fmt.Fprintf(out, "\n%s\n", ui.ErrorStyle.Render(fmt.Sprintf("[failed: %v]", ev.Err)))
		}
	}
	return nil
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
