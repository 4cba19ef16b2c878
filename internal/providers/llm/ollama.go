package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// Ollama streams completions from a local Ollama server over its native
// chat API.
type Ollama struct {
	baseProvider
	contextLength int
}

func NewOllama(baseURL, model string, timeout time.Duration) *Ollama {
	return &Ollama{
		baseProvider: newBaseProvider(baseURL, model, timeout),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatChunk struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// LoadModel warms the model with an empty request so the first real
// generation does not pay the load latency.
func (o *Ollama) LoadModel(ctx context.Context, model string, contextLength int) error {
	o.model = model
	o.contextLength = contextLength

	resp, err := o.doRequest(ctx, http.MethodPost, "/api/generate", map[string]any{
		"model":   model,
		"options": map[string]any{"num_ctx": contextLength},
	})
	if err != nil {
		return &core.EngineError{Engine: "ollama", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &core.EngineError{Engine: "ollama", Err: fmt.Errorf("load returned status %d", resp.StatusCode)}
	}

	log.FromCtx(ctx).Info().Str("model", model).Int("num_ctx", contextLength).Msg("model loaded")
	return nil
}

func (o *Ollama) Generate(ctx context.Context, prompt []core.PromptSegment, params core.SamplingParams) (<-chan core.EngineToken, error) {
	messages := make([]chatMessage, 0, len(prompt))
	for _, seg := range prompt {
		role := seg.Role
		// The chat API has no dedicated context role; retrieved
		// context rides along as a system message.
		if role == core.RoleContext {
			role = core.RoleSystem
		}
		messages = append(messages, chatMessage{Role: role, Content: seg.Content})
	}

	options := map[string]any{
		"temperature": params.Temperature,
	}
	if params.MaxTokens > 0 {
		options["num_predict"] = params.MaxTokens
	}
	if params.ContextLength > 0 {
		options["num_ctx"] = params.ContextLength
	}

	resp, err := o.doRequest(ctx, http.MethodPost, "/api/chat", chatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   true,
		Options:  options,
	})
	if err != nil {
		return nil, &core.EngineError{Engine: "ollama", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &core.EngineError{Engine: "ollama", Err: fmt.Errorf("chat returned status %d: %s", resp.StatusCode, body)}
	}

	out := make(chan core.EngineToken)
	go o.stream(ctx, resp.Body, out)
	return out, nil
}

func (o *Ollama) stream(ctx context.Context, body io.ReadCloser, out chan<- core.EngineToken) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			o.emit(ctx, out, core.EngineToken{Err: &core.EngineError{Engine: "ollama", Err: fmt.Errorf("decode chunk: %w", err)}})
			return
		}
		if chunk.Error != "" {
			o.emit(ctx, out, core.EngineToken{Err: &core.EngineError{Engine: "ollama", Err: fmt.Errorf("%s", chunk.Error)}})
			return
		}

		if chunk.Message.Content != "" {
			if !o.emit(ctx, out, core.EngineToken{Text: chunk.Message.Content}) {
				return
			}
		}
		if chunk.Done {
			o.emit(ctx, out, core.EngineToken{Done: true})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		// A cancelled ctx surfaces here as a closed body; report it
		// as the context error so callers can tell apart.
		if ctx.Err() != nil {
			o.emit(ctx, out, core.EngineToken{Err: ctx.Err()})
			return
		}
		o.emit(ctx, out, core.EngineToken{Err: &core.EngineError{Engine: "ollama", Err: err}})
		return
	}

	// Stream ended without a done marker.
	o.emit(ctx, out, core.EngineToken{Done: true})
}

func (o *Ollama) emit(ctx context.Context, out chan<- core.EngineToken, tok core.EngineToken) bool {
	select {
	case out <- tok:
		return true
	case <-ctx.Done():
		return false
	}
}

// Unload asks the server to evict the model immediately.
func (o *Ollama) Unload(ctx context.Context) error {
	resp, err := o.doRequest(ctx, http.MethodPost, "/api/generate", map[string]any{
		"model":      o.model,
		"keep_alive": 0,
	})
	if err != nil {
		return &core.EngineError{Engine: "ollama", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}
