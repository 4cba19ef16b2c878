package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/retry"
)

// OllamaClient fetches embeddings from a local Ollama server.
type OllamaClient struct {
	client  *http.Client
	baseURL string
	model   string
	retrier *retry.Retrier
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: baseURL,
		model:   model,
		retrier: retry.NewDefaultRetrier(),
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	data, err := json.Marshal(embeddingRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var vec []float32
	err = c.retrier.Do(ctx, func() error {
		vec, err = c.embedOnce(ctx, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (c *OllamaClient) embedOnce(ctx context.Context, body []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &core.EngineError{Engine: "ollama-embeddings", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, &core.EngineError{Engine: "ollama-embeddings", Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &core.EngineError{Engine: "ollama-embeddings", Err: fmt.Errorf("decode: %w", err)}
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
