package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
)

// OllamaConfig configures the generation and embedding client.
type OllamaConfig struct {
	// BaseURL of the Ollama server, e.g. "http://localhost:11434".
	BaseURL string

	// GenerateModel is used for chat completions (summaries, answers).
	GenerateModel string

	// EmbedModel is used for embedding vectors.
	EmbedModel string

	// Timeout for a single call. Defaults to 2 minutes.
	Timeout time.Duration
}

// OllamaClient implements Generator and Embedder against a local
// Ollama server.
type OllamaClient struct {
	config     OllamaConfig
	httpClient *http.Client
}

// NewOllamaClient creates a new generation/embedding client.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &OllamaClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string             `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool               `json:"stream"`
	Options  map[string]any     `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error"`
}

// Generate sends a chat completion request and returns the assistant text.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	chatReq := ollamaChatRequest{
		Model:  c.config.GenerateModel,
		Stream: false,
	}
	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, ollamaChatMessage{Role: "system", Content: req.System})
	}
	chatReq.Messages = append(chatReq.Messages, ollamaChatMessage{Role: "user", Content: req.Prompt})

	opts := map[string]any{}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(opts) > 0 {
		chatReq.Options = opts
	}

	respBody, err := c.post(ctx, "/api/chat", chatReq)
	if err != nil {
		return "", err
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", qnerrors.NewPipelineError(qnerrors.ErrParseError, "", fmt.Sprintf("parse chat response: %v", err), err)
	}
	if parsed.Error != "" {
		return "", qnerrors.NewPipelineError(qnerrors.ErrModelUnavailable, "", fmt.Sprintf("generation backend: %s", parsed.Error), nil)
	}
	return parsed.Message.Content, nil
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error"`
}

// Embed computes an embedding vector for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	respBody, err := c.post(ctx, "/api/embeddings", ollamaEmbedRequest{
		Model:  c.config.EmbedModel,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}

	var parsed ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, qnerrors.NewPipelineError(qnerrors.ErrParseError, "", fmt.Sprintf("parse embedding response: %v", err), err)
	}
	if parsed.Error != "" {
		return nil, qnerrors.NewPipelineError(qnerrors.ErrModelUnavailable, "", fmt.Sprintf("embedding backend: %s", parsed.Error), nil)
	}
	if len(parsed.Embedding) == 0 {
		return nil, qnerrors.NewPipelineError(qnerrors.ErrParseError, "", "embedding backend returned empty vector", nil)
	}
	return parsed.Embedding, nil
}

// HealthCheck verifies the Ollama server is reachable.
func (c *OllamaClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generation backend unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *OllamaClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, qnerrors.NewPipelineError(qnerrors.ErrTimeout, "", "model call timeout", err)
		}
		return nil, qnerrors.NewPipelineError(qnerrors.ErrModelUnavailable, "", fmt.Sprintf("model backend: %v", err), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, qnerrors.NewPipelineError(qnerrors.ErrModelUnavailable, "",
			fmt.Sprintf("model backend HTTP %d: %s", resp.StatusCode, respBody), nil)
	}
	return respBody, nil
}
