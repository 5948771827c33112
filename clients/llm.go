package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bbischke-nelo/airecruiter2-sub000/pipeline"
)

var _ pipeline.Completer = (*LLM)(nil)

// LLM is a pipeline.Completer backed by an OpenAI-compatible chat
// completions endpoint.
type LLM struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
	logger  *slog.Logger
}

// LLMOption configures the LLM client.
type LLMOption func(*LLM)

// WithLLMAPIKey sets the bearer token for completion requests.
func WithLLMAPIKey(key string) LLMOption {
	return func(l *LLM) { l.apiKey = key }
}

// WithLLMModel sets the model name.
func WithLLMModel(model string) LLMOption {
	return func(l *LLM) { l.model = model }
}

// WithLLMHTTPClient overrides the underlying HTTP client.
func WithLLMHTTPClient(c *http.Client) LLMOption {
	return func(l *LLM) { l.httpc = c }
}

// WithLLMLogger sets the logger.
func WithLLMLogger(logger *slog.Logger) LLMOption {
	return func(l *LLM) { l.logger = logger }
}

// NewLLM creates a completion client for the given base URL.
func NewLLM(baseURL string, opts ...LLMOption) *LLM {
	l := &LLM{
		baseURL: baseURL,
		model:   "gpt-4o-mini",
		httpc:   &http.Client{Timeout: 2 * time.Minute},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt as a single user message and returns the
// model's reply.
func (l *LLM) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    l.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("clients: encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		l.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("clients: completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	start := time.Now()
	resp, err := l.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("clients: completion: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("clients: completion: status %d: %s", resp.StatusCode, snippet)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("clients: decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("clients: completion returned no choices")
	}

	l.logger.Debug("completion finished",
		slog.String("model", l.model),
		slog.Duration("elapsed", time.Since(start)),
	)
	return out.Choices[0].Message.Content, nil
}
