package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"steelloop/internal/config"
	"steelloop/internal/orchestrator"
	"steelloop/internal/ports"
)

const defaultHTTPTimeout = 2 * time.Minute

// Generator implements ports.Generator backed by an OpenAI-compatible chat
// completions API. It makes a single attempt per call; retries are left to
// the orchestrator, which sees transient failures as orchestrator.ErrTransient.
type Generator struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Generator = (*Generator)(nil)

// Option customizes the generator.
type Option func(*Generator)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Generator) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// NewGenerator builds a client from configuration.
func NewGenerator(cfg config.GeneratorConfig, opts ...Option) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	g := &Generator{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		model:      strings.TrimSpace(cfg.Model),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("generator: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Generate sends one completion request and returns the model's text.
func (g *Generator) Generate(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, error) {
	if g == nil {
		return "", orchestrator.Permanent(errors.New("generator is nil"))
	}
	if g.apiKey == "" || g.endpoint == "" || g.model == "" {
		return "", orchestrator.Permanent(errors.New("generator misconfigured"))
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: g.model, Messages: messages, MaxTokens: maxTokens})
	if err != nil {
		return "", orchestrator.Permanent(fmt.Errorf("marshal generator payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", orchestrator.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: send generator request: %v", orchestrator.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", classifyStatus(&httpStatusError{StatusCode: resp.StatusCode, Body: string(payload)})
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode generator response: %v", orchestrator.ErrTransient, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%w: generator returned no choices", orchestrator.ErrTransient)
	}
	return decoded.Choices[0].Message.Content, nil
}

// classifyStatus maps rate limits and server errors to transient failures and
// any other 4xx to a permanent one.
func classifyStatus(err *httpStatusError) error {
	if err.StatusCode == http.StatusTooManyRequests || err.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %w", orchestrator.ErrTransient, err)
	}
	return orchestrator.Permanent(err)
}
