// Package llm calls the text-generation API (chat completions).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/studyping/studyping/internal/domain"
)

const defaultTimeout = 30 * time.Second

// ErrMissingAPIKey is returned when the client has no credential configured.
var ErrMissingAPIKey = errors.New("llm: api key is required")

// Config holds client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is a chat-completions API client.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a text-generation client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Configured reports whether the client has a credential. Callers check
// this before starting a cycle so a missing key fails fast instead of
// mid-pipeline.
func (c *Client) Configured() bool {
	return c.config.APIKey != ""
}

// GenerateInput bounds a single generation request.
type GenerateInput struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Usage reports upstream token accounting for one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one prompt and returns the generated text. Generation is
// never retried; an empty completion is reported as an upstream failure.
func (c *Client) Generate(ctx context.Context, input GenerateInput) (string, *Usage, error) {
	if c.config.APIKey == "" {
		return "", nil, ErrMissingAPIKey
	}

	reqBody, err := json.Marshal(chatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: input.Prompt}},
		MaxTokens:   input.MaxTokens,
		Temperature: input.Temperature,
	})
	if err != nil {
		return "", nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordRequest("transport_error")
		return "", nil, &domain.UpstreamError{Kind: domain.UpstreamLLM, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		recordRequest("transport_error")
		return "", nil, &domain.UpstreamError{Kind: domain.UpstreamLLM, Message: "read response", Err: err}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil && resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		recordRequest("decode_error")
		return "", nil, &domain.UpstreamError{Kind: domain.UpstreamLLM, Message: "decode response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		recordRequest("upstream_error")
		return "", nil, &domain.UpstreamError{Kind: domain.UpstreamLLM, Status: resp.StatusCode, Message: msg}
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		recordRequest("empty_completion")
		return "", nil, &domain.UpstreamError{Kind: domain.UpstreamLLM, Message: "empty completion"}
	}

	recordRequest("success")
	recordTokens(parsed.Usage)

	return parsed.Choices[0].Message.Content, &parsed.Usage, nil
}
