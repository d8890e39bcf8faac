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

	"MentionScanner/internal/config"
	"MentionScanner/internal/ports"
)

// ErrEmptyCompletion is returned when the API answers without any choice content.
var ErrEmptyCompletion = errors.New("completion has no content")

// ChatGPTClient implements ports.Completer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint   string
	model      string
	apiKey     string
	jsonMode   bool
	httpClient *http.Client
}

var _ ports.Completer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatGPTClient{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		jsonMode: cfg.JSONMode,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one deterministic (temperature 0) chat completion and returns
// the first choice's content, trimmed.
func (c *ChatGPTClient) Complete(ctx context.Context, in ports.CompletionRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(in.SystemPrompt)},
			{Role: "user", Content: in.UserPrompt},
		},
		MaxTokens:   in.MaxTokens,
		Temperature: 0,
	}
	if c.jsonMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are accurate and concise."
	}
	return prompt
}
