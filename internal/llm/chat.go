package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody limits how much of a failed response body ends up in an APIError.
const maxErrorBody = 512

// ChatClient talks to an OpenAI-compatible /v1/chat/completions endpoint.
type ChatClient struct {
	config     *Config
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type   string         `json:"type"`
	Schema map[string]any `json:"schema,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewChatClient creates a client for config.Endpoint. A nil httpClient gets
// one bounded by the configured timeout.
func NewChatClient(config *Config, httpClient *http.Client) (*ChatClient, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Endpoint == "" {
		return nil, fmt.Errorf("LLM endpoint is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.timeout()}
	}
	return &ChatClient{config: config, httpClient: httpClient}, nil
}

// GenerateContent returns the first choice's message content, trimmed.
func (c *ChatClient) GenerateContent(ctx context.Context, req Request) (string, error) {
	return c.complete(ctx, req, nil)
}

// GenerateJSON requests json_object output, passing req.Schema along for
// servers that support schema-constrained decoding.
func (c *ChatClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	content, err := c.complete(ctx, req, &responseFormat{Type: "json_object", Schema: req.Schema})
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(content), nil
}

// GetModel returns the model name sent with every request.
func (c *ChatClient) GetModel() string {
	return c.config.Model
}

// Close is a no-op; the HTTP client holds no per-client resources.
func (c *ChatClient) Close() error {
	return nil
}

func (c *ChatClient) complete(ctx context.Context, req Request, format *responseFormat) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout())
	defer cancel()

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:          c.config.Model,
		Messages:       messages,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	apiKey := c.config.APIKey
	if apiKey == "" {
		apiKey = "no-key"
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &APIError{Message: "chat request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "failed to read chat response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		text := string(respBody)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: "chat request rejected", Body: strings.TrimSpace(text)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "malformed chat response", Cause: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "chat response has no choices"}
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func marshalSchema(schema map[string]any) (string, error) {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}
	return string(data), nil
}
