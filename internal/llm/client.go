package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Request is a single chat-style completion request.
type Request struct {
	// System is the system prompt; may be empty.
	System string
	// Prompt is the user message.
	Prompt      string
	Temperature float32
	MaxTokens   int
	// Schema, when set, asks the provider for JSON matching this JSON Schema.
	Schema map[string]any
}

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent returns the plain-text completion for req
	GenerateContent(ctx context.Context, req Request) (string, error)
	// GenerateJSON returns a JSON completion for req, stripped of markdown fences
	GenerateJSON(ctx context.Context, req Request) (string, error)
	// GetModel returns the model name requests are sent to
	GetModel() string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config)
	case ProviderOpenAI, "":
		return NewChatClient(config, nil)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

func (c *GeminiClient) model(req Request) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.config.Model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	return model
}

// GenerateContent generates text content
func (c *GeminiClient) GenerateContent(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout())
	defer cancel()

	resp, err := c.model(req).GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// GenerateJSON generates JSON content. The schema is carried in the prompt
// because genai.Schema cannot express every JSON Schema keyword we use.
func (c *GeminiClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout())
	defer cancel()

	model := c.model(req)
	model.ResponseMIMEType = "application/json"

	prompt := req.Prompt
	if req.Schema != nil {
		schema, err := marshalSchema(req.Schema)
		if err != nil {
			return "", err
		}
		prompt = fmt.Sprintf("%s\n\nRespond with JSON matching this schema:\n%s", prompt, schema)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}

	return CleanJSONBlock(text), nil
}

// GetModel returns the model name
func (c *GeminiClient) GetModel() string {
	return c.config.Model
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
