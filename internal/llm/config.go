// Package llm provides the language model client abstraction used for
// article selection and share-text rewriting.
package llm

import "time"

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderOpenAI is any OpenAI-compatible chat completions endpoint (llama.cpp, vLLM, OpenAI)
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// DefaultTimeout bounds a single completion request.
const DefaultTimeout = 30 * time.Second

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	// Endpoint is the full chat completions URL; unused for Gemini.
	Endpoint string
	Model    string
	// APIKey is sent as a bearer token, or used to authenticate with Gemini.
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig returns the configuration of the local inference server.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Endpoint: "http://192.168.131.193:8008/v1/chat/completions",
		Model:    "gpt-3.5-turbo",
		Timeout:  DefaultTimeout,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Model:    "gemini-2.5-flash",
		Timeout:  DefaultTimeout,
	}
}

// WithModel returns a copy of the Config using model.
func (c *Config) WithModel(model string) *Config {
	cp := *c
	cp.Model = model
	return &cp
}

// timeout returns the configured timeout, falling back to DefaultTimeout.
func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
