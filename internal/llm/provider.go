package llm

import (
	"context"

	"veristream/internal/model"
)

// Provider defines the interface for reasoning-capability providers.
// Extraction, evidence search, and transcript summarization all run
// through a single chat-completion call.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one chat completion and returns the text output
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for one capability call.
type CompletionRequest struct {
	// System frames the role of the call (extractor, worker variant, synthesizer)
	System string

	// Prompt is the user-turn content
	Prompt string

	// Model overrides the configured model for this call (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature defaults to 0.3 when zero; extraction and verification
	// want focused, factual output
	Temperature float32
}

// CompletionResponse contains the provider's text output.
type CompletionResponse struct {
	// Text is the completion content
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds provider configuration.
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int
}

// ConfigFromModel converts model.LLMConfig to llm.Config.
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:  mc.Provider,
		Model:     mc.Model,
		APIKey:    mc.APIKey,
		BaseURL:   mc.BaseURL,
		Timeout:   mc.Timeout,
		MaxTokens: mc.MaxTokens,
	}
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Timeout:   30,
		MaxTokens: 1000,
	}
}
