package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/brdsynth/internal/model"
)

// NewProvider creates a new LLM provider based on configuration.
// It returns a nil provider when extraction should use the rules only.
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama", "local":
		return NewOllamaProvider(config)

	case "groq":
		return NewGroqProvider(config)

	case "", "rules", "none":
		// No provider configured - rule-based extraction only
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama, groq, rules)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config. A missing API key
// is read from the provider's conventional environment variable.
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	config := Config{
		Provider:    modelConfig.Provider,
		Model:       modelConfig.Model,
		APIKey:      modelConfig.APIKey,
		BaseURL:     modelConfig.BaseURL,
		Timeout:     modelConfig.Timeout,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		HTTPProxy:   modelConfig.HTTPProxy,
		HTTPSProxy:  modelConfig.HTTPSProxy,
		NoProxy:     modelConfig.NoProxy,
	}
	if config.APIKey == "" {
		config.APIKey = APIKeyFromEnv(config.Provider)
	}
	return config
}

// APIKeyFromEnv returns the API key of a provider from its environment variable
func APIKeyFromEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	default:
		return ""
	}
}
