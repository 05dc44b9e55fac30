package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/brdsynth/internal/model"
)

// ErrMalformedResponse is returned when a model reply holds no usable JSON payload
var ErrMalformedResponse = errors.New("malformed LLM response")

// Provider defines the interface for LLM-backed extraction capabilities
type Provider interface {
	// Name returns "<provider>:<model>"; it is part of the payload cache key
	Name() string

	// Extract asks the model for the entities mentioned in one record
	Extract(ctx context.Context, text string) (*model.ExtractionPayload, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "groq", "" (rules only)
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Rules only by default
		Timeout:   30,
		MaxTokens: 1500,
	}
}

// SystemPrompt frames every extraction request
const SystemPrompt = "You are a business analyst who extracts requirements, decisions, stakeholders and milestones from project communication. You reply with JSON only."

// BuildPrompt constructs the extraction prompt for one record
func BuildPrompt(text string) string {
	return fmt.Sprintf(`Extract the business requirements content of the message below.

Reply with a single JSON object of this exact shape and nothing else:
{
  "requirements": [{"text": "...", "type": "functional|non_functional", "status": "pending_review|approved|rejected"}],
  "decisions":    [{"text": "...", "decided_by": "name or empty"}],
  "stakeholders": [{"name": "...", "role": "role or empty"}],
  "timelines":    [{"milestone": "...", "date": "date as written"}],
  "confidence":   0.0
}

RULES:
1. Only include items stated in the message. Do not infer or invent.
2. Use empty arrays when a category has no items.
3. confidence is your confidence in the extraction, between 0 and 1.

MESSAGE:
%s`, text)
}

// ParsePayload decodes a model reply into a payload. Code fences and text
// around the JSON object are tolerated.
func ParsePayload(content string) (*model.ExtractionPayload, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}

	var payload model.ExtractionPayload
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if payload.Confidence < 0 {
		payload.Confidence = 0
	}
	if payload.Confidence > 1 {
		payload.Confidence = 1
	}
	return &payload, nil
}

func maxTokensOr(config Config, fallback int) int {
	if config.MaxTokens > 0 {
		return config.MaxTokens
	}
	return fallback
}
