package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/ppiankov/brdsynth/internal/model"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider talks to Groq's OpenAI-compatible endpoint
type GroqProvider struct {
	client openai.Client
	config Config
}

// NewGroqProvider creates a new Groq provider
func NewGroqProvider(config Config) (*GroqProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Groq API key is required")
	}
	if config.Model == "" {
		config.Model = "llama-3.1-8b-instant"
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = groqBaseURL
	}

	client := openai.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(newHTTPClient(config, 30*time.Second)),
		option.WithMaxRetries(0),
	)

	return &GroqProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider name
func (p *GroqProvider) Name() string {
	return "groq:" + p.config.Model
}

// IsAvailable checks if the provider is properly configured
func (p *GroqProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Models.List(ctx)
	return err == nil
}

// Extract runs one record through the chat completions endpoint
func (p *GroqProvider) Extract(ctx context.Context, text string) (*model.ExtractionPayload, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(BuildPrompt(text)),
		},
		MaxTokens:   openai.Int(int64(maxTokensOr(p.config, 1500))),
		Temperature: openai.Float(p.config.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("Groq API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from Groq")
	}

	return ParsePayload(resp.Choices[0].Message.Content)
}
