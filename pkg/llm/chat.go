package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// ErrEmptyResponse is returned when the model answers without any choice.
var ErrEmptyResponse = errors.New("no response from LLM")

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // Ollama server URL
	APIKey      string // Google AI API key
	// InlineSystem sends the system instruction as the head of the user
	// message for providers without a system role.
	InlineSystem bool
}

// ChatEngine sends one system instruction and one user message to an LLM and
// returns the raw text of the first choice.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

func applyChatDefaults(config *ChatConfig) error {
	if config.Provider == "" {
		config.Provider = ProviderOllama
	}
	if config.Model == "" {
		switch config.Provider {
		case ProviderGoogleAI:
			config.Model = "gemini-2.0-flash"
		default:
			config.Model = "mistral" // Default Ollama model
		}
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	return nil
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(ctx context.Context, config ChatConfig) (*ChatEngine, error) {
	if err := applyChatDefaults(&config); err != nil {
		return nil, err
	}

	llm, err := newClient(ctx, providerConfig{
		Provider: config.Provider,
		Model:    config.Model,
		BaseURL:  config.BaseURL,
		APIKey:   config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(config, llm)
}

// NewWithModel wraps an already constructed model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	if err := applyChatDefaults(&config); err != nil {
		return nil, err
	}
	return &ChatEngine{config: config, llm: model}, nil
}

// Generate returns the model's reply to prompt under the system instruction.
func (ce *ChatEngine) Generate(ctx context.Context, system, prompt string) (string, error) {
	var content []llms.MessageContent
	if ce.config.InlineSystem {
		content = []llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeHuman, system+"\n\n"+prompt),
		}
	} else {
		content = []llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeSystem, system),
			llms.TextParts(schema.ChatMessageTypeHuman, prompt),
		}
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", ErrEmptyResponse
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
