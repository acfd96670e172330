package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"
)

// client is satisfied by every langchaingo provider used here: it can both
// generate content and create embeddings.
type client interface {
	llms.Model
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type providerConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

func newClient(ctx context.Context, config providerConfig) (client, error) {
	switch config.Provider {
	case "", ProviderOllama:
		return ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		)
	case ProviderGoogleAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf("googleai provider requires an API key")
		}
		opts := []googleai.Option{googleai.WithAPIKey(config.APIKey)}
		if config.Model != "" {
			opts = append(opts, googleai.WithDefaultModel(config.Model))
		}
		return googleai.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Provider)
	}
}
