package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/xhad/bmrcheck/internal/types"
	"google.golang.org/api/option"
)

type EmbedderConfig struct {
	Provider  string
	Model     string
	BaseURL   string // Ollama server URL
	APIKey    string
	BatchSize int
}

// Embedder creates query and document embeddings. The task type reaches the
// model: Gemini receives it as the request task type, nomic models on Ollama
// as their search_query/search_document text prefix.
type Embedder struct {
	Config  EmbedderConfig
	backend taskEmbedder
}

// taskEmbedder embeds texts for one task type.
type taskEmbedder interface {
	embed(ctx context.Context, task types.TaskType, texts []string) ([][]float32, error)
	close() error
}

func applyEmbedderDefaults(config *EmbedderConfig) {
	if config.Provider == "" {
		config.Provider = ProviderOllama
	}
	if config.Model == "" {
		switch config.Provider {
		case ProviderGoogleAI:
			config.Model = "text-embedding-004"
		default:
			config.Model = "nomic-embed-text:latest"
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
}

func NewEmbedderWithConfig(ctx context.Context, config EmbedderConfig) (*Embedder, error) {
	applyEmbedderDefaults(&config)

	if config.Provider == ProviderGoogleAI {
		if config.APIKey == "" {
			return nil, fmt.Errorf("googleai provider requires an API key")
		}
		gc, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		return &Embedder{
			Config:  config,
			backend: &genaiEmbedder{client: gc, model: config.Model, batchSize: config.BatchSize},
		}, nil
	}

	c, err := newClient(ctx, providerConfig{
		Provider: config.Provider,
		Model:    config.Model,
		BaseURL:  config.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return NewEmbedderWithClient(config, c)
}

// NewEmbedderWithClient wraps any langchaingo client able to create
// embeddings.
func NewEmbedderWithClient(config EmbedderConfig, c embeddings.EmbedderClient) (*Embedder, error) {
	applyEmbedderDefaults(&config)

	emb, err := embeddings.NewEmbedder(c, embeddings.WithBatchSize(config.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return &Embedder{
		Config:  config,
		backend: &prefixEmbedder{embedder: emb, prefixes: taskPrefixes(config.Model)},
	}, nil
}

// Embed returns one vector per text.
func (e *Embedder) Embed(ctx context.Context, task types.TaskType, texts []string) ([][]float32, error) {
	switch task {
	case types.TaskRetrievalQuery, types.TaskRetrievalDocument:
		return e.backend.embed(ctx, task, texts)
	default:
		return nil, fmt.Errorf("unknown embedding task type %q", task)
	}
}

func (e *Embedder) Close() error {
	return e.backend.close()
}

// taskPrefixes returns the instruction prefixes nomic-embed models are
// trained with. Other models get none.
func taskPrefixes(model string) map[types.TaskType]string {
	if !strings.Contains(model, "nomic-embed") {
		return nil
	}
	return map[types.TaskType]string{
		types.TaskRetrievalQuery:    "search_query: ",
		types.TaskRetrievalDocument: "search_document: ",
	}
}

// prefixEmbedder embeds through langchaingo. Queries are embedded one text at
// a time, documents in batches.
type prefixEmbedder struct {
	embedder embeddings.Embedder
	prefixes map[types.TaskType]string
}

func (p *prefixEmbedder) embed(ctx context.Context, task types.TaskType, texts []string) ([][]float32, error) {
	prefix := p.prefixes[task]
	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = prefix + t
	}

	if task == types.TaskRetrievalDocument {
		out, err := p.embedder.EmbedDocuments(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("failed to create document embeddings: %w", err)
		}
		return out, nil
	}

	out := make([][]float32, 0, len(inputs))
	for _, t := range inputs {
		v, err := p.embedder.EmbedQuery(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("failed to create query embedding: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (p *prefixEmbedder) close() error { return nil }

// genaiEmbedder calls the Gemini embedding API directly; langchaingo's
// googleai client has no way to set the task type.
type genaiEmbedder struct {
	client    *genai.Client
	model     string
	batchSize int
}

func genaiTaskType(task types.TaskType) genai.TaskType {
	switch task {
	case types.TaskRetrievalQuery:
		return genai.TaskTypeRetrievalQuery
	case types.TaskRetrievalDocument:
		return genai.TaskTypeRetrievalDocument
	default:
		return genai.TaskTypeUnspecified
	}
}

func (g *genaiEmbedder) embed(ctx context.Context, task types.TaskType, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	em.TaskType = genaiTaskType(task)

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))

		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s embeddings: %w", task, err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("got %d embeddings for %d texts", len(res.Embeddings), end-start)
		}
		for _, e := range res.Embeddings {
			if e == nil {
				return nil, fmt.Errorf("empty embedding in %s response", task)
			}
			out = append(out, e.Values)
		}
	}
	return out, nil
}

func (g *genaiEmbedder) close() error {
	return g.client.Close()
}
