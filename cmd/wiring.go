package main

import (
	"context"
	"fmt"

	"github.com/xhad/bmrcheck/internal/types"
	cfgPkg "github.com/xhad/bmrcheck/pkg/config"
	"github.com/xhad/bmrcheck/pkg/llm"
	"github.com/xhad/bmrcheck/pkg/metrics"
	"github.com/xhad/bmrcheck/pkg/store"
	"github.com/xhad/bmrcheck/pkg/throttle"
	"go.uber.org/zap"
)

func newGate(cfg *cfgPkg.Config, m *metrics.Metrics, logger *zap.Logger) *throttle.Gate {
	return throttle.NewWithConfig(throttle.GateConfig{
		Name:          cfg.LLM.Provider,
		RatePerSecond: cfg.Throttle.RatePerSecond,
		Burst:         cfg.Throttle.Burst,
		MaxFailures:   uint32(cfg.Throttle.MaxFailures),
		OpenTimeout:   cfg.Throttle.OpenTimeout(),
		OnCall:        m.ObserveCall,
		Logger:        logger,
	})
}

func newChatEngine(ctx context.Context, cfg *cfgPkg.Config) (*llm.ChatEngine, error) {
	chatEngine, err := llm.NewWithConfig(ctx, llm.ChatConfig{
		Provider:     cfg.LLM.Provider,
		Model:        cfg.LLM.Model,
		MaxTokens:    cfg.LLM.MaxTokens,
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		Temperature:  *cfg.LLM.Temperature,
		InlineSystem: cfg.LLM.Provider == llm.ProviderGoogleAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}
	return chatEngine, nil
}

func newEmbedder(ctx context.Context, cfg *cfgPkg.Config) (*llm.Embedder, error) {
	emb, err := llm.NewEmbedderWithConfig(ctx, llm.EmbedderConfig{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.EmbeddingModel,
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		BatchSize: cfg.Database.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return emb, nil
}

func vectorStoreConfig(cfg *cfgPkg.Config) store.VectorStoreConfig {
	return store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
		BatchSize:  cfg.Database.BatchSize,
	}
}

// openKnowledgeBase loads the configured knowledge base read-only.
func openKnowledgeBase(ctx context.Context, cfg *cfgPkg.Config) (types.KnowledgeBase, error) {
	switch cfg.KnowledgeBase.Backend {
	case cfgPkg.BackendPgvector:
		vs, err := store.Open(ctx, vectorStoreConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		return vs, nil
	default:
		idx, err := store.OpenFlat(cfg.KnowledgeBase.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load knowledge base: %w", err)
		}
		return idx, nil
	}
}
