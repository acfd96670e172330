package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/bmrcheck/internal/models"
	"github.com/xhad/bmrcheck/internal/types"
	cfgPkg "github.com/xhad/bmrcheck/pkg/config"
	"github.com/xhad/bmrcheck/pkg/processor"
	"github.com/xhad/bmrcheck/pkg/store"
	"go.uber.org/zap"
)

const embedAttempts = 3

func newKBuildCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "kbuild <master.txt>",
		Short: "Build the knowledge base from a master record text file",
		Long: `kbuild splits the master record into overlapping word chunks, embeds them
as retrieval documents and writes either the flat index files (<kb>.index and
<kb>.meta.json) or the pgvector table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKBuild(cmd.Context(), opts, args[0])
		},
	}
}

func runKBuild(ctx context.Context, opts *options, input string) error {
	cfg := opts.cfg
	logger := opts.logger

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read master record: %w", err)
	}

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})
	doc, err := proc.Process(input, string(data))
	if err != nil {
		return err
	}
	if len(doc.Chunks) == 0 {
		return fmt.Errorf("no text chunks were generated from %s", input)
	}
	color.Green("✓ Split %s into %d chunks", doc.Source, len(doc.Chunks))

	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	bar := getProgressBar(len(doc.Chunks), " Embedding chunks")
	doc.Embedding, err = embedAll(ctx, emb, doc.Chunks, cfg.Database.BatchSize, func(n int) { bar.Add(n) }, logger)
	bar.Finish()
	if err != nil {
		return err
	}
	color.Green("\n✓ Embedded %d chunks", len(doc.Embedding))

	return writeKnowledgeBase(ctx, cfg, doc)
}

// embedAll embeds chunks batch by batch, retrying each batch with exponential
// backoff.
func embedAll(ctx context.Context, emb types.Embedder, chunks []models.ChunkMeta, batchSize int, progress func(int), logger *zap.Logger) ([][]float32, error) {
	if batchSize < 1 {
		batchSize = 100
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		attempt := 0
		var batch [][]float32
		op := func() error {
			attempt++
			var err error
			batch, err = emb.Embed(ctx, types.TaskRetrievalDocument, texts)
			if err == nil && len(batch) != len(texts) {
				err = fmt.Errorf("got %d embeddings for %d texts", len(batch), len(texts))
			}
			if err != nil {
				logger.Warn("embedding call failed",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", embedAttempts),
					zap.Error(err))
			}
			return err
		}
		if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(newBackOff(), embedAttempts-1), ctx)); err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d after %d attempts: %w", start, end-1, attempt, err)
		}

		vectors = append(vectors, batch...)
		if progress != nil {
			progress(len(batch))
		}
	}
	return vectors, nil
}

// newBackOff doubles the wait from 1s, capped at 4s.
func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 4 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func writeKnowledgeBase(ctx context.Context, cfg *cfgPkg.Config, doc models.ProcessedDocument) error {
	switch cfg.KnowledgeBase.Backend {
	case cfgPkg.BackendPgvector:
		vs, err := store.NewWithConfig(ctx, vectorStoreConfig(cfg))
		if err != nil {
			return err
		}
		defer vs.Close()

		if err := vs.Initialize(ctx); err != nil {
			return err
		}
		if err := vs.Store(ctx, doc); err != nil {
			return err
		}
		color.Green("✓ Stored %d chunks in table %s", len(doc.Chunks), cfg.Database.TableName)
	default:
		base := cfg.KnowledgeBase.Path
		if err := store.WriteFlat(base, doc.Embedding, doc.Chunks); err != nil {
			return err
		}
		color.Green("✓ Index saved to %s", store.IndexPath(base))
		color.Green("✓ Metadata saved to %s", store.MetaPath(base))
	}
	return nil
}
