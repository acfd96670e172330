package compliance

import (
	"context"
	"errors"
	"fmt"

	"github.com/xhad/bmrcheck/internal/models"
	"github.com/xhad/bmrcheck/internal/types"
	"github.com/xhad/bmrcheck/pkg/throttle"
	"go.uber.org/zap"
)

const (
	DefaultK         = 5
	DefaultThreshold = 0.8
)

var errNoRelevant = errors.New("no sufficiently relevant chunks")

type RetrieverConfig struct {
	// Threshold is the exclusive upper bound on the distance of kept chunks.
	Threshold float32
	Logger    *zap.Logger
}

// Retriever finds the master record chunks closest to a query.
type Retriever struct {
	config RetrieverConfig
	emb    types.Embedder
	kb     types.KnowledgeBase
	gate   *throttle.Gate
	logger *zap.Logger
}

func NewRetriever(emb types.Embedder, kb types.KnowledgeBase, gate *throttle.Gate, config RetrieverConfig) *Retriever {
	if config.Threshold == 0 {
		config.Threshold = DefaultThreshold
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Retriever{
		config: config,
		emb:    emb,
		kb:     kb,
		gate:   gate,
		logger: config.Logger.With(zap.String("component", "retriever")),
	}
}

// Retrieve returns up to k chunks with distance below the threshold, closest
// first. Each chunk is a copy of the knowledge base metadata.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) Outcome[[]models.RetrievedChunk] {
	if k <= 0 {
		k = DefaultK
	}

	vectors, err := throttle.Call(ctx, r.gate, "embed_query", func(ctx context.Context) ([][]float32, error) {
		return r.emb.Embed(ctx, types.TaskRetrievalQuery, []string{query})
	})
	if err != nil {
		return r.fail(fmt.Errorf("embed query: %w", err))
	}
	if len(vectors) != 1 {
		return r.fail(fmt.Errorf("embed query: got %d vectors", len(vectors)))
	}

	distances, indices, err := r.kb.Search(ctx, vectors[0], k)
	if err != nil {
		return r.fail(fmt.Errorf("search: %w", err))
	}

	var found []models.RetrievedChunk
	for i, idx := range indices {
		if idx < 0 || i >= len(distances) {
			continue
		}
		meta, exists := r.kb.Lookup(idx)
		if !exists {
			continue
		}
		found = append(found, models.RetrievedChunk{ChunkMeta: meta, SimilarityScore: distances[i]})
	}
	r.logger.Info("found chunks", zap.Int("count", len(found)), zap.String("query", preview(query)))
	for i, c := range found {
		r.logger.Debug("chunk",
			zap.Int("rank", i+1),
			zap.Float32("score", c.SimilarityScore),
			zap.String("text", preview(c.Text)))
	}

	kept := make([]models.RetrievedChunk, 0, len(found))
	for _, c := range found {
		if c.SimilarityScore < r.config.Threshold {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		r.logger.Warn("no sufficiently relevant chunks found", zap.String("query", preview(query)))
		return degraded(kept, errNoRelevant.Error())
	}
	return ok(kept)
}

func (r *Retriever) fail(err error) Outcome[[]models.RetrievedChunk] {
	r.logger.Error("error retrieving from knowledge base", zap.Error(err))
	return degraded([]models.RetrievedChunk{}, err.Error())
}

func preview(s string) string {
	const n = 100
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
