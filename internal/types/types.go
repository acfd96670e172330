package types

import (
	"context"

	"github.com/xhad/bmrcheck/internal/models"
)

// Core interfaces

// KnowledgeBase is the read-only master record index plus its parallel
// metadata store.
type KnowledgeBase interface {
	Search(ctx context.Context, vector []float32, k int) ([]float32, []int64, error)
	Lookup(idx int64) (models.ChunkMeta, bool)
	Len() int
	Close()
}

// TaskType distinguishes query embeddings from document embeddings.
type TaskType string

const (
	TaskRetrievalQuery    TaskType = "RETRIEVAL_QUERY"
	TaskRetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"
)

type Embedder interface {
	Embed(ctx context.Context, task TaskType, texts []string) ([][]float32, error)
}

type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
