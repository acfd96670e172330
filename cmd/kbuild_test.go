package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/bmrcheck/internal/models"
	"github.com/xhad/bmrcheck/internal/types"
	"go.uber.org/zap"
)

type flakyEmbedder struct {
	failures int
	calls    int
	sizes    []int
}

func (f *flakyEmbedder) Embed(ctx context.Context, task types.TaskType, texts []string) ([][]float32, error) {
	f.calls++
	if task != types.TaskRetrievalDocument {
		return nil, errors.New("wrong task type")
	}
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("rate limited")
	}
	f.sizes = append(f.sizes, len(texts))
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func chunksOf(n int) []models.ChunkMeta {
	chunks := make([]models.ChunkMeta, n)
	for i := range chunks {
		chunks[i] = models.ChunkMeta{ChunkIndex: i, Text: "chunk"}
	}
	return chunks
}

func TestEmbedAllBatches(t *testing.T) {
	emb := &flakyEmbedder{}
	progressed := 0

	vectors, err := embedAll(context.Background(), emb, chunksOf(5), 2, func(n int) { progressed += n }, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	assert.Equal(t, []int{2, 2, 1}, emb.sizes)
	assert.Equal(t, 5, progressed)
}

func TestEmbedAllRetries(t *testing.T) {
	emb := &flakyEmbedder{failures: 1}

	vectors, err := embedAll(context.Background(), emb, chunksOf(2), 100, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, 2, emb.calls)
}

func TestEmbedAllStopsOnCancel(t *testing.T) {
	emb := &flakyEmbedder{failures: 10}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := embedAll(ctx, emb, chunksOf(2), 100, nil, zap.NewNop())
	assert.Error(t, err)
	assert.Equal(t, 1, emb.calls)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "Batch_42", stem("/data/in/Batch_42.pdf"))
	assert.Equal(t, "master", stem("master"))
}
