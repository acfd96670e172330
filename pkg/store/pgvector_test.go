package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/bmrcheck/internal/models"
)

func TestPad(t *testing.T) {
	d, i := pad([]float32{0.1}, []int64{4}, 3)
	assert.Equal(t, []int64{4, -1, -1}, i)
	assert.Len(t, d, 3)
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "ok", sanitizeUTF8("ok"))
	assert.Equal(t, "ab", sanitizeUTF8("a\xffb"))
}

// Runs against a live database when BMRCHECK_TEST_DATABASE_URL is set.
func TestVectorStore(t *testing.T) {
	conn := os.Getenv("BMRCHECK_TEST_DATABASE_URL")
	if conn == "" {
		t.Skip("BMRCHECK_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	config := VectorStoreConfig{
		ConnString: conn,
		TableName:  "test_master_chunks",
		VectorDim:  3,
	}

	s, err := NewWithConfig(ctx, config)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(ctx))

	doc := models.ProcessedDocument{
		Source: "master.txt",
		Chunks: []models.ChunkMeta{
			{Source: "master.txt", ChunkID: "c0", ChunkIndex: 0, Text: "Weight: 200mg"},
			{Source: "master.txt", ChunkID: "c1", ChunkIndex: 1, Text: "Speed: 20 rpm"},
		},
		Embedding: [][]float32{{1, 0, 0}, {0, 1, 0}},
	}
	require.NoError(t, s.Store(ctx, doc))
	s.Close()

	s, err = Open(ctx, config)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 2, s.Len())
	dist, ids, err := s.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ids[0])
	assert.InDelta(t, 0, dist[0], 1e-6)
	assert.Equal(t, int64(-1), ids[2])

	m, ok := s.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "Speed: 20 rpm", m.Text)

	// Rebuilding from a shorter master leaves no rows of the old one.
	shorter := models.ProcessedDocument{
		Source:    "master_v2.txt",
		Chunks:    []models.ChunkMeta{{Source: "master_v2.txt", ChunkID: "d0", ChunkIndex: 0, Text: "Weight: 250mg"}},
		Embedding: [][]float32{{0, 0, 1}},
	}
	require.NoError(t, s.Store(ctx, shorter))

	rebuilt, err := Open(ctx, config)
	require.NoError(t, err)
	defer rebuilt.Close()

	assert.Equal(t, 1, rebuilt.Len())
	_, ok = rebuilt.Lookup(1)
	assert.False(t, ok)
	_, ids, err = rebuilt.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, -1, -1}, ids)
}

func TestIVFFlatLists(t *testing.T) {
	tests := []struct {
		rows int
		want int
	}{
		{0, 1},
		{2, 1},
		{1999, 1},
		{5000, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ivfflatLists(tt.rows))
	}
}
