package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/bmrcheck/internal/types"
)

func TestRetrieveFiltersAndOrders(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{0, 0}}
	r := NewRetriever(emb, testKB(t), testGate(), RetrieverConfig{})

	out := r.Retrieve(context.Background(), "Weight: 200mg", 5)
	require.False(t, out.Degraded)
	require.Len(t, out.Value, 2, "distance 4 is above the threshold and -1 padding is skipped")

	assert.Equal(t, "Weight: 200mg", out.Value[0].Text)
	assert.Equal(t, "Speed: 20 rpm", out.Value[1].Text)
	assert.InDelta(t, 0.01, out.Value[0].SimilarityScore, 1e-6)
	assert.InDelta(t, 0.25, out.Value[1].SimilarityScore, 1e-6)
	for _, c := range out.Value {
		assert.Less(t, c.SimilarityScore, float32(DefaultThreshold))
	}
	assert.Equal(t, []types.TaskType{types.TaskRetrievalQuery}, emb.tasks)
}

func TestRetrieveReturnsCopies(t *testing.T) {
	kb := testKB(t)
	r := NewRetriever(&fakeEmbedder{vector: []float32{0, 0}}, kb, testGate(), RetrieverConfig{})

	out := r.Retrieve(context.Background(), "q", 1)
	require.Len(t, out.Value, 1)
	out.Value[0].Text = "changed"

	meta, ok := kb.Lookup(0)
	require.True(t, ok)
	assert.Equal(t, "Weight: 200mg", meta.Text)
}

func TestRetrieveNothingRelevant(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{vector: []float32{10, 10}}, testKB(t), testGate(), RetrieverConfig{})

	out := r.Retrieve(context.Background(), "q", 5)
	assert.True(t, out.Degraded)
	assert.Empty(t, out.Value)
}

func TestRetrieveCustomThreshold(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{vector: []float32{0, 0}}, testKB(t), testGate(), RetrieverConfig{Threshold: 5})

	out := r.Retrieve(context.Background(), "q", 5)
	assert.Len(t, out.Value, 3)
}

func TestRetrieveEmbedFailure(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{err: errors.New("unavailable")}, testKB(t), testGate(), RetrieverConfig{})

	out := r.Retrieve(context.Background(), "q", 5)
	assert.True(t, out.Degraded)
	assert.Contains(t, out.Reason, "unavailable")
	assert.Empty(t, out.Value)
}

func TestRetrieveDimensionMismatch(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{vector: []float32{0, 0, 0}}, testKB(t), testGate(), RetrieverConfig{})

	out := r.Retrieve(context.Background(), "q", 5)
	assert.True(t, out.Degraded)
	assert.Empty(t, out.Value)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := make([]rune, 150)
	for i := range long {
		long[i] = 'é'
	}
	p := preview(string(long))
	assert.Equal(t, 103, len([]rune(p)))
}
