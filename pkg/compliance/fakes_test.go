package compliance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xhad/bmrcheck/internal/models"
	"github.com/xhad/bmrcheck/internal/types"
	"github.com/xhad/bmrcheck/pkg/store"
	"github.com/xhad/bmrcheck/pkg/throttle"
)

type replyFunc func(prompt string) (string, error)

// fakeGenerator answers by system instruction.
type fakeGenerator struct {
	mu       sync.Mutex
	extract  replyFunc
	analyze  replyFunc
	standard replyFunc
	prompts  map[string][]string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	if f.prompts == nil {
		f.prompts = map[string][]string{}
	}
	f.prompts[system] = append(f.prompts[system], prompt)
	f.mu.Unlock()

	var fn replyFunc
	switch system {
	case extractionSystem:
		fn = f.extract
	case analysisSystem:
		fn = f.analyze
	case standardSystem:
		fn = f.standard
	}
	if fn == nil {
		return "", errors.New("unexpected call")
	}
	return fn(prompt)
}

func (f *fakeGenerator) calls(system string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[system]
}

func reply(s string) replyFunc {
	return func(string) (string, error) { return s, nil }
}

func failing(err error) replyFunc {
	return func(string) (string, error) { return "", err }
}

type fakeEmbedder struct {
	vector []float32
	err    error
	tasks  []types.TaskType
}

func (f *fakeEmbedder) Embed(ctx context.Context, task types.TaskType, texts []string) ([][]float32, error) {
	f.tasks = append(f.tasks, task)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func testGate() *throttle.Gate {
	return throttle.NewWithConfig(throttle.GateConfig{RatePerSecond: -1})
}

// testKB holds three master chunks at squared distances 0.01, 0.25 and 4
// from the query vector {0, 0}.
func testKB(t *testing.T) *store.FlatIndex {
	t.Helper()
	kb, err := store.NewFlat(
		[][]float32{{0.1, 0}, {2, 0}, {0, 0.5}},
		[]models.ChunkMeta{
			{Source: "master.txt", ChunkID: "a", ChunkIndex: 0, Text: "Weight: 200mg"},
			{Source: "master.txt", ChunkID: "b", ChunkIndex: 1, Text: "Colour: white"},
			{Source: "master.txt", ChunkID: "c", ChunkIndex: 2, Text: "Speed: 20 rpm"},
		})
	require.NoError(t, err)
	return kb
}
