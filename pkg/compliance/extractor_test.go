package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/bmrcheck/internal/models"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		reply    replyFunc
		want     []models.Parameter
		degraded bool
	}{
		{
			name:  "prose around array",
			reply: reply(`Here are the parameters: [{"name":"Weight","value":"200mg","context":"Quality"}] Let me know.`),
			want:  []models.Parameter{{Name: "Weight", Value: "200mg", Context: "Quality"}},
		},
		{
			name:  "empty array",
			reply: reply("[]"),
			want:  []models.Parameter{},
		},
		{
			name:     "no array",
			reply:    reply("I could not find anything"),
			want:     []models.Parameter{},
			degraded: true,
		},
		{
			name:     "invalid json",
			reply:    reply(`[{"name": "Weight",]`),
			want:     []models.Parameter{},
			degraded: true,
		},
		{
			name:     "non-string value",
			reply:    reply(`[{"name":"Weight","value":200,"context":"Quality"}]`),
			want:     []models.Parameter{},
			degraded: true,
		},
		{
			name:     "missing field",
			reply:    reply(`[{"name":"Weight","value":"200mg"}]`),
			want:     []models.Parameter{},
			degraded: true,
		},
		{
			name:     "service failure",
			reply:    failing(errors.New("quota exceeded")),
			want:     []models.Parameter{},
			degraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{extract: tt.reply}
			e := NewExtractor(gen, testGate(), nil)

			out := e.Extract(context.Background(), "Weight: 200mg")
			assert.Equal(t, tt.want, out.Value)
			assert.Equal(t, tt.degraded, out.Degraded)
			if tt.degraded {
				assert.NotEmpty(t, out.Reason)
			}
		})
	}
}

func TestExtractPromptCarriesChunk(t *testing.T) {
	gen := &fakeGenerator{extract: reply("[]")}
	e := NewExtractor(gen, testGate(), nil)

	e.Extract(context.Background(), "Granulation Time: 15 min")
	prompts := gen.calls(extractionSystem)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Granulation Time: 15 min")
}

func TestExtractCancelledContext(t *testing.T) {
	gen := &fakeGenerator{extract: reply("[]")}
	e := NewExtractor(gen, testGate(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := e.Extract(ctx, "x")
	assert.True(t, out.Degraded)
	assert.Empty(t, out.Value)
}
