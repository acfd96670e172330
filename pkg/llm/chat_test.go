package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == "" {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestChatConfigDefaults(t *testing.T) {
	tests := []struct {
		name    string
		config  ChatConfig
		model   string
		wantErr bool
	}{
		{name: "ollama defaults", config: ChatConfig{}, model: "mistral"},
		{name: "googleai defaults", config: ChatConfig{Provider: ProviderGoogleAI}, model: "gemini-2.0-flash"},
		{name: "explicit model", config: ChatConfig{Model: "llama3"}, model: "llama3"},
		{name: "bad temperature", config: ChatConfig{Temperature: 1.5}, wantErr: true},
		{name: "negative tokens", config: ChatConfig{MaxTokens: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewWithModel(tt.config, &fakeModel{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.model, engine.config.Model)
			assert.Equal(t, 4096, engine.config.MaxTokens)
		})
	}
}

func TestGenerateSendsSystemAndHuman(t *testing.T) {
	model := &fakeModel{reply: "  [\"a\"]\n"}
	engine, err := NewWithModel(ChatConfig{Temperature: 0.2}, model)
	require.NoError(t, err)

	out, err := engine.Generate(context.Background(), "be strict", "extract this")
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, out)

	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, 0.2, model.opts.Temperature)
	assert.Equal(t, 4096, model.opts.MaxTokens)
}

func TestGenerateInlineSystem(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	engine, err := NewWithModel(ChatConfig{InlineSystem: true}, model)
	require.NoError(t, err)

	_, err = engine.Generate(context.Background(), "sys", "user")
	require.NoError(t, err)

	require.Len(t, model.messages, 1)
	part, ok := model.messages[0].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Equal(t, "sys\n\nuser", part.Text)
}

func TestGenerateErrors(t *testing.T) {
	engine, err := NewWithModel(ChatConfig{}, &fakeModel{})
	require.NoError(t, err)
	_, err = engine.Generate(context.Background(), "s", "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	boom := errors.New("boom")
	engine, err = NewWithModel(ChatConfig{}, &fakeModel{err: boom})
	require.NoError(t, err)
	_, err = engine.Generate(context.Background(), "s", "p")
	assert.ErrorIs(t, err, boom)
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewWithConfig(context.Background(), ChatConfig{Provider: "nope"})
	assert.Error(t, err)

	_, err = NewWithConfig(context.Background(), ChatConfig{Provider: ProviderGoogleAI})
	assert.Error(t, err, "googleai needs an API key")
}
