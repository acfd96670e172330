package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/bmrcheck/pkg/report"
)

func TestRootFlagsOverrideConfig(t *testing.T) {
	for _, k := range []string{"OLLAMA_BASE_URL", "DATABASE_URL", "GOOGLE_API_KEY", "BMRCHECK_LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("llm:\n  api_key: \"secret\"\n"), 0644))
	resultPath := filepath.Join(dir, "record_compliance.json")
	require.NoError(t, report.WriteJSON(resultPath, report.New("record.pdf")))

	tests := []struct {
		name           string
		args           []string
		provider       string
		model          string
		embeddingModel string
	}{
		{
			name:           "config only",
			args:           nil,
			provider:       "ollama",
			model:          "mistral",
			embeddingModel: "nomic-embed-text:latest",
		},
		{
			name:           "provider flag selects its models",
			args:           []string{"--provider", "googleai"},
			provider:       "googleai",
			model:          "gemini-2.0-flash",
			embeddingModel: "text-embedding-004",
		},
		{
			name:           "model flag wins",
			args:           []string{"--provider", "googleai", "--model", "gemini-1.5-pro"},
			provider:       "googleai",
			model:          "gemini-1.5-pro",
			embeddingModel: "text-embedding-004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &options{}
			root := newRootCmd(opts)
			args := append([]string{"--config", configPath}, tt.args...)
			root.SetArgs(append(args, "summary", resultPath))

			require.NoError(t, root.Execute())
			require.NotNil(t, opts.cfg)
			assert.Equal(t, tt.provider, opts.cfg.LLM.Provider)
			assert.Equal(t, tt.model, opts.cfg.LLM.Model)
			assert.Equal(t, tt.embeddingModel, opts.cfg.LLM.EmbeddingModel)
		})
	}
}
