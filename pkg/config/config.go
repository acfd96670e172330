package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendFlat     = "flat"
	BackendPgvector = "pgvector"
)

type LLMConfig struct {
	Provider       string  `yaml:"provider"` // ollama or googleai
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	MaxTokens      int     `yaml:"max_tokens"`
	// Temperature is nil when unset so that an explicit 0 survives defaults.
	Temperature *float64 `yaml:"temperature"`
}

type KnowledgeBaseConfig struct {
	Backend   string  `yaml:"backend"` // flat or pgvector
	Path      string  `yaml:"path"`    // base path of the flat index files
	K         int     `yaml:"k"`
	Threshold float64 `yaml:"threshold"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`
	BatchSize int    `yaml:"batch_size"`
}

type ThrottleConfig struct {
	RatePerSecond      float64 `yaml:"rate_per_second"`
	Burst              int     `yaml:"burst"`
	MaxFailures        int     `yaml:"max_failures"`
	OpenTimeoutSeconds int     `yaml:"open_timeout_seconds"`
}

type ProcessorConfig struct {
	LinesPerChunk int `yaml:"lines_per_chunk"`
	ChunkSize     int `yaml:"chunk_size"`    // knowledge base chunks, in words
	ChunkOverlap  int `yaml:"chunk_overlap"` // in words
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	MetricsFile string `yaml:"metrics_file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Database      DatabaseConfig      `yaml:"database"`
	Throttle      ThrottleConfig      `yaml:"throttle"`
	Processor     ProcessorConfig     `yaml:"processor"`
	Output        OutputConfig        `yaml:"output"`
	Log           LogConfig           `yaml:"log"`
}

// OpenTimeout is the time the breaker stays open before a trial call.
func (t ThrottleConfig) OpenTimeout() time.Duration {
	return time.Duration(t.OpenTimeoutSeconds) * time.Second
}

// Override changes a loaded config before defaults are applied, so values
// derived from it (such as the provider's default models) follow the change.
type Override func(*Config)

// LoadConfig reads the config file at path, or the first default location
// that exists. Precedence is overrides, then environment, then file, then
// defaults.
func LoadConfig(path string, overrides ...Override) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/bmrcheck/config.yaml"),
			"/etc/bmrcheck/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig(overrides...)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	finish(&config, overrides)
	return &config, nil
}

func getDefaultConfig(overrides ...Override) (*Config, error) {
	config := &Config{}
	finish(config, overrides)
	return config, nil
}

func finish(config *Config, overrides []Override) {
	// Merge with environment variables
	mergeWithEnv(config)

	for _, o := range overrides {
		o(config)
	}

	// Apply defaults for unset values
	applyDefaults(config)
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "googleai" {
			config.LLM.Model = "gemini-2.0-flash"
		} else {
			config.LLM.Model = "mistral"
		}
	}
	if config.LLM.EmbeddingModel == "" {
		if config.LLM.Provider == "googleai" {
			config.LLM.EmbeddingModel = "text-embedding-004"
		} else {
			config.LLM.EmbeddingModel = "nomic-embed-text:latest"
		}
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 4096
	}
	if config.LLM.Temperature == nil {
		t := 0.1
		config.LLM.Temperature = &t
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.KnowledgeBase.Backend == "" {
		config.KnowledgeBase.Backend = BackendFlat
	}
	if config.KnowledgeBase.Path == "" {
		config.KnowledgeBase.Path = "Master_BMR"
	}
	if config.KnowledgeBase.K == 0 {
		config.KnowledgeBase.K = 5
	}
	if config.KnowledgeBase.Threshold == 0 {
		config.KnowledgeBase.Threshold = 0.8
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "master_chunks"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Throttle.RatePerSecond == 0 {
		config.Throttle.RatePerSecond = 0.5
	}
	if config.Throttle.Burst == 0 {
		config.Throttle.Burst = 1
	}
	if config.Throttle.MaxFailures == 0 {
		config.Throttle.MaxFailures = 5
	}
	if config.Throttle.OpenTimeoutSeconds == 0 {
		config.Throttle.OpenTimeoutSeconds = 30
	}

	if config.Processor.LinesPerChunk == 0 {
		config.Processor.LinesPerChunk = 300
	}
	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 300
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 50
	}

	if config.Output.Dir == "" {
		config.Output.Dir = "results"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if level := os.Getenv("BMRCHECK_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
