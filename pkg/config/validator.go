package config

import (
	"fmt"
	"net/url"

	"go.uber.org/zap/zapcore"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	switch c.LLM.Provider {
	case "ollama":
		if c.LLM.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "Ollama base URL is required",
			})
		} else if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid Ollama base URL",
			})
		}
	case "googleai":
		if c.LLM.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.api_key",
				Message: "api_key (or GOOGLE_API_KEY) is required for googleai",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider: %s", c.LLM.Provider),
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 1) {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 1",
		})
	}

	// Validate knowledge base config
	switch c.KnowledgeBase.Backend {
	case BackendFlat:
		if c.KnowledgeBase.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "knowledge_base.path",
				Message: "path is required for the flat backend",
			})
		}
	case BackendPgvector:
		if c.Database.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "database URL is required for the pgvector backend",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "knowledge_base.backend",
			Message: fmt.Sprintf("unknown backend: %s", c.KnowledgeBase.Backend),
		})
	}

	if c.KnowledgeBase.K < 1 {
		errors = append(errors, ValidationError{
			Field:   "knowledge_base.k",
			Message: "k must be positive",
		})
	}

	if c.KnowledgeBase.Threshold <= 0 {
		errors = append(errors, ValidationError{
			Field:   "knowledge_base.threshold",
			Message: "threshold must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate Throttle config
	if c.Throttle.Burst < 1 {
		errors = append(errors, ValidationError{
			Field:   "throttle.burst",
			Message: "burst must be positive",
		})
	}

	if c.Throttle.MaxFailures < 1 {
		errors = append(errors, ValidationError{
			Field:   "throttle.max_failures",
			Message: "max_failures must be positive",
		})
	}

	if c.Throttle.OpenTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "throttle.open_timeout_seconds",
			Message: "open_timeout_seconds must be positive",
		})
	}

	// Validate Processor config
	if c.Processor.LinesPerChunk < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.lines_per_chunk",
			Message: "lines_per_chunk must be positive",
		})
	}

	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	// Validate Log config
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid log level: %s", c.Log.Level),
		})
	}

	if c.Log.Format != "console" && c.Log.Format != "json" {
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Message: "format must be console or json",
		})
	}

	return errors
}
