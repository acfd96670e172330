package compliance

import (
	"context"
	"fmt"

	"github.com/xhad/bmrcheck/internal/models"
	"github.com/xhad/bmrcheck/internal/types"
	"github.com/xhad/bmrcheck/pkg/lenient"
	"github.com/xhad/bmrcheck/pkg/throttle"
	"go.uber.org/zap"
)

var parameterDecoder = lenient.Decoder{Shape: lenient.Array, Schema: lenient.MustCompile(`{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "value", "context"],
		"properties": {
			"name": {"type": "string"},
			"value": {"type": "string"},
			"context": {"type": "string"}
		}
	}
}`)}

// Extractor asks the generative model for the verifiable parameters of a
// chunk.
type Extractor struct {
	gen    types.Generator
	gate   *throttle.Gate
	logger *zap.Logger
}

func NewExtractor(gen types.Generator, gate *throttle.Gate, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		gen:    gen,
		gate:   gate,
		logger: logger.With(zap.String("component", "extractor")),
	}
}

// Extract returns the parameters found in chunk, or a degraded empty list
// when the call or the reply fails.
func (e *Extractor) Extract(ctx context.Context, chunk string) Outcome[[]models.Parameter] {
	e.logger.Info("extracting parameters", zap.Int("chars", len(chunk)))

	reply, err := throttle.Call(ctx, e.gate, "extract", func(ctx context.Context) (string, error) {
		return e.gen.Generate(ctx, extractionSystem, extractionPrompt(chunk))
	})
	if err != nil {
		return e.fail(fmt.Errorf("generate: %w", err))
	}
	e.logger.Debug("raw extraction reply", zap.String("reply", reply))

	var params []models.Parameter
	if err := parameterDecoder.Decode(reply, &params); err != nil {
		return e.fail(err)
	}
	if params == nil {
		params = []models.Parameter{}
	}

	e.logger.Info("extracted parameters", zap.Int("count", len(params)))
	for _, p := range params {
		e.logger.Debug("parameter",
			zap.String("name", p.Name),
			zap.String("value", p.Value),
			zap.String("context", p.Context))
	}
	return ok(params)
}

func (e *Extractor) fail(err error) Outcome[[]models.Parameter] {
	e.logger.Error("error extracting parameters", zap.Error(err))
	return degraded([]models.Parameter{}, err.Error())
}
