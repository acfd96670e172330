package compliance

import (
	"context"
	"fmt"
	"strings"

	"github.com/xhad/bmrcheck/internal/models"
	"github.com/xhad/bmrcheck/pkg/metrics"
	"github.com/xhad/bmrcheck/pkg/processor"
	"github.com/xhad/bmrcheck/pkg/report"
	"go.uber.org/zap"
)

const (
	noParameters   = "No parameters extracted from input chunk"
	noCompliance   = "No compliance data available due to analysis failure"
	chunkErrPrefix = "Error processing chunk: "
)

type PipelineConfig struct {
	K       int
	Metrics *metrics.Metrics // optional
	Logger  *zap.Logger
	// OnChunk is called after each chunk of a document.
	OnChunk func(result models.ChunkResult)
}

// ChunkOutcome is the result for one chunk. Compliance is never empty.
type ChunkOutcome struct {
	Compliance     []models.ComplianceFinding
	StandardParams models.StandardParameters
	Degraded       bool
	Reason         string
}

// Pipeline runs extraction, retrieval and analysis for each chunk.
type Pipeline struct {
	config    PipelineConfig
	extractor *Extractor
	retriever *Retriever
	analyzer  *Analyzer
	logger    *zap.Logger
}

func NewPipeline(extractor *Extractor, retriever *Retriever, analyzer *Analyzer, config PipelineConfig) *Pipeline {
	if config.K <= 0 {
		config.K = DefaultK
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Pipeline{
		config:    config,
		extractor: extractor,
		retriever: retriever,
		analyzer:  analyzer,
		logger:    config.Logger.With(zap.String("component", "pipeline")),
	}
}

func fallback(explanation, reason string) ChunkOutcome {
	return ChunkOutcome{
		Compliance:     []models.ComplianceFinding{models.FallbackFinding(explanation)},
		StandardParams: models.StandardParameters{},
		Degraded:       true,
		Reason:         reason,
	}
}

// ProcessChunk checks one chunk. It always returns at least one finding: a
// stage failure or a panic becomes a fallback finding.
func (p *Pipeline) ProcessChunk(ctx context.Context, chunk string) (out ChunkOutcome) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			p.logger.Error("recovered from panic while processing chunk", zap.String("panic", msg))
			out = fallback(chunkErrPrefix+msg, msg)
		}
	}()

	params := p.extractor.Extract(ctx, chunk)
	p.stage("extract", params.Degraded)
	if len(params.Value) == 0 {
		reason := params.Reason
		if reason == "" {
			reason = "no parameters"
		}
		p.logger.Warn("no parameters extracted from chunk")
		return fallback(noParameters, reason)
	}

	refs := p.retriever.Retrieve(ctx, buildQuery(params.Value), p.config.K)
	p.stage("retrieve", refs.Degraded)
	references := refs.Value
	if len(references) == 0 {
		p.logger.Warn("no relevant master chunks, analyzing without reference")
		references = []models.RetrievedChunk{{ChunkMeta: models.ChunkMeta{Text: models.NonStated}}}
	}

	analysis := p.analyzer.Analyze(ctx, params.Value, references)
	p.stage("analyze", analysis.Degraded)
	if len(analysis.Value.Findings) == 0 {
		reason := analysis.Reason
		if reason == "" {
			reason = "no findings"
		}
		return ChunkOutcome{
			Compliance:     []models.ComplianceFinding{models.FallbackFinding(noCompliance)},
			StandardParams: analysis.Value.Standard,
			Degraded:       true,
			Reason:         reason,
		}
	}

	var reasons []string
	for _, r := range []string{refs.Reason, analysis.Reason} {
		if r != "" {
			reasons = append(reasons, r)
		}
	}
	return ChunkOutcome{
		Compliance:     analysis.Value.Findings,
		StandardParams: analysis.Value.Standard,
		Degraded:       refs.Degraded || analysis.Degraded,
		Reason:         strings.Join(reasons, "; "),
	}
}

// buildQuery joins parameters as "name: value" pairs.
func buildQuery(params []models.Parameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Name+": "+p.Value)
	}
	return strings.Join(parts, ", ")
}

// ProcessDocument checks chunks in order and returns one result per chunk.
// Standard parameters are merged across the chunks of this document only.
// Once ctx is done the remaining chunks get a fallback finding without any
// call being made.
func (p *Pipeline) ProcessDocument(ctx context.Context, source string, chunks []processor.Chunk) models.Report {
	rep := report.New(source)
	logger := p.logger.With(zap.String("run_id", rep.RunID), zap.String("source", source))
	logger.Info("processing document", zap.Int("chunks", len(chunks)))

	for _, c := range chunks {
		var out ChunkOutcome
		if err := ctx.Err(); err != nil {
			out = fallback(chunkErrPrefix+err.Error(), err.Error())
		} else {
			logger.Info("processing chunk", zap.Int("chunk", c.Index))
			out = p.ProcessChunk(ctx, c.Text)
		}

		rep.StandardParams.Merge(out.StandardParams)
		result := models.ChunkResult{
			ChunkIndex: c.Index,
			Compliance: out.Compliance,
			Degraded:   out.Degraded,
			Reason:     out.Reason,
		}
		rep.Chunks = append(rep.Chunks, result)

		p.record(out)
		if p.config.OnChunk != nil {
			p.config.OnChunk(result)
		}
	}

	logger.Info("document processed",
		zap.Int("chunks", len(rep.Chunks)),
		zap.Int("standard_params", len(rep.StandardParams)))
	return rep
}

func (p *Pipeline) stage(name string, degraded bool) {
	if p.config.Metrics != nil {
		p.config.Metrics.Stage(name, degraded)
	}
}

func (p *Pipeline) record(out ChunkOutcome) {
	if p.config.Metrics == nil {
		return
	}
	p.config.Metrics.Chunk(out.Degraded)
	for _, f := range out.Compliance {
		p.config.Metrics.Finding(f.IsCompliant)
	}
}
