package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xhad/bmrcheck/internal/models"
	"github.com/xhad/bmrcheck/internal/types"
	"github.com/xhad/bmrcheck/pkg/lenient"
	"github.com/xhad/bmrcheck/pkg/throttle"
	"go.uber.org/zap"
)

const noExplanation = "No explanation provided"

var (
	findingsDecoder = lenient.Decoder{
		Shape:  lenient.Array,
		Repair: true,
		Schema: lenient.MustCompile(`{"type": "array", "items": {"type": "object"}}`),
	}
	standardDecoder = lenient.Decoder{
		Shape:  lenient.Object,
		Repair: true,
		Schema: lenient.MustCompile(`{"type": "object", "additionalProperties": {"type": "string"}}`),
	}
)

// AnalysisResult holds the per-parameter findings and the administrative
// parameters split out of them. No key of Standard is the Parameter of a
// finding.
type AnalysisResult struct {
	Findings []models.ComplianceFinding
	Standard models.StandardParameters
}

func emptyAnalysis() AnalysisResult {
	return AnalysisResult{
		Findings: []models.ComplianceFinding{},
		Standard: models.StandardParameters{},
	}
}

// Analyzer judges extracted parameters against master record text.
type Analyzer struct {
	gen    types.Generator
	gate   *throttle.Gate
	logger *zap.Logger
}

func NewAnalyzer(gen types.Generator, gate *throttle.Gate, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		gen:    gen,
		gate:   gate,
		logger: logger.With(zap.String("component", "analyzer")),
	}
}

// Analyze makes two calls: one judging every parameter, one picking the
// standard parameters out of the judgments. Any failure degrades to an empty
// result.
func (a *Analyzer) Analyze(ctx context.Context, params []models.Parameter, refs []models.RetrievedChunk) Outcome[AnalysisResult] {
	findings, err := a.judge(ctx, params, refs)
	if err != nil {
		return a.fail(err)
	}
	a.logger.Info("compliance analysis completed", zap.Int("parameters", len(findings)))

	standard, err := a.standard(ctx, findings)
	if err != nil {
		return a.fail(err)
	}

	filtered := make([]models.ComplianceFinding, 0, len(findings))
	for _, f := range findings {
		if _, isStandard := standard[f.Parameter]; !isStandard {
			filtered = append(filtered, f)
		}
	}

	a.logger.Info("standard parameters identified",
		zap.Int("standard", len(standard)),
		zap.Int("remaining", len(filtered)))
	return ok(AnalysisResult{Findings: filtered, Standard: standard})
}

func (a *Analyzer) judge(ctx context.Context, params []models.Parameter, refs []models.RetrievedChunk) ([]models.ComplianceFinding, error) {
	paramsJSON, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}
	texts := make([]string, 0, len(refs))
	for _, r := range refs {
		texts = append(texts, r.Text)
	}
	prompt := analysisPrompt(string(paramsJSON), strings.Join(texts, "\n"))

	reply, err := throttle.Call(ctx, a.gate, "analyze", func(ctx context.Context) (string, error) {
		return a.gen.Generate(ctx, analysisSystem, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("generate analysis: %w", err)
	}
	a.logger.Debug("raw analysis reply", zap.String("reply", reply))

	var entries []map[string]any
	if err := findingsDecoder.Decode(reply, &entries); err != nil {
		return nil, err
	}

	findings := make([]models.ComplianceFinding, 0, len(entries))
	for _, e := range entries {
		findings = append(findings, cleanFinding(e))
	}
	return findings, nil
}

func (a *Analyzer) standard(ctx context.Context, findings []models.ComplianceFinding) (models.StandardParameters, error) {
	findingsJSON, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode findings: %w", err)
	}

	reply, err := throttle.Call(ctx, a.gate, "standard_params", func(ctx context.Context) (string, error) {
		return a.gen.Generate(ctx, standardSystem, standardPrompt(string(findingsJSON)))
	})
	if err != nil {
		return nil, fmt.Errorf("generate standard parameters: %w", err)
	}
	a.logger.Debug("raw standard parameters reply", zap.String("reply", reply))

	standard := models.StandardParameters{}
	if err := standardDecoder.Decode(reply, &standard); err != nil {
		return nil, err
	}
	return standard, nil
}

func (a *Analyzer) fail(err error) Outcome[AnalysisResult] {
	a.logger.Error("error in compliance analysis", zap.Error(err))
	return degraded(emptyAnalysis(), err.Error())
}

// cleanFinding fills missing fields with defaults and coerces is_compliant.
func cleanFinding(e map[string]any) models.ComplianceFinding {
	return models.ComplianceFinding{
		Parameter:     stringField(e, "parameter", models.NonStated),
		ActualValue:   stringField(e, "actual_value", models.NonStated),
		ExpectedValue: stringField(e, "expected_value", models.NonStated),
		IsCompliant:   coerceBool(e["is_compliant"]),
		Explanation:   stringField(e, "explanation", noExplanation),
	}
}

func stringField(e map[string]any, key, def string) string {
	switch v := e[key].(type) {
	case nil:
		return def
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// coerceBool keeps booleans, maps the string "true" (any case) to true and
// everything else to false.
func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(strings.TrimSpace(b), "true")
	default:
		return false
	}
}
