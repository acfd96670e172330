// Package report builds and writes the result artifact of a run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/bmrcheck/internal/models"
)

// New returns an empty report with a fresh run ID.
func New(source string) models.Report {
	return models.Report{
		RunID:          uuid.NewString(),
		Source:         filepath.Base(source),
		CreatedAt:      time.Now().UTC(),
		Chunks:         []models.ChunkResult{},
		StandardParams: models.StandardParameters{},
	}
}

// WriteJSON writes the report as indented JSON, creating parent directories.
func WriteJSON(path string, rep models.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (models.Report, error) {
	var rep models.Report
	data, err := os.ReadFile(path)
	if err != nil {
		return rep, fmt.Errorf("failed to read report: %w", err)
	}
	if err := json.Unmarshal(data, &rep); err != nil {
		return rep, fmt.Errorf("failed to parse report: %w", err)
	}
	return rep, nil
}

// Issue is a non-compliant finding with the chunk it came from.
type Issue struct {
	ChunkIndex int `json:"chunk_index"`
	models.ComplianceFinding
}

// NonCompliant lists findings judged non-compliant against a stated
// expectation. Fallback findings and findings without a master value are
// left out.
func NonCompliant(rep models.Report) []Issue {
	var issues []Issue
	for _, c := range rep.Chunks {
		for _, f := range c.Compliance {
			if f.IsCompliant || f.ExpectedValue == models.NonStated {
				continue
			}
			issues = append(issues, Issue{ChunkIndex: c.ChunkIndex, ComplianceFinding: f})
		}
	}
	return issues
}

// OnlyNonCompliant returns a copy of rep keeping only the chunks with
// non-compliant findings, and only those findings.
func OnlyNonCompliant(rep models.Report) models.Report {
	out := rep
	out.Chunks = []models.ChunkResult{}
	for _, is := range NonCompliant(rep) {
		n := len(out.Chunks)
		if n == 0 || out.Chunks[n-1].ChunkIndex != is.ChunkIndex {
			out.Chunks = append(out.Chunks, models.ChunkResult{ChunkIndex: is.ChunkIndex})
			n++
		}
		out.Chunks[n-1].Compliance = append(out.Chunks[n-1].Compliance, is.ComplianceFinding)
	}
	return out
}

type Stats struct {
	Chunks         int `json:"chunks"`
	DegradedChunks int `json:"degraded_chunks"`
	Findings       int `json:"findings"`
	Compliant      int `json:"compliant"`
	NonCompliant   int `json:"non_compliant"`
	NotStated      int `json:"not_stated"`
	StandardParams int `json:"standard_params"`
}

// Summary counts chunks and findings. NonCompliant matches len(NonCompliant(rep)).
func Summary(rep models.Report) Stats {
	s := Stats{Chunks: len(rep.Chunks), StandardParams: len(rep.StandardParams)}
	for _, c := range rep.Chunks {
		if c.Degraded {
			s.DegradedChunks++
		}
		for _, f := range c.Compliance {
			s.Findings++
			switch {
			case f.IsCompliant:
				s.Compliant++
			case f.ExpectedValue == models.NonStated:
				s.NotStated++
			default:
				s.NonCompliant++
			}
		}
	}
	return s
}
