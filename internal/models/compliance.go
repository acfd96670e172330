package models

import "time"

// NonStated is the placeholder used wherever a value is missing.
const NonStated = "non stated"

type Parameter struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Context string `json:"context"`
}

type ComplianceFinding struct {
	Parameter     string `json:"parameter"`
	ActualValue   string `json:"actual_value"`
	ExpectedValue string `json:"expected_value"`
	IsCompliant   bool   `json:"is_compliant"`
	Explanation   string `json:"explanation"`
}

// StandardParameters maps administrative parameter names (batch number,
// reference numbers, dates, product name) to their recorded value.
type StandardParameters map[string]string

// Merge copies other into s. Keys already present are overwritten.
func (s StandardParameters) Merge(other StandardParameters) {
	for k, v := range other {
		s[k] = v
	}
}

// FallbackFinding builds a finding carrying only an explanation.
func FallbackFinding(explanation string) ComplianceFinding {
	return ComplianceFinding{
		Parameter:     NonStated,
		ActualValue:   NonStated,
		ExpectedValue: NonStated,
		IsCompliant:   false,
		Explanation:   explanation,
	}
}

type ChunkResult struct {
	ChunkIndex int                 `json:"chunk_index"`
	Compliance []ComplianceFinding `json:"compliance"`
	Degraded   bool                `json:"degraded,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

// Report is the document level result handed to the reporting layer.
type Report struct {
	RunID          string             `json:"run_id"`
	Source         string             `json:"source"`
	CreatedAt      time.Time          `json:"created_at"`
	Chunks         []ChunkResult      `json:"chunks"`
	StandardParams StandardParameters `json:"standard_params"`
}
