// Package tables classifies table grids detected on a PDF page and renders
// them into the bullet line format read by the record normalizer.
package tables

import (
	"fmt"
	"regexp"
	"strings"
)

// Grid is a table as produced by table detection: rows of cells, where an
// empty string stands for a missing cell. Rows may differ in length.
type Grid [][]string

type Kind int

const (
	KindIrregular Kind = iota
	KindKeyValue
	KindMatrix
)

func (k Kind) String() string {
	switch k {
	case KindKeyValue:
		return "key_value"
	case KindMatrix:
		return "matrix"
	default:
		return "irregular"
	}
}

type Pair struct {
	Key   string
	Value string
}

// Block is the classified form of a Grid. Only the fields matching Kind are set.
type Block struct {
	Kind    Kind
	Pairs   []Pair
	Headers []string
	Rows    [][]string
}

// matrixRowRatio is the share of data rows that must match the header width.
const matrixRowRatio = 0.7

var (
	underscoreRun = regexp.MustCompile(`_+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Clean removes underscore runs (blank form fields), collapses whitespace and trims.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = underscoreRun.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Classify picks exactly one Kind for the grid and extracts its content.
func Classify(grid Grid) Block {
	switch {
	case isKeyValue(grid):
		return Block{Kind: KindKeyValue, Pairs: extractPairs(grid)}
	case isMatrix(grid):
		headers, rows := extractMatrix(grid)
		return Block{Kind: KindMatrix, Headers: headers, Rows: rows}
	default:
		return Block{Kind: KindIrregular, Rows: extractIrregular(grid)}
	}
}

func hasContent(row []string) bool {
	for _, c := range row {
		if c != "" {
			return true
		}
	}
	return false
}

func countNonBlank(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

func isKeyValue(grid Grid) bool {
	for _, row := range grid {
		if !hasContent(row) {
			continue
		}
		if countNonBlank(row) != 2 {
			return false
		}
	}
	return true
}

func isMatrix(grid Grid) bool {
	if len(grid) < 2 {
		return false
	}
	header := grid[0]
	if countNonBlank(header) < 3 {
		return false
	}

	matching := 0
	for _, row := range grid[1:] {
		if len(row) == len(header) {
			matching++
		}
	}
	return float64(matching)/float64(len(grid)-1) >= matrixRowRatio
}

func extractPairs(grid Grid) []Pair {
	var pairs []Pair
	for _, row := range grid {
		var cells []string
		for _, c := range row {
			if cleaned := Clean(c); cleaned != "" {
				cells = append(cells, cleaned)
			}
		}
		if len(cells) == 2 {
			pairs = append(pairs, Pair{Key: cells[0], Value: cells[1]})
		}
	}
	return pairs
}

func extractMatrix(grid Grid) ([]string, [][]string) {
	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = Clean(h)
		if headers[i] == "" {
			headers[i] = fmt.Sprintf("Col_%d", i)
		}
	}

	var rows [][]string
	for _, row := range grid[1:] {
		cleaned := make([]string, len(headers))
		for i := 0; i < len(row) && i < len(headers); i++ {
			cleaned[i] = Clean(row[i])
		}
		if hasContent(cleaned) {
			rows = append(rows, cleaned)
		}
	}
	return headers, rows
}

func extractIrregular(grid Grid) [][]string {
	var rows [][]string
	for _, row := range grid {
		var segs []string
		for _, c := range row {
			if strings.TrimSpace(c) == "" {
				continue
			}
			if cleaned := Clean(c); cleaned != "" {
				segs = append(segs, cleaned)
			}
		}
		if len(segs) > 0 {
			rows = append(rows, segs)
		}
	}
	return rows
}
