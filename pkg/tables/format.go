package tables

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// NoTables is emitted for a page on which no geometry found a table.
	NoTables = "- (No tables found)"

	irregularSeparator = " | "
	nestedBullet       = "    • "
)

var (
	exportClaim   = regexp.MustCompile(`(?i)export\s*:\s*(.+?)(?:domestic|$)`)
	domesticClaim = regexp.MustCompile(`(?i)domestic\s*:\s*(.+)`)
)

// Format renders a block as bullet lines.
func Format(b Block) []string {
	switch b.Kind {
	case KindKeyValue:
		return formatKeyValue(b.Pairs)
	case KindMatrix:
		return formatMatrix(b.Headers, b.Rows)
	default:
		return formatIrregular(b.Rows)
	}
}

func formatKeyValue(pairs []Pair) []string {
	var lines []string
	for _, p := range pairs {
		if !strings.Contains(strings.ToLower(p.Key), "label claim") {
			lines = append(lines, fmt.Sprintf("- %s: %s", p.Key, p.Value))
			continue
		}

		lines = append(lines, "- Label Claim:")
		if m := exportClaim.FindStringSubmatch(p.Value); m != nil {
			lines = append(lines, nestedBullet+"Export: "+Clean(m[1]))
		}
		if m := domesticClaim.FindStringSubmatch(p.Value); m != nil {
			lines = append(lines, nestedBullet+"Domestic: "+Clean(m[1]))
		}
	}
	return lines
}

func formatMatrix(headers []string, rows [][]string) []string {
	lines := make([]string, 0, len(headers)+len(rows))
	for _, h := range headers {
		lines = append(lines, "- "+h)
	}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("- %s:", row[0]))
		for i := 1; i < len(row) && i < len(headers); i++ {
			if row[i] != "" {
				lines = append(lines, fmt.Sprintf("%s%s: %s", nestedBullet, headers[i], row[i]))
			}
		}
	}
	return lines
}

func formatIrregular(rows [][]string) []string {
	lines := make([]string, 0, len(rows))
	for _, segs := range rows {
		lines = append(lines, "- "+strings.Join(segs, irregularSeparator))
	}
	return lines
}

// RenderPage renders every grid of one page, preceded by a "Page N:" header
// and followed by a blank line. Rows without any content are dropped before
// classification.
func RenderPage(pageNo int, grids []Grid) []string {
	lines := []string{fmt.Sprintf("Page %d:", pageNo)}
	if len(grids) == 0 {
		return append(lines, NoTables, "")
	}

	for _, g := range grids {
		var kept Grid
		for _, row := range g {
			if hasContent(row) {
				kept = append(kept, row)
			}
		}
		lines = append(lines, Format(Classify(kept))...)
	}
	return append(lines, "")
}
