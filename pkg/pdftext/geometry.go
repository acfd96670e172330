package pdftext

import (
	"math"
	"sort"
	"strings"

	"github.com/xhad/bmrcheck/pkg/tables"
)

// Glyph is a run of text placed on the page. Y is the baseline and grows
// upward, as in PDF user space.
type Glyph struct {
	X, Y, W float64
	Size    float64
	S       string
}

func (g Glyph) centerX() float64 { return g.X + g.W/2 }
func (g Glyph) centerY() float64 { return g.Y + g.Size*0.3 }

// Box is a filled or stroked rectangle drawn on the page.
type Box struct {
	X0, Y0, X1, Y1 float64
}

func (b Box) normalize() Box {
	return Box{
		X0: math.Min(b.X0, b.X1), X1: math.Max(b.X0, b.X1),
		Y0: math.Min(b.Y0, b.Y1), Y1: math.Max(b.Y0, b.Y1),
	}
}

func (b Box) width() float64  { return b.X1 - b.X0 }
func (b Box) height() float64 { return b.Y1 - b.Y0 }

func (b Box) touches(o Box, tol float64) bool {
	return b.X0 <= o.X1+tol && o.X0 <= b.X1+tol && b.Y0 <= o.Y1+tol && o.Y0 <= b.Y1+tol
}

const (
	snapTolerance = 2.0 // points
	lineThickness = 2.0 // rectangles thinner than this are ruling lines
	wordGap       = 0.2 // of font size
	columnGap     = 1.5 // of font size
)

// Ruled builds grids from ruling lines and cell boxes. Touching rectangles
// form one table; each distinct vertical edge starts a column and each
// distinct horizontal edge a row. Glyphs are placed by their center.
func Ruled(boxes []Box, glyphs []Glyph) []tables.Grid {
	var norm []Box
	for _, b := range boxes {
		b = b.normalize()
		if b.width() < 0.5 && b.height() < 0.5 {
			continue
		}
		norm = append(norm, b)
	}

	var grids []tables.Grid
	for _, cluster := range clusterBoxes(norm) {
		var xs, ys []float64
		for _, b := range cluster {
			thinX := b.width() <= lineThickness
			thinY := b.height() <= lineThickness
			switch {
			case thinX && !thinY:
				xs = append(xs, (b.X0+b.X1)/2)
			case thinY && !thinX:
				ys = append(ys, (b.Y0+b.Y1)/2)
			default:
				xs = append(xs, b.X0, b.X1)
				ys = append(ys, b.Y0, b.Y1)
			}
		}
		xs = snap(xs)
		ys = snap(ys)
		if len(xs) < 2 || len(ys) < 2 || (len(xs)-1)*(len(ys)-1) < 2 {
			continue
		}

		// rows run top to bottom
		sort.Sort(sort.Reverse(sort.Float64Slice(ys)))
		cells := make([][][]Glyph, len(ys)-1)
		for r := range cells {
			cells[r] = make([][]Glyph, len(xs)-1)
		}
		for _, g := range glyphs {
			c := sort.SearchFloat64s(xs, g.centerX()) - 1
			if c < 0 || c >= len(xs)-1 {
				continue
			}
			r := -1
			for i := 0; i < len(ys)-1; i++ {
				if g.centerY() <= ys[i] && g.centerY() > ys[i+1] {
					r = i
					break
				}
			}
			if r < 0 {
				continue
			}
			cells[r][c] = append(cells[r][c], g)
		}

		grid := make(tables.Grid, len(cells))
		for r, row := range cells {
			grid[r] = make([]string, len(row))
			for c, gs := range row {
				grid[r][c] = cellText(gs)
			}
		}
		grids = append(grids, grid)
	}
	return grids
}

// clusterBoxes groups touching boxes, topmost group first.
func clusterBoxes(boxes []Box) [][]Box {
	parent := make([]int, len(boxes))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if boxes[i].touches(boxes[j], snapTolerance) {
				parent[find(i)] = find(j)
			}
		}
	}

	groups := map[int][]Box{}
	var roots []int
	for i, b := range boxes {
		r := find(i)
		if _, seen := groups[r]; !seen {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], b)
	}

	out := make([][]Box, 0, len(roots))
	for _, r := range roots {
		out = append(out, groups[r])
	}
	sort.SliceStable(out, func(a, b int) bool { return top(out[a]) > top(out[b]) })
	return out
}

func top(boxes []Box) float64 {
	t := math.Inf(-1)
	for _, b := range boxes {
		t = math.Max(t, b.Y1)
	}
	return t
}

// snap sorts values and merges those closer than snapTolerance.
func snap(vals []float64) []float64 {
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)
	out := []float64{vals[0]}
	for _, v := range vals[1:] {
		if v-out[len(out)-1] > snapTolerance {
			out = append(out, v)
		}
	}
	return out
}

// Stream finds tables without drawn cells: consecutive text lines that split
// into two or more segments form a table, one row per line. Segments break
// at wide gaps and at vertical rulings.
func Stream(glyphs []Glyph, verticals []float64) []tables.Grid {
	var grids []tables.Grid
	var run tables.Grid
	flush := func() {
		if len(run) >= 2 {
			grids = append(grids, run)
		}
		run = nil
	}

	for _, line := range groupLines(glyphs) {
		segs := segments(line, verticals)
		if len(segs) < 2 {
			flush()
			continue
		}
		run = append(run, segs)
	}
	flush()
	return grids
}

// Verticals returns the x positions of vertical ruling lines among boxes.
func Verticals(boxes []Box) []float64 {
	var xs []float64
	for _, b := range boxes {
		b = b.normalize()
		if b.width() <= lineThickness && b.height() > lineThickness {
			xs = append(xs, (b.X0+b.X1)/2)
		}
	}
	return snap(xs)
}

// groupLines groups glyphs sharing a baseline, top line first, each line
// ordered left to right.
func groupLines(glyphs []Glyph) [][]Glyph {
	if len(glyphs) == 0 {
		return nil
	}
	sorted := append([]Glyph(nil), glyphs...)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Y != sorted[b].Y {
			return sorted[a].Y > sorted[b].Y
		}
		return sorted[a].X < sorted[b].X
	})

	var lines [][]Glyph
	var cur []Glyph
	var baseline float64
	for _, g := range sorted {
		tol := math.Max(g.Size*0.5, 1)
		if len(cur) > 0 && math.Abs(g.Y-baseline) > tol {
			lines = append(lines, cur)
			cur = nil
		}
		if len(cur) == 0 {
			baseline = g.Y
		}
		cur = append(cur, g)
	}
	lines = append(lines, cur)

	for _, l := range lines {
		sort.SliceStable(l, func(a, b int) bool { return l[a].X < l[b].X })
	}
	return lines
}

func segments(line []Glyph, verticals []float64) []string {
	var segs []string
	var cur []Glyph
	for i, g := range line {
		if i > 0 {
			prev := line[i-1]
			end := prev.X + prev.W
			if g.X-end > columnGap*math.Max(g.Size, 1) || crosses(verticals, end, g.X) {
				if s := joinRun(cur); s != "" {
					segs = append(segs, s)
				}
				cur = nil
			}
		}
		cur = append(cur, g)
	}
	if s := joinRun(cur); s != "" {
		segs = append(segs, s)
	}
	return segs
}

func crosses(xs []float64, from, to float64) bool {
	for _, x := range xs {
		if x > from && x < to {
			return true
		}
	}
	return false
}

// joinRun concatenates glyphs of one line, adding a space at word gaps.
func joinRun(line []Glyph) string {
	var b strings.Builder
	for i, g := range line {
		if i > 0 {
			prev := line[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > wordGap*math.Max(g.Size, 1) &&
				!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return strings.TrimSpace(b.String())
}

func cellText(glyphs []Glyph) string {
	var parts []string
	for _, line := range groupLines(glyphs) {
		if s := joinRun(line); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
