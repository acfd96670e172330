// Package pdftext detects tables on every page of a batch record PDF and
// renders them as bullet text.
package pdftext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/xhad/bmrcheck/pkg/tables"
	"go.uber.org/zap"
)

type ExtractorConfig struct {
	Logger *zap.Logger
}

// Extractor turns PDF pages into table grids.
type Extractor struct {
	config ExtractorConfig
	logger *zap.Logger
}

// Page holds the grids detected on one page. Number starts at 1.
type Page struct {
	Number int
	Grids  []tables.Grid
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Extractor{
		config: config,
		logger: config.Logger.With(zap.String("component", "pdftext")),
	}
}

// PageCount validates the file with pdfcpu and returns its page count.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	return count, nil
}

// ReadPages detects the tables of every page. The strict ruled geometry is
// tried first; the stream geometry only when it finds nothing.
func (e *Extractor) ReadPages(ctx context.Context, path string) ([]Page, error) {
	if count, err := PageCount(path); err != nil {
		e.logger.Warn("failed to validate PDF", zap.String("path", path), zap.Error(err))
	} else {
		e.logger.Info("opened PDF", zap.String("path", path), zap.Int("pages", count))
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages := make([]Page, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := Page{Number: i}
		p := r.Page(i)
		if !p.V.IsNull() {
			page.Grids = e.pageGrids(i, p)
		}
		e.logger.Debug("page processed", zap.Int("page", i), zap.Int("tables", len(page.Grids)))
		pages = append(pages, page)
	}
	return pages, nil
}

func (e *Extractor) pageGrids(n int, p pdf.Page) (grids []tables.Grid) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("failed to read page content", zap.Int("page", n), zap.Any("panic", r))
			grids = nil
		}
	}()

	content := p.Content()
	glyphs := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
	}
	boxes := make([]Box, 0, len(content.Rect))
	for _, r := range content.Rect {
		boxes = append(boxes, Box{X0: r.Min.X, Y0: r.Min.Y, X1: r.Max.X, Y1: r.Max.Y})
	}

	if grids := Ruled(boxes, glyphs); len(grids) > 0 {
		return grids
	}
	return Stream(glyphs, Verticals(boxes))
}

// Render returns the bullet lines of every page.
func Render(pages []Page) []string {
	var lines []string
	for _, p := range pages {
		lines = append(lines, tables.RenderPage(p.Number, p.Grids)...)
	}
	return lines
}

// ExtractFile renders the tables of the PDF at path into the text file out.
func (e *Extractor) ExtractFile(ctx context.Context, path, out string) error {
	pages, err := e.ReadPages(ctx, path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, []byte(strings.Join(Render(pages), "\n")), 0o644); err != nil {
		return fmt.Errorf("failed to write extracted text: %w", err)
	}

	e.logger.Info("extracted tables", zap.String("path", path), zap.String("out", out), zap.Int("pages", len(pages)))
	return nil
}
