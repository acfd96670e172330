package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/bmrcheck/internal/models"
	"github.com/xhad/bmrcheck/pkg/compliance"
	"github.com/xhad/bmrcheck/pkg/metrics"
	"github.com/xhad/bmrcheck/pkg/normalizer"
	"github.com/xhad/bmrcheck/pkg/pdftext"
	"github.com/xhad/bmrcheck/pkg/processor"
	"github.com/xhad/bmrcheck/pkg/report"
	"go.uber.org/zap"
)

func newCheckCmd(opts *options) *cobra.Command {
	var outPath string
	var nonCompliantPath string

	cmd := &cobra.Command{
		Use:   "check <record.pdf|record.txt>",
		Short: "Check an executed batch record against the master record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args[0], outPath, nonCompliantPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Path of the JSON result (default <output.dir>/<name>_compliance.json)")
	cmd.Flags().StringVar(&nonCompliantPath, "non-compliant", "", "Also write only the non-compliant findings to this JSON file")
	return cmd
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// prepareText turns the input into normalized record text. PDFs go through
// table extraction first; text files are normalized as they are.
func prepareText(cmd *cobra.Command, opts *options, input string) (string, error) {
	ctx := cmd.Context()
	dir := opts.cfg.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	extracted := input
	if strings.EqualFold(filepath.Ext(input), ".pdf") {
		extracted = filepath.Join(dir, stem(input)+"_extracted.txt")
		spinner := getSpinner(" Extracting tables...")
		err := pdftext.NewWithConfig(pdftext.ExtractorConfig{Logger: opts.logger}).ExtractFile(ctx, input, extracted)
		spinner.Finish()
		if err != nil {
			return "", err
		}
		color.Green("\n✓ Extracted tables to %s", extracted)
	}

	cleaned := filepath.Join(dir, stem(input)+"_cleaned.txt")
	if err := normalizer.NormalizeFile(extracted, cleaned); err != nil {
		return "", err
	}
	color.Green("✓ Normalized records to %s", cleaned)
	return cleaned, nil
}

func runCheck(cmd *cobra.Command, opts *options, input, outPath, nonCompliantPath string) error {
	ctx := cmd.Context()
	cfg := opts.cfg
	logger := opts.logger

	kb, err := openKnowledgeBase(ctx, cfg)
	if err != nil {
		return err
	}
	defer kb.Close()
	logger.Info("knowledge base loaded",
		zap.String("backend", cfg.KnowledgeBase.Backend),
		zap.Int("chunks", kb.Len()))

	cleaned, err := prepareText(cmd, opts, input)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(cleaned)
	if err != nil {
		return fmt.Errorf("failed to read normalized text: %w", err)
	}
	chunks := processor.ChunkLines(string(data), cfg.Processor.LinesPerChunk)
	color.Blue("\nChecking %d chunks of %s\n", len(chunks), filepath.Base(input))

	m := metrics.New()
	gate := newGate(cfg, m, logger)

	chatEngine, err := newChatEngine(ctx, cfg)
	if err != nil {
		return err
	}
	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	bar := getProgressBar(len(chunks), " Checking compliance")
	pipeline := compliance.NewPipeline(
		compliance.NewExtractor(chatEngine, gate, logger),
		compliance.NewRetriever(emb, kb, gate, compliance.RetrieverConfig{
			Threshold: float32(cfg.KnowledgeBase.Threshold),
			Logger:    logger,
		}),
		compliance.NewAnalyzer(chatEngine, gate, logger),
		compliance.PipelineConfig{
			K:       cfg.KnowledgeBase.K,
			Metrics: m,
			Logger:  logger,
			OnChunk: func(models.ChunkResult) { bar.Add(1) },
		},
	)

	rep := pipeline.ProcessDocument(ctx, input, chunks)
	bar.Finish()
	logger.Info("compliance check finished",
		zap.Int("chunks", len(rep.Chunks)),
		zap.String("breaker", gate.State()))

	if outPath == "" {
		outPath = filepath.Join(cfg.Output.Dir, stem(input)+"_compliance.json")
	}
	if err := report.WriteJSON(outPath, rep); err != nil {
		return err
	}
	if nonCompliantPath != "" {
		if err := report.WriteJSON(nonCompliantPath, report.OnlyNonCompliant(rep)); err != nil {
			return err
		}
	}

	if cfg.Output.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			logger.Warn("failed to write metrics", zap.Error(err))
		}
	}

	printSummary(rep)
	color.Blue("\nResults written to %s", outPath)
	return ctx.Err()
}

func newSummaryCmd(opts *options) *cobra.Command {
	var nonCompliantPath string

	cmd := &cobra.Command{
		Use:   "summary <record_compliance.json>",
		Short: "Print the summary of a compliance result written by check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := report.ReadJSON(args[0])
			if err != nil {
				return err
			}
			opts.logger.Debug("loaded compliance result",
				zap.String("run_id", rep.RunID),
				zap.Int("chunks", len(rep.Chunks)))

			printSummary(rep)
			if nonCompliantPath != "" {
				if err := report.WriteJSON(nonCompliantPath, report.OnlyNonCompliant(rep)); err != nil {
					return err
				}
				color.Blue("\nNon-compliant findings written to %s", nonCompliantPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&nonCompliantPath, "non-compliant", "", "Write only the non-compliant findings to this JSON file")
	return cmd
}

func newExtractCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <record.pdf>",
		Short: "Extract and normalize the tables of a batch record without checking it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := prepareText(cmd, opts, args[0])
			return err
		},
	}
}
