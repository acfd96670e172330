package main

import (
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/bmrcheck/internal/models"
	"github.com/xhad/bmrcheck/pkg/report"
)

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printSummary(rep models.Report) {
	stats := report.Summary(rep)

	color.Green("\n✓ Checked %d chunks (%d degraded)", stats.Chunks, stats.DegradedChunks)
	color.Cyan("  Findings: %d compliant, %d non-compliant, %d without master value",
		stats.Compliant, stats.NonCompliant, stats.NotStated)

	if len(rep.StandardParams) > 0 {
		color.Cyan("\nStandard parameters:")
		for k, v := range rep.StandardParams {
			color.White("  %s: %s", k, v)
		}
	}

	issues := report.NonCompliant(rep)
	if len(issues) == 0 {
		color.Green("\n✓ No non-compliant parameters found")
	} else {
		color.Red("\nNon-compliant parameters:")
		for _, is := range issues {
			color.Red("  [chunk %d] %s: %s (expected %s)", is.ChunkIndex, is.Parameter, is.ActualValue, is.ExpectedValue)
			color.White("      %s", is.Explanation)
		}
	}
}
