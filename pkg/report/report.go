// Package report renders an HTML bar chart of decks-per-archetype from a
// normalize.AnalyzeResult, for eyeballing a build's label distribution
// before publishing its artifacts.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	archerrors "github.com/klauer/archclass/internal/errors"
	"github.com/klauer/archclass/pkg/normalize"
)

// ChartConfig controls the rendered bar chart's presentation.
type ChartConfig struct {
	Title      string
	Subtitle   string
	Width      string
	Height     string
	Theme      string
	TopN       int
	ShowLegend bool
}

// DefaultChartConfig mirrors the presentation defaults a build report
// needs without any caller-supplied styling.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Title:      "Archetype distribution",
		Width:      "960px",
		Height:     "540px",
		Theme:      "light",
		TopN:       25,
		ShowLegend: false,
	}
}

// RenderArchetypeDistribution writes an HTML bar chart of the top
// cfg.TopN archetypes by deck count (from analyzed.Counts) to w.
func RenderArchetypeDistribution(analyzed normalize.AnalyzeResult, format string, cfg ChartConfig, w io.Writer) error {
	labels := append([]string(nil), analyzed.Labels...)
	sort.Slice(labels, func(i, j int) bool {
		if analyzed.Counts[labels[i]] != analyzed.Counts[labels[j]] {
			return analyzed.Counts[labels[i]] > analyzed.Counts[labels[j]]
		}
		return labels[i] < labels[j]
	})
	if cfg.TopN > 0 && len(labels) > cfg.TopN {
		labels = labels[:cfg.TopN]
	}
	if len(labels) == 0 {
		return archerrors.New(archerrors.CodeCorpusEmpty, fmt.Sprintf("no archetypes to report for %s", format))
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  cfg.Width,
			Height: cfg.Height,
			Theme:  cfg.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s: %s", cfg.Title, format),
			Subtitle: cfg.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(cfg.ShowLegend),
		}),
	)

	counts := make([]opts.BarData, len(labels))
	for i, label := range labels {
		counts[i] = opts.BarData{Value: analyzed.Counts[label]}
	}

	bar.SetXAxis(labels).
		AddSeries("decks", counts).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(true),
			}),
		)

	if err := bar.Render(w); err != nil {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("render %s report: %v", format, err))
	}
	return nil
}

// WriteArchetypeDistributionFile is RenderArchetypeDistribution against a
// freshly created file at outputPath.
func WriteArchetypeDistributionFile(analyzed normalize.AnalyzeResult, format string, cfg ChartConfig, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("create report file %s: %v", outputPath, err))
	}
	defer f.Close()
	return RenderArchetypeDistribution(analyzed, format, cfg, f)
}
