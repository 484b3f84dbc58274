package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauer/archclass/pkg/corpus"
	"github.com/klauer/archclass/pkg/normalize"
	"github.com/klauer/archclass/pkg/report"
)

func addReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Render an HTML bar chart of decks-per-archetype for a format",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "archetype-distribution.html",
				Usage:   "Path to write the HTML chart to",
			},
			&cli.IntFlag{
				Name:  "top",
				Value: 25,
				Usage: "Number of archetypes to plot, ranked by deck count",
			},
		},
		Action: reportCommand,
	}
}

func reportCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadTrainingConfig(cmd)
	if err != nil {
		return err
	}
	format := cmd.String("format")
	if format == "" {
		return fmt.Errorf("--format is required")
	}

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		return fmt.Errorf("DATABASE_URL must be set to report against the corpus")
	}
	loader, err := corpus.NewLoader(ctx, connStr, cfg)
	if err != nil {
		return err
	}
	defer loader.Close()

	decks, err := loader.Load(ctx, format, time.Now())
	if err != nil {
		return err
	}
	entries := make([]normalize.DeckEntry, len(decks))
	for i, d := range decks {
		entries[i] = normalize.DeckEntry{DisplayName: d.DisplayName, ArchetypeRaw: d.ArchetypeRaw}
	}
	analyzed := normalize.Analyze(entries)

	chartCfg := report.DefaultChartConfig()
	chartCfg.TopN = cmd.Int("top")

	outputPath := cmd.String("output")
	if err := report.WriteArchetypeDistributionFile(analyzed, format, chartCfg, outputPath); err != nil {
		return err
	}

	printf("wrote %s\n", outputPath)
	return nil
}
