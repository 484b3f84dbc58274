package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/klauer/archclass/pkg/nbac"
)

func addExplainCommand() *cli.Command {
	return &cli.Command{
		Name:      "explain",
		Usage:     "Show the top card contributions behind a decklist's score for one archetype",
		ArgsUsage: "<archetype> -- <card=qty> [card=qty ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Value:   "presence",
				Usage:   "NBAC model kind to explain (counts or presence)",
			},
			&cli.IntFlag{
				Name:  "top",
				Value: 10,
				Usage: "Number of top cards to print",
			},
			&cli.BoolFlag{
				Name:  "lift",
				Usage: "Score by lift over the background distribution instead of raw contribution",
			},
		},
		Action: explainCommand,
	}
}

func explainCommand(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadTrainingConfig(cmd)
	if err != nil {
		return err
	}
	format := cmd.String("format")
	if format == "" {
		return fmt.Errorf("--format is required")
	}

	args := cmd.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("usage: explain <archetype> <card=qty> [card=qty ...]")
	}
	archetype := args[0]
	deckCounts, err := parseDeckArgs(args[1:])
	if err != nil {
		return err
	}

	client, err := openStoreClient(cmd, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	metaBlob, err := client.GetMeta(format)
	if err != nil {
		return err
	}
	meta, err := decodeMeta(metaBlob)
	if err != nil {
		return err
	}

	kind := nbac.ModelKind(cmd.String("kind"))
	cardBlobs, err := client.GetCards(format, cardNames(deckCounts))
	if err != nil {
		return err
	}
	cards := make(map[string]nbac.CardEntry, len(cardBlobs))
	for name, blob := range cardBlobs {
		entry, err := decodeCardEntry(blob)
		if err != nil {
			return err
		}
		cards[name] = entry
	}

	contributions := nbac.Explain(meta, deckCounts, kind, cards, archetype, cmd.Int("top"), cmd.Bool("lift"))
	if len(contributions) == 0 {
		return fmt.Errorf("no contributions found for archetype %q", archetype)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "card\tscore\n")
	for _, c := range contributions {
		fmt.Fprintf(w, "%s\t%.4f\n", c.Card, c.Score)
	}
	return w.Flush()
}
