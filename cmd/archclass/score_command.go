package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/klauer/archclass/pkg/asi"
	"github.com/klauer/archclass/pkg/nbac"
	"github.com/klauer/archclass/pkg/store"
)

// ambiguity thresholds for nbac.IsAmbiguous: no store-exposed
// hyperparameter covers these per the training config, so they're fixed
// operator-facing constants instead.
const (
	ambiguityPMin  = 0.4
	ambiguityDelta = 0.1
)

func addScoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "score",
		Usage:     "Score a decklist against a format's trained archetype models",
		ArgsUsage: "<card=qty> [card=qty ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Value:   "presence",
				Usage:   "NBAC model kind to score with (counts or presence)",
			},
			&cli.IntFlag{
				Name:  "top",
				Value: 3,
				Usage: "Number of top archetypes to print",
			},
			&cli.BoolFlag{
				Name:  "asi",
				Usage: "Also score with the archetype similarity index bigram model",
			},
		},
		Action: scoreCommand,
	}
}

func scoreCommand(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadTrainingConfig(cmd)
	if err != nil {
		return err
	}
	format := cmd.String("format")
	if format == "" {
		return fmt.Errorf("--format is required")
	}

	deckCounts, err := parseDeckArgs(cmd.Args().Slice())
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

	probs := nbac.Score(meta, deckCounts, kind, cards)
	top := nbac.TopK(probs, cmd.Int("top"))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "archetype\tprobability\n")
	for _, e := range top {
		fmt.Fprintf(w, "%s\t%.4f\n", e.Archetype, e.Prob)
	}
	if nbac.IsAmbiguous(probs, ambiguityPMin, ambiguityDelta) {
		fmt.Fprintf(w, "(ambiguous)\t\n")
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if cmd.Bool("asi") {
		return scoreASI(client, format, deckCounts)
	}
	return nil
}

func scoreASI(client *store.Client, format string, deckCounts map[string]int) error {
	blob, err := client.GetASI(format)
	if err != nil {
		return err
	}
	bigrams, err := asi.DecodeArtifact(blob)
	if err != nil {
		return err
	}
	cards := cardNames(deckCounts)
	filtered := asi.FilterForCards(bigrams, cards)
	nearest := asi.FindNearest(filtered, cards)

	type row struct {
		archetype string
		score     float64
	}
	rows := make([]row, 0, len(nearest))
	for a, s := range nearest {
		rows = append(rows, row{a, s})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].score > rows[j].score })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "\nasi archetype\tscore\n")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%.4f\n", r.archetype, r.score)
	}
	return w.Flush()
}

func cardNames(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	return names
}

// parseDeckArgs turns "card=qty" CLI arguments into a card-name-to-
// quantity map. A bare card name (no "=qty") defaults to quantity 1.
func parseDeckArgs(args []string) (map[string]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one card argument is required")
	}
	counts := make(map[string]int, len(args))
	for _, arg := range args {
		name, qtyStr, hasQty := strings.Cut(arg, "=")
		qty := 1
		if hasQty {
			n, err := strconv.Atoi(qtyStr)
			if err != nil {
				return nil, fmt.Errorf("invalid quantity in %q: %w", arg, err)
			}
			qty = n
		}
		counts[name] += qty
	}
	return counts, nil
}
