package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/klauer/archclass/internal/config"
	"github.com/klauer/archclass/pkg/asi"
	"github.com/klauer/archclass/pkg/corpus"
	"github.com/klauer/archclass/pkg/nbac"
	"github.com/klauer/archclass/pkg/normalize"
	"github.com/klauer/archclass/pkg/store"
)

func addBuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Train ASI bigram weights and NBAC models for one format (or all formats) and store the artifacts",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all-formats",
				Usage: "Build every supported format instead of just --format",
			},
		},
		Action: buildCommand,
	}
}

func buildCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadTrainingConfig(cmd)
	if err != nil {
		return err
	}

	formats, err := resolveFormats(cmd)
	if err != nil {
		return err
	}

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		return fmt.Errorf("DATABASE_URL must be set to build from the corpus")
	}
	loader, err := corpus.NewLoader(ctx, connStr, cfg)
	if err != nil {
		return err
	}
	defer loader.Close()

	client, err := store.Open(dataDBPath(cmd), cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	verbose := cmd.Bool("verbose")
	now := time.Now()
	runID := uuid.New().String()

	var bar *progressbar.ProgressBar
	if verbose {
		bar = progressbar.NewOptions(len(formats),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("formats"),
		)
	}

	for _, format := range formats {
		if err := buildFormat(ctx, loader, client, format, cfg, now); err != nil {
			return fmt.Errorf("build %s: %w", format, err)
		}
		if bar != nil {
			if err := bar.Add(1); err != nil {
				return err
			}
		}
		if err := client.Retain(format, now); err != nil {
			return fmt.Errorf("retain %s: %w", format, err)
		}
	}

	printf("Build %s complete for %d format(s)\n", runID, len(formats))
	return nil
}

func buildFormat(ctx context.Context, loader *corpus.Loader, client *store.Client, format string, cfg config.TrainingConfig, now time.Time) error {
	decks, err := loader.Load(ctx, format, now)
	if err != nil {
		return err
	}

	nbacDecks := make([]nbac.Deck, len(decks))
	asiDecks := make([]asi.Deck, len(decks))
	entries := make([]normalize.DeckEntry, len(decks))
	for i, d := range decks {
		mainboard := make([]nbac.CardQty, len(d.Mainboard))
		asiMainboard := make([]asi.CardQty, len(d.Mainboard))
		for j, c := range d.Mainboard {
			mainboard[j] = nbac.CardQty{Name: c.Name, Quantity: c.Quantity}
			asiMainboard[j] = asi.CardQty{Name: c.Name, Quantity: c.Quantity}
		}
		nbacDecks[i] = nbac.Deck{DisplayName: d.DisplayName, ArchetypeRaw: d.ArchetypeRaw, Mainboard: mainboard}
		asiDecks[i] = asi.Deck{DisplayName: d.DisplayName, ArchetypeRaw: d.ArchetypeRaw, Mainboard: asiMainboard}
		entries[i] = normalize.DeckEntry{DisplayName: d.DisplayName, ArchetypeRaw: d.ArchetypeRaw}
	}

	artifacts, err := nbac.Train(nbacDecks, cfg)
	if err != nil {
		return err
	}
	metaBlob, err := encodeMeta(artifacts.Meta)
	if err != nil {
		return err
	}
	if err := client.UpsertMeta(format, metaBlob, now); err != nil {
		return err
	}

	cardBlobs := make(map[string][]byte, len(artifacts.Cards))
	for name, entry := range artifacts.Cards {
		blob, err := encodeCardEntry(entry)
		if err != nil {
			return err
		}
		cardBlobs[name] = blob
	}
	if err := client.UpsertCards(format, cardBlobs, now); err != nil {
		return err
	}

	allowed := normalize.Analyze(entries).Allowed()
	bigrams := asi.BuildBigrams(asiDecks, allowed, cfg)
	bigramBlob, err := asi.EncodeArtifact(bigrams)
	if err != nil {
		return err
	}
	return client.UpsertASI(format, bigramBlob, now)
}
