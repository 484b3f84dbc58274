package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauer/archclass/pkg/corpus"
	"github.com/klauer/archclass/pkg/nbac"
	"github.com/klauer/archclass/pkg/tune"
)

func addTuneCommand() *cli.Command {
	return &cli.Command{
		Name:  "tune",
		Usage: "Search for alpha/background_lambda/temperature hyperparameters via holdout accuracy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Value: "presence",
				Usage: "Model kind to tune (counts or presence)",
			},
			&cli.IntFlag{
				Name:  "population",
				Value: 24,
				Usage: "Population size for the evolutionary search",
			},
			&cli.IntFlag{
				Name:  "generations",
				Value: 20,
				Usage: "Number of generations to run",
			},
		},
		Action: tuneCommand,
	}
}

func tuneCommand(ctx context.Context, cmd *cli.Command) error {
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
		return fmt.Errorf("DATABASE_URL must be set to tune against the corpus")
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
	nbacDecks := make([]nbac.Deck, len(decks))
	for i, d := range decks {
		mainboard := make([]nbac.CardQty, len(d.Mainboard))
		for j, c := range d.Mainboard {
			mainboard[j] = nbac.CardQty{Name: c.Name, Quantity: c.Quantity}
		}
		nbacDecks[i] = nbac.Deck{DisplayName: d.DisplayName, ArchetypeRaw: d.ArchetypeRaw, Mainboard: mainboard}
	}

	sc := tune.DefaultSearchConfig()
	sc.Kind = nbac.ModelKind(cmd.String("kind"))
	sc.PopulationSize = cmd.Int("population")
	sc.Generations = cmd.Int("generations")

	result, err := tune.Search(nbacDecks, cfg, sc)
	if err != nil {
		return err
	}

	printf("alpha=%.4f background_lambda=%.4f temperature=%.4f holdout_accuracy=%.4f\n",
		result.Alpha, result.BackgroundLambda, result.Temperature, result.Accuracy)
	return nil
}
