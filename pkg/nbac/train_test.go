package nbac

import (
	"testing"

	"github.com/klauer/archclass/internal/config"
	archerrors "github.com/klauer/archclass/internal/errors"
)

func burnTronCorpus() []Deck {
	return []Deck{
		{
			DisplayName:  "Burn",
			ArchetypeRaw: "Burn",
			Mainboard: []CardQty{
				{Name: "Lightning Bolt", Quantity: 4},
				{Name: "Mountain", Quantity: 20},
			},
		},
		{
			DisplayName:  "Tron",
			ArchetypeRaw: "Tron",
			Mainboard: []CardQty{
				{Name: "Karn Liberated", Quantity: 4},
				{Name: "Urza's Tower", Quantity: 4},
			},
		},
	}
}

func TestTrainPresenceScoringPicksBurn(t *testing.T) {
	cfg := config.DefaultTrainingConfig()
	artifacts, err := Train(burnTronCorpus(), cfg)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	deckCounts := map[string]int{"Lightning Bolt": 1, "Mountain": 1}
	probs := Score(artifacts.Meta, deckCounts, KindPresence, artifacts.Cards)

	top := TopK(probs, 1)
	if len(top) != 1 || top[0].Archetype != "Burn" {
		t.Fatalf("expected Burn on top, got %v", top)
	}
	if top[0].Prob <= 0.95 {
		t.Fatalf("expected Burn_prob > 0.95, got %v", top[0].Prob)
	}
}

func TestTrainEmptyCorpusReturnsCorpusEmpty(t *testing.T) {
	cfg := config.DefaultTrainingConfig()
	_, err := Train(nil, cfg)
	if err == nil {
		t.Fatal("expected an error for an empty corpus")
	}
	if !archerrors.HasCode(err, archerrors.CodeCorpusEmpty) {
		t.Fatalf("expected CodeCorpusEmpty, got %v", err)
	}
}

func TestTrainSelfFilterKeepsAtLeastOnePerArchetype(t *testing.T) {
	cfg := config.DefaultTrainingConfig()
	cfg.SelfFilterRho = 0.9

	artifacts, err := Train(burnTronCorpus(), cfg)
	if err != nil {
		t.Fatalf("Train with self-filter: %v", err)
	}
	if len(artifacts.Meta.Archetypes) != 2 {
		t.Fatalf("expected both archetypes to survive self-filtering, got %v", artifacts.Meta.Archetypes)
	}
}
