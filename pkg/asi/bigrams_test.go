package asi

import (
	"testing"

	"github.com/klauer/archclass/internal/config"
)

func TestBuildBigramsProducesWeightsInRange(t *testing.T) {
	cfg := config.DefaultTrainingConfig()
	decks := []Deck{
		{
			DisplayName:  "Burn 1",
			ArchetypeRaw: "Mono-Red Burn",
			Mainboard: []CardQty{
				{Name: "Lightning Bolt", Quantity: 4},
				{Name: "Mountain", Quantity: 20},
			},
		},
		{
			DisplayName:  "Burn 2",
			ArchetypeRaw: "Boros Burn",
			Mainboard: []CardQty{
				{Name: "Lightning Bolt", Quantity: 4},
				{Name: "Mountain", Quantity: 18},
				{Name: "Plains", Quantity: 2},
			},
		},
	}
	allowed := map[string]bool{"Burn": true}

	bigrams := BuildBigrams(decks, allowed, cfg)

	pair := newCardPair("Lightning Bolt", "Mountain")
	weights, ok := bigrams[pair]
	if !ok || len(weights) == 0 {
		t.Fatalf("expected a Lightning Bolt/Mountain bigram, got %v", bigrams)
	}
	for _, w := range weights {
		if w.Weight < 0 || w.Weight > 1 {
			t.Fatalf("weight out of [0,1]: %+v", w)
		}
	}
	if weights[0].Archetype != "Burn" {
		t.Fatalf("expected Burn weight entry, got %+v", weights)
	}
}

func TestBuildBigramsSkipsUnallowedArchetypes(t *testing.T) {
	cfg := config.DefaultTrainingConfig()
	decks := []Deck{
		{
			ArchetypeRaw: "Some Unseen Deck",
			Mainboard: []CardQty{
				{Name: "Karn Liberated", Quantity: 4},
				{Name: "Urza's Tower", Quantity: 4},
			},
		},
	}

	bigrams := BuildBigrams(decks, map[string]bool{"Tron": true}, cfg)
	if len(bigrams) != 0 {
		t.Fatalf("expected no bigrams for an unallowed archetype, got %v", bigrams)
	}
}

func TestBuildBigramsSortsDescending(t *testing.T) {
	cfg := config.DefaultTrainingConfig()
	decks := []Deck{
		{ArchetypeRaw: "Burn", Mainboard: []CardQty{{Name: "Bolt", Quantity: 4}, {Name: "Mountain", Quantity: 20}}},
		{ArchetypeRaw: "Burn", Mainboard: []CardQty{{Name: "Bolt", Quantity: 4}, {Name: "Mountain", Quantity: 20}}},
		{ArchetypeRaw: "Tron", Mainboard: []CardQty{{Name: "Bolt", Quantity: 1}, {Name: "Mountain", Quantity: 2}}},
	}
	allowed := map[string]bool{"Burn": true, "Tron": true}

	bigrams := BuildBigrams(decks, allowed, cfg)
	weights := bigrams[newCardPair("Bolt", "Mountain")]
	for i := 1; i < len(weights); i++ {
		if weights[i].Weight > weights[i-1].Weight {
			t.Fatalf("weights not sorted descending: %+v", weights)
		}
	}
}
