package asi

import (
	"testing"

	"github.com/klauer/archclass/internal/config"
)

func TestEncodeDecodeArtifactRoundTrips(t *testing.T) {
	bigrams := map[CardPair][]ArchetypeWeight{
		newCardPair("Lightning Bolt", "Mountain"): {
			{Archetype: "Burn", Weight: 0.91},
			{Archetype: "Aggro", Weight: 0.3},
		},
	}

	blob, err := EncodeArtifact(bigrams)
	if err != nil {
		t.Fatalf("EncodeArtifact: %v", err)
	}
	decoded, err := DecodeArtifact(blob)
	if err != nil {
		t.Fatalf("DecodeArtifact: %v", err)
	}
	pair := newCardPair("Lightning Bolt", "Mountain")
	weights, ok := decoded[pair]
	if !ok || len(weights) != 2 || weights[0].Archetype != "Burn" {
		t.Fatalf("unexpected round-tripped weights: %+v", weights)
	}
}

func TestDecodeArtifactRejectsInvalidJSON(t *testing.T) {
	if _, err := DecodeArtifact([]byte("not json")); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestBuildBigramsFilterAndScoreAreCaseInsensitive(t *testing.T) {
	cfg := config.DefaultTrainingConfig()
	decks := []Deck{
		{
			ArchetypeRaw: "Mono-Red Burn",
			Mainboard: []CardQty{
				{Name: "Lightning Bolt", Quantity: 4},
				{Name: "Mountain", Quantity: 20},
			},
		},
		{
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

	// a lowercase CLI-style decklist against titlecase corpus card names
	query := []string{"lightning bolt", "mountain"}
	filtered := FilterForCards(bigrams, query)
	if len(filtered) == 0 {
		t.Fatalf("expected a case-insensitive match in FilterForCards, got none")
	}

	nearest := FindNearest(filtered, query)
	if nearest["Burn"] <= 0 {
		t.Fatalf("expected a positive Burn score from a case-insensitive query, got %+v", nearest)
	}
}

func TestFilterForCardsKeepsOnlyBothEndpointsPresent(t *testing.T) {
	bigrams := map[CardPair][]ArchetypeWeight{
		newCardPair("a", "b"): {{Archetype: "X", Weight: 1.0}},
		newCardPair("b", "c"): {{Archetype: "Y", Weight: 0.5}},
	}
	filtered := FilterForCards(bigrams, []string{"A", "B"})
	if len(filtered) != 1 {
		t.Fatalf("expected one bigram to survive, got %d", len(filtered))
	}
	if _, ok := filtered[newCardPair("a", "b")]; !ok {
		t.Fatal("expected (a,b) to survive the filter")
	}
}
