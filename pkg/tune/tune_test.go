package tune

import (
	"testing"

	"github.com/klauer/archclass/internal/config"
	archerrors "github.com/klauer/archclass/internal/errors"
	"github.com/klauer/archclass/pkg/nbac"
)

// burnTronCorpus builds a corpus with a clean separation between two
// archetypes and enough decks per label to survive a 1-in-5 holdout
// split with both archetypes represented on each side.
func burnTronCorpus(n int) []nbac.Deck {
	decks := make([]nbac.Deck, 0, 2*n)
	for i := 0; i < n; i++ {
		decks = append(decks, nbac.Deck{
			DisplayName:  "Burn",
			ArchetypeRaw: "Burn",
			Mainboard: []nbac.CardQty{
				{Name: "Lightning Bolt", Quantity: 4},
				{Name: "Mountain", Quantity: 20},
			},
		}, nbac.Deck{
			DisplayName:  "Tron",
			ArchetypeRaw: "Tron",
			Mainboard: []nbac.CardQty{
				{Name: "Karn Liberated", Quantity: 4},
				{Name: "Urza's Tower", Quantity: 4},
			},
		})
	}
	return decks
}

func TestHoldoutSplitCoversBothSlices(t *testing.T) {
	decks := burnTronCorpus(10)
	train, holdout := holdoutSplit(decks)
	if len(train)+len(holdout) != len(decks) {
		t.Fatalf("split dropped decks: train=%d holdout=%d total=%d", len(train), len(holdout), len(decks))
	}
	if len(holdout) == 0 {
		t.Fatal("expected a non-empty holdout slice")
	}
}

func TestSearchFindsHighAccuracyCandidate(t *testing.T) {
	decks := burnTronCorpus(15)
	cfg := config.DefaultTrainingConfig()
	sc := SearchConfig{
		PopulationSize: 6,
		Generations:    4,
		TournamentSize: 2,
		EliteCount:     1,
		MutationRate:   0.5,
		CrossoverRate:  0.7,
		Kind:           nbac.KindPresence,
		Bounds:         DefaultBounds(),
	}

	result, err := Search(decks, cfg, sc)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Accuracy < 0.9 {
		t.Fatalf("expected a near-perfect separation to be found, got accuracy %v", result.Accuracy)
	}
	if result.Alpha < sc.Bounds.AlphaMin || result.Alpha > sc.Bounds.AlphaMax {
		t.Fatalf("alpha %v out of bounds %+v", result.Alpha, sc.Bounds)
	}
	if result.BackgroundLambda < sc.Bounds.LambdaMin || result.BackgroundLambda > sc.Bounds.LambdaMax {
		t.Fatalf("background_lambda %v out of bounds %+v", result.BackgroundLambda, sc.Bounds)
	}
	if result.Temperature < sc.Bounds.TemperatureMin || result.Temperature > sc.Bounds.TemperatureMax {
		t.Fatalf("temperature %v out of bounds %+v", result.Temperature, sc.Bounds)
	}
}

func TestSearchRejectsTooSmallCorpus(t *testing.T) {
	decks := burnTronCorpus(1)
	cfg := config.DefaultTrainingConfig()
	_, err := Search(decks[:1], cfg, DefaultSearchConfig())
	if err == nil {
		t.Fatal("expected an error for a corpus too small to split")
	}
	if !archerrors.HasCode(err, archerrors.CodeCorpusEmpty) {
		t.Fatalf("expected CodeCorpusEmpty, got %v", err)
	}
}
