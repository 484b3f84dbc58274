package asi

import "testing"

func TestFindNearestSingleUniqueBigram(t *testing.T) {
	bigrams := map[CardPair][]ArchetypeWeight{
		newCardPair("a", "b"): {{Archetype: "X", Weight: 1.0}},
	}

	got := FindNearest(bigrams, []string{"a", "b"})
	if len(got) != 1 {
		t.Fatalf("expected a single archetype, got %v", got)
	}
	if score := got["X"]; score != 1.0 {
		t.Fatalf("FindNearest = %v, want X: 1.0", got)
	}
}

func TestFindNearestIgnoresAbsentBigrams(t *testing.T) {
	bigrams := map[CardPair][]ArchetypeWeight{
		newCardPair("a", "b"): {{Archetype: "X", Weight: 1.0}},
		newCardPair("c", "d"): {{Archetype: "Y", Weight: 1.0}},
	}

	got := FindNearest(bigrams, []string{"a", "b"})
	if _, ok := got["Y"]; ok {
		t.Fatalf("archetype Y's bigram isn't in the decklist, should not score: %v", got)
	}
	if got["X"] != 1.0 {
		t.Fatalf("expected X: 1.0, got %v", got)
	}
}

func TestFindNearestScoresClampToOne(t *testing.T) {
	bigrams := map[CardPair][]ArchetypeWeight{
		newCardPair("a", "b"): {
			{Archetype: "X", Weight: 0.9},
			{Archetype: "Y", Weight: 0.1},
		},
	}

	got := FindNearest(bigrams, []string{"a", "b"})
	for archetype, score := range got {
		if score > 1 || score < 0 {
			t.Fatalf("score for %s out of [0,1]: %v", archetype, score)
		}
	}
	if got["X"] <= got["Y"] {
		t.Fatalf("expected X to outscore Y, got %v", got)
	}
}
