package normalize

import "testing"

func TestRemoveColors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"mono prefix", "Mono-Red Burn", "Burn"},
		{"no prefix", "Burn", "Burn"},
		{"guild prefix", "Boros Burn", "Burn"},
		{"bare color", "Red", ""},
		{"does not eat substrings", "Reddit Control", "Reddit Control"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			got := RemoveColors(&in)
			if got == nil || *got != tt.want {
				t.Fatalf("RemoveColors(%q) = %v, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemoveColorsNil(t *testing.T) {
	if RemoveColors(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}

func TestKeepDropsColorOnlyName(t *testing.T) {
	if Keep(DeckEntry{DisplayName: "Mono-Red", ArchetypeRaw: "Mono-Red Burn"}) {
		t.Fatal("expected color-only display name to be dropped")
	}
	if !Keep(DeckEntry{DisplayName: "Some Deck", ArchetypeRaw: "Mono-Red Burn"}) {
		t.Fatal("expected normal deck to be kept")
	}
}

func TestFinalLabelMacroFallsBackToRaw(t *testing.T) {
	// "Boros Aggro" strips to "Aggro", which is a macro label, so the
	// final label stays the original raw string.
	if got := FinalLabel("Boros Aggro"); got != "Boros Aggro" {
		t.Fatalf("FinalLabel(Boros Aggro) = %q, want original raw label", got)
	}
	if got := FinalLabel("Boros Burn"); got != "Burn" {
		t.Fatalf("FinalLabel(Boros Burn) = %q, want Burn", got)
	}
}

func TestAnalyzeAndNormalizeLabel(t *testing.T) {
	entries := []DeckEntry{
		{DisplayName: "Deck 1", ArchetypeRaw: "Mono-Red Burn"},
		{DisplayName: "Deck 2", ArchetypeRaw: "Boros Burn"},
		{DisplayName: "Deck 3", ArchetypeRaw: "Izzet Tron"},
		{DisplayName: "Mono-Red", ArchetypeRaw: "Mono-Red"}, // dropped: color-only display name
	}

	result := Analyze(entries)
	allowed := result.Allowed()

	if !allowed["Burn"] {
		t.Fatalf("expected Burn to be allowed, got labels %v", result.Labels)
	}
	if result.Counts["Burn"] != 2 {
		t.Fatalf("expected 2 Burn decks, got %d", result.Counts["Burn"])
	}
	if len(result.Names["Burn"]) != 2 {
		t.Fatalf("expected 2 distinct display names under Burn, got %d", len(result.Names["Burn"]))
	}

	label, ok := NormalizeLabel(entries[0], allowed)
	if !ok || label != "Burn" {
		t.Fatalf("NormalizeLabel(entries[0]) = (%q, %v), want (Burn, true)", label, ok)
	}

	_, ok = NormalizeLabel(entries[3], allowed)
	if ok {
		t.Fatal("expected the color-only display name deck to be dropped")
	}
}
