// Package normalize collapses raw archetype label strings pulled from the
// corpus into the canonical label set used by both training pipelines.
package normalize

import (
	"sort"
	"strings"
)

// Colors lists every color/guild/shard/wedge token (and its shorthand) a
// raw archetype label might be prefixed with. RemoveColors tries them in
// declaration order; because a match must end on a word boundary, a short
// token such as "W" never strips the front of a longer one such as "WU".
var Colors = []string{
	// 1-color combinations
	"Mono-White", "Mono-Blue", "Mono-Black", "Mono-Red", "Mono-Green",
	"White", "Blue", "Black", "Red", "Green",
	"W", "U", "B", "R", "G",
	// 2-color combinations
	"Azorius", "Orzhov", "Boros", "Selesnya", "Dimir", "Izzet", "Rakdos",
	"WU", "WB", "WR", "WG", "UB", "UR", "BR",
	"Golgari", "Gruul", "Simic",
	"BG", "RG", "UG",
	// 3-color combinations
	"Jeskai", "Grixis", "Jund", "Naya", "Bant", "Abzan", "Sultai", "Mardu",
	"WUR", "UBR", "BRG", "WRG", "GWU", "WBG", "UBG", "WBR",
	"Temur", "Esper",
	"URG", "WUB", "WUG",
	// 4/5-color combinations
	"WBRG", "WURG", "WUBG", "WUBR", "UBRG", "WUBRG", "4c", "5c", "4/5c",
	// Specialty
	"Colorless", "Snow",
	"C", "S",
}

// MacroArchetypes lists the strategic labels that are never treated as a
// "stripped down to nothing interesting" residue: a color-stripped label
// equal to one of these is not promoted over the original raw label,
// since the macro label alone discards useful strategic detail.
var MacroArchetypes = []string{
	"Aggro",
	"Control",
	"Midrange",
	"Combo",
	"Prison",
	"Tempo",
	"Ramp",
}

// isMacro reports exact (case-sensitive) membership in MacroArchetypes,
// matching the corpus's own label casing for these seven strategic terms.
func isMacro(s string) bool {
	for _, m := range MacroArchetypes {
		if m == s {
			return true
		}
	}
	return false
}

// isColorToken reports whether s is exactly one of the color tokens
// (used to drop purely color-named decks). Exact, case-sensitive match:
// the corpus's display names for color-only decks use Colors' own casing.
func isColorToken(s string) bool {
	for _, c := range Colors {
		if c == s {
			return true
		}
	}
	return false
}

// hasWordBoundaryAfter reports whether position i in s is either the end
// of the string or followed by a non-word character, so a prefix strip
// of "Red" doesn't also eat the front of "Reddit".
func hasWordBoundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	c := s[i]
	isWord := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
	return !isWord
}

// RemoveColors strips leading color/guild/shard tokens (matched
// case-insensitively on a word boundary) from name, one color at a time,
// in Colors' declaration order — it does not re-scan from the start
// after a strip, so each candidate prefix is tried once in table order
// and a later token can still strip the residue of an earlier one. A nil
// name yields nil, so callers can distinguish "no input" from "input
// with nothing to strip".
func RemoveColors(name *string) *string {
	if name == nil {
		return nil
	}
	s := *name
	for _, color := range Colors {
		if len(s) < len(color) {
			continue
		}
		if strings.EqualFold(s[:len(color)], color) && hasWordBoundaryAfter(s, len(color)) {
			s = strings.TrimSpace(s[len(color):])
		}
	}
	out := strings.TrimSpace(s)
	return &out
}

// DeckEntry is the minimal shape normalize needs from a corpus row.
type DeckEntry struct {
	DisplayName  string
	ArchetypeRaw string
}

// FinalLabel computes a deck's label before the allowed-set filter is
// applied: the color-stripped residue if it is non-macro, else the raw
// archetype string.
func FinalLabel(archetypeRaw string) string {
	raw := archetypeRaw
	stripped := RemoveColors(&raw)
	if stripped != nil && *stripped != "" && !isMacro(*stripped) {
		return *stripped
	}
	return archetypeRaw
}

// Keep reports whether a deck survives normalization: it is dropped if
// its display name is itself a bare color token (no archetype signal),
// or if its raw archetype is empty.
func Keep(entry DeckEntry) bool {
	if entry.ArchetypeRaw == "" {
		return false
	}
	if isColorToken(entry.DisplayName) {
		return false
	}
	return true
}

// AnalyzeResult is the per-label rollup produced by Analyze: the
// allowed label set plus, for debugging/reporting, which raw display
// names rolled up into each label and how often.
type AnalyzeResult struct {
	// Labels is every surviving label in descending deck-count order.
	Labels []string
	// Counts maps label -> number of decks.
	Counts map[string]int
	// Names maps label -> raw display name -> occurrence count.
	Names map[string]map[string]int
}

// Analyze groups entries into their final labels and computes the
// allowed label set (any label with at least one surviving deck),
// mirroring the corpus-wide pass the trainers run before normalizing
// individual rows against that set.
func Analyze(entries []DeckEntry) AnalyzeResult {
	counts := make(map[string]int)
	names := make(map[string]map[string]int)

	for _, e := range entries {
		if !Keep(e) {
			continue
		}
		label := FinalLabel(e.ArchetypeRaw)
		counts[label]++
		if names[label] == nil {
			names[label] = make(map[string]int)
		}
		names[label][e.DisplayName]++
	}

	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	return AnalyzeResult{Labels: labels, Counts: counts, Names: names}
}

// Allowed returns the set of labels Analyze found, for use as the
// membership test in NormalizeLabel.
func (r AnalyzeResult) Allowed() map[string]bool {
	allowed := make(map[string]bool, len(r.Labels))
	for _, l := range r.Labels {
		allowed[l] = true
	}
	return allowed
}

// NormalizeLabel computes the training label for a single deck given
// the corpus-wide allowed set, returning ok=false if the deck should be
// dropped (no archetype, color-only name, or final label outside the
// allowed set).
func NormalizeLabel(entry DeckEntry, allowed map[string]bool) (string, bool) {
	if !Keep(entry) {
		return "", false
	}
	label := FinalLabel(entry.ArchetypeRaw)
	if !allowed[label] {
		return "", false
	}
	return label, true
}
