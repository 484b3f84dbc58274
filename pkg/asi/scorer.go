package asi

import "strings"

// FindNearest ranks archetypes by their shared card-pair bigrams with the
// given decklist, in two passes.
//
// Pass one sums, for every bigram present in the decklist, each archetype's
// joint-probability weight for that bigram; a bigram unique to a single
// archetype (only one archetype has a weight for it) counts double.
//
// Pass two isolates the candidate set within 2 points of the top score:
// for each decklist bigram, restricted to weights belonging to candidate
// archetypes, a bigram that singles out fewer than a third of the
// candidates is treated as distinguishing and gives each of those
// candidates a bonus (doubled if it singles out exactly one).
//
// The final scores are normalized by the sum of the maximum per-bigram
// weight across every bigram present in the decklist, then clamped to 1.
//
// decklist is matched case-insensitively against the bigram table's
// lowercased card-pair keys.
func FindNearest(bigrams map[CardPair][]ArchetypeWeight, decklist []string) map[string]float64 {
	inDeck := make(map[string]struct{}, len(decklist))
	for _, c := range decklist {
		inDeck[strings.ToLower(c)] = struct{}{}
	}

	present := func(pair CardPair) bool {
		_, a := inDeck[pair.A]
		_, b := inDeck[pair.B]
		return a && b
	}

	nearest := make(map[string]float64)
	for pair, weights := range bigrams {
		if !present(pair) || len(weights) == 0 {
			continue
		}
		weight := 1.0
		if len(weights) == 1 {
			weight = 2.0
		}
		for _, aw := range weights {
			nearest[aw.Archetype] += weight * aw.Weight
		}
	}

	if len(nearest) == 0 {
		return nearest
	}

	maxScore := maxOf(nearest)
	candidates := make(map[string]float64)
	for a, w := range nearest {
		if w >= maxScore-2 {
			candidates[a] = w
		}
	}

	for pair, weights := range bigrams {
		if !present(pair) {
			continue
		}
		filtered := make([]ArchetypeWeight, 0, len(weights))
		for _, aw := range weights {
			if _, ok := candidates[aw.Archetype]; ok {
				filtered = append(filtered, aw)
			}
		}
		if len(filtered) == 0 || float64(len(filtered)) >= float64(len(candidates))/3 {
			continue
		}
		weight := 1.0
		if len(filtered) == 1 {
			weight = 2.0
		}
		for _, aw := range filtered {
			nearest[aw.Archetype] += weight * aw.Weight
		}
	}

	// bigrams are stored sorted descending by weight, so the first entry
	// is already each bigram's max archetype weight.
	var denom float64
	for pair, weights := range bigrams {
		if !present(pair) || len(weights) == 0 {
			continue
		}
		denom += weights[0].Weight
	}
	if denom != 0 {
		for a, w := range nearest {
			score := w / denom
			if score > 1 {
				score = 1
			}
			nearest[a] = score
		}
	}

	return nearest
}

func maxOf(m map[string]float64) float64 {
	first := true
	var max float64
	for _, v := range m {
		if first || v > max {
			max = v
			first = false
		}
	}
	return max
}
