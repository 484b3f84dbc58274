package nbac

import (
	"math"
	"sort"
)

// Score computes normalized posteriors for a deck against a trained
// model. deckCounts maps card name to mainboard quantity (already clipped
// by the caller if the counts model requires it); cardEntries maps card
// name to its decoded artifact entry. Cards with no entry are skipped
// rather than erroring, since an unseen card contributes nothing beyond
// the log-unseen term already folded into the prior.
//
// The per-archetype log score starts at log_prior + total_mass *
// log_unseen, then for every scored card adds k * (log_theta - log_unseen)
// so cards absent from the deck implicitly keep their log-unseen
// contribution. The result is a temperature-scaled softmax over those log
// scores; a non-positive temperature falls back to 1 (no scaling).
func Score(meta Meta, deckCounts map[string]int, kind ModelKind, cardEntries map[string]CardEntry) map[string]float64 {
	model := meta.ModelFor(kind)
	aCount := len(meta.Archetypes)

	totalMass := 0
	for _, qty := range deckCounts {
		if qty > 0 {
			totalMass += qty
		}
	}

	logScores := make([]float64, aCount)
	for i := 0; i < aCount; i++ {
		logScores[i] = model.LogPrior[i] + float64(totalMass)*model.LogUnseen[i]
	}

	for card, qty := range deckCounts {
		if qty <= 0 {
			continue
		}
		entry, ok := cardEntries[card]
		if !ok {
			continue
		}
		logTheta := entry.LogTheta(kind)
		for i := 0; i < aCount; i++ {
			logScores[i] += float64(qty) * (logTheta[i] - model.LogUnseen[i])
		}
	}

	t := model.Params.Temperature
	if t <= 0 {
		t = 1
	}
	scaled := make([]float64, aCount)
	maxS := math.Inf(-1)
	for i, s := range logScores {
		scaled[i] = s / t
		if scaled[i] > maxS {
			maxS = scaled[i]
		}
	}

	exps := make([]float64, aCount)
	z := 0.0
	for i, s := range scaled {
		exps[i] = math.Exp(s - maxS)
		z += exps[i]
	}
	if z == 0 {
		return map[string]float64{}
	}

	probs := make(map[string]float64, aCount)
	for i, a := range meta.Archetypes {
		probs[a] = exps[i] / z
	}
	return probs
}

// TopK returns the k highest-scoring (archetype, probability) pairs in
// descending order.
func TopK(probs map[string]float64, k int) []ArchetypeScore {
	if k <= 0 {
		return nil
	}
	ranked := make([]ArchetypeScore, 0, len(probs))
	for a, p := range probs {
		ranked = append(ranked, ArchetypeScore{Archetype: a, Prob: p})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Prob > ranked[j].Prob })
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// ArchetypeScore pairs an archetype with its posterior probability.
type ArchetypeScore struct {
	Archetype string
	Prob      float64
}

// IsAmbiguous implements the spec's ambiguity policy: a deck is ambiguous
// if there's no score at all, the top posterior falls below pMin, or the
// gap between the top two posteriors is smaller than delta.
func IsAmbiguous(probs map[string]float64, pMin, delta float64) bool {
	if len(probs) == 0 {
		return true
	}
	ranked := TopK(probs, 2)
	p1 := ranked[0].Prob
	p2 := 0.0
	if len(ranked) > 1 {
		p2 = ranked[1].Prob
	}
	return p1 < pMin || (p1-p2) < delta
}

// CardContribution is one card's evidence score for an Explain call.
type CardContribution struct {
	Card  string
	Score float64
}

// Explain returns the top-n cards by evidence score for archetype under
// the given model kind.
//
// In contrib mode (useLift false, the default) a card's score is simply
// k * log_theta[archetype]. In lift mode, when the card's entry carries a
// background log-q (NBC2 artifacts), the score becomes
// k * (log_theta[archetype] - log_q) instead, isolating how much more
// likely the card is under this archetype than under the corpus at
// large. If lift is requested but the entry predates log-q tracking
// (NBC1), Explain falls back to contrib for that card rather than
// failing the whole call.
func Explain(meta Meta, deckCounts map[string]int, kind ModelKind, cardEntries map[string]CardEntry, archetype string, topN int, useLift bool) []CardContribution {
	if topN <= 0 {
		return nil
	}
	aIdx := -1
	for i, a := range meta.Archetypes {
		if a == archetype {
			aIdx = i
			break
		}
	}
	if aIdx == -1 {
		return nil
	}

	out := make([]CardContribution, 0, len(deckCounts))
	for card, qty := range deckCounts {
		if qty <= 0 {
			continue
		}
		entry, ok := cardEntries[card]
		if !ok {
			continue
		}
		logTheta := entry.LogTheta(kind)
		logQ := entry.LogQ(kind)

		var score float64
		if useLift && logQ != nil {
			score = float64(qty) * (logTheta[aIdx] - *logQ)
		} else {
			score = float64(qty) * logTheta[aIdx]
		}
		out = append(out, CardContribution{Card: card, Score: score})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
