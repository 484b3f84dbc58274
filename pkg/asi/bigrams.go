package asi

import (
	"sort"
	"strings"

	"github.com/klauer/archclass/internal/config"
	"github.com/klauer/archclass/pkg/normalize"
)

// CardQty is a single mainboard line: a card name and the copies played.
type CardQty struct {
	Name     string
	Quantity int
}

// Deck is the minimal shape the bigram trainer needs from a corpus row.
type Deck struct {
	DisplayName  string
	ArchetypeRaw string
	Mainboard    []CardQty
}

// CardPair is an unordered pair of card names, canonicalized so (A, B) and
// (B, A) hash to the same key. Both names are lowercased so a bigram's
// identity doesn't depend on the corpus's or a caller's casing.
type CardPair struct {
	A, B string
}

func newCardPair(c1, c2 string) CardPair {
	c1, c2 = strings.ToLower(c1), strings.ToLower(c2)
	if c1 <= c2 {
		return CardPair{A: c1, B: c2}
	}
	return CardPair{A: c2, B: c1}
}

// ArchetypeWeight pairs an archetype with its joint-probability weight for
// one bigram.
type ArchetypeWeight struct {
	Archetype string
	Weight    float64
}

type bigramAccum struct {
	qty1, qty2, total, n int64
}

// BuildBigrams computes the per-bigram, per-archetype joint hypergeometric
// weights over a labelled deck corpus. A deck is skipped unless its
// normalized label is in allowed (the corpus-wide survivor set computed by
// normalize.Analyze).
//
// For each surviving deck, every unordered pair of distinct mainboard card
// names contributes an accumulator of (sum qty of card A, sum qty of card
// B, sum of mainboard size, occurrence count) keyed by (pair, archetype).
// Those accumulators collapse into a single weight per (pair, archetype)
// via the joint-draw formula:
//
//	N    = total / n
//	k1   = qty1 / n
//	k2   = qty2 / n
//	P_A  = Hypergeo(k1, N, 1, openerSize)
//	P_B  = Hypergeo(k2, N, 1, openerSize)
//	P_AB = 1 - ((1-P_A) + (1-P_B) - Hypergeo(N-k1-k2, N, 1, openerSize))
//	kMax = max(4, (k1+k2)/2)
//	PMAX = 1 - (1 - Hypergeo(kMax, N, 1, openerSize))^2
//	w    = min(1, P_AB / PMAX)
//
// Each bigram's archetype weights are returned sorted descending by weight
// (ties broken by archetype name) so downstream codec/scorer consumers see
// a deterministic order.
func BuildBigrams(decks []Deck, allowed map[string]bool, cfg config.TrainingConfig) map[CardPair][]ArchetypeWeight {
	acc := make(map[CardPair]map[string]*bigramAccum)

	for _, deck := range decks {
		label := normalize.FinalLabel(deck.ArchetypeRaw)
		if !allowed[label] {
			continue
		}

		names := make(map[string]struct{})
		var total int64
		for _, c := range deck.Mainboard {
			names[strings.ToLower(c.Name)] = struct{}{}
			total += int64(c.Quantity)
		}
		if len(names) < 2 || total == 0 {
			continue
		}

		cards := make([]string, 0, len(names))
		for n := range names {
			cards = append(cards, n)
		}
		sort.Strings(cards)

		qtyOf := make(map[string]int64, len(cards))
		for _, c := range deck.Mainboard {
			qtyOf[strings.ToLower(c.Name)] += int64(c.Quantity)
		}

		for i := 0; i < len(cards); i++ {
			for j := i + 1; j < len(cards); j++ {
				pair := newCardPair(cards[i], cards[j])

				byArchetype, ok := acc[pair]
				if !ok {
					byArchetype = make(map[string]*bigramAccum)
					acc[pair] = byArchetype
				}
				a, ok := byArchetype[label]
				if !ok {
					a = &bigramAccum{}
					byArchetype[label] = a
				}
				a.qty1 += qtyOf[pair.A]
				a.qty2 += qtyOf[pair.B]
				a.total += total
				a.n++
			}
		}
	}

	openerSize := cfg.OpenerSize
	if openerSize <= 0 {
		openerSize = 7
	}

	bigrams := make(map[CardPair][]ArchetypeWeight, len(acc))
	for pair, byArchetype := range acc {
		weights := make([]ArchetypeWeight, 0, len(byArchetype))
		for archetype, a := range byArchetype {
			if a.n == 0 {
				continue
			}
			n := float64(a.n)
			N := float64(a.total) / n
			k1 := float64(a.qty1) / n
			k2 := float64(a.qty2) / n

			pA := Hypergeo(k1, N, 1, openerSize)
			pB := Hypergeo(k2, N, 1, openerSize)
			pAB := 1 - ((1 - pA) + (1 - pB) - Hypergeo(N-k1-k2, N, 1, openerSize))

			kMax := (k1 + k2) / 2
			if kMax < 4 {
				kMax = 4
			}
			complement := 1 - Hypergeo(kMax, N, 1, openerSize)
			pMax := 1 - complement*complement

			weight := pAB
			if pMax != 0 {
				weight = pAB / pMax
			}
			if weight > 1 {
				weight = 1
			}

			weights = append(weights, ArchetypeWeight{Archetype: archetype, Weight: weight})
		}

		sort.Slice(weights, func(i, j int) bool {
			if weights[i].Weight != weights[j].Weight {
				return weights[i].Weight > weights[j].Weight
			}
			return weights[i].Archetype < weights[j].Archetype
		})
		bigrams[pair] = weights
	}

	return bigrams
}
