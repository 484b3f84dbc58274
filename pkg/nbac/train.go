package nbac

import (
	"math"
	"sort"
	"time"

	"github.com/klauer/archclass/internal/config"
	archerrors "github.com/klauer/archclass/internal/errors"
	"github.com/klauer/archclass/pkg/normalize"
)

// TrainedArtifacts is a trained NBAC build ready for the codec: the meta
// header plus a per-card log-theta entry for every card in the vocabulary.
type TrainedArtifacts struct {
	Meta  Meta
	Cards map[string]CardEntry
}

// Train fits the counts and presence models over corpus, applying
// cfg.SelfFilterRho's one-pass self-filtering when it is positive.
//
// A deck survives into a model only if its normalized label is one of the
// corpus-wide archetypes normalize.Analyze finds. Within a surviving deck,
// the counts model accumulates mainboard quantities clipped to
// cfg.ClipQty; the presence model accumulates a flat 1 per distinct card.
// Both models mix cfg.BackgroundLambda of the corpus-wide (background)
// card distribution into each archetype's per-card probability, and add
// cfg.Alpha Laplace smoothing before normalizing.
func Train(decks []Deck, cfg config.TrainingConfig) (TrainedArtifacts, error) {
	artifacts, _, err := trainOnce(decks, cfg)
	if err != nil {
		return TrainedArtifacts{}, err
	}

	rho := cfg.SelfFilterRho
	if rho <= 0 {
		return artifacts, nil
	}
	if rho >= 1 {
		rho = 0.999999
	}

	filtered := selfFilter(decks, artifacts, cfg, rho)
	refiltered, _, err := trainOnce(filtered, cfg)
	if err != nil {
		return TrainedArtifacts{}, err
	}
	return refiltered, nil
}

func trainOnce(decks []Deck, cfg config.TrainingConfig) (TrainedArtifacts, map[string][]float64, error) {
	entries := make([]normalize.DeckEntry, len(decks))
	for i, d := range decks {
		entries[i] = normalize.DeckEntry{DisplayName: d.DisplayName, ArchetypeRaw: d.ArchetypeRaw}
	}
	analyzed := normalize.Analyze(entries)
	allowed := analyzed.Allowed()

	archetypes := append([]string(nil), analyzed.Labels...)
	aIndex := make(map[string]int, len(archetypes))
	for i, a := range archetypes {
		aIndex[a] = i
	}

	countsCounts := make([]map[string]int, len(archetypes))
	countsPresence := make([]map[string]int, len(archetypes))
	for i := range archetypes {
		countsCounts[i] = make(map[string]int)
		countsPresence[i] = make(map[string]int)
	}

	decksPerArch := make([]int, len(archetypes))
	vocab := make(map[string]struct{})

	for i, d := range decks {
		label, ok := normalize.NormalizeLabel(entries[i], allowed)
		if !ok {
			continue
		}
		idx := aIndex[label]
		decksPerArch[idx]++

		seen := make(map[string]struct{})
		for _, c := range d.Mainboard {
			if c.Quantity <= 0 {
				continue
			}
			vocab[c.Name] = struct{}{}

			qtyClipped := c.Quantity
			if cfg.ClipQty > 0 && qtyClipped > cfg.ClipQty {
				qtyClipped = cfg.ClipQty
			}
			countsCounts[idx][c.Name] += qtyClipped

			if _, dup := seen[c.Name]; !dup {
				countsPresence[idx][c.Name]++
				seen[c.Name] = struct{}{}
			}
		}
	}

	totalDecks := 0
	for _, n := range decksPerArch {
		totalDecks += n
	}
	if totalDecks == 0 {
		return TrainedArtifacts{}, nil, archerrors.New(archerrors.CodeCorpusEmpty, "no labeled decks after normalization")
	}

	cards := make([]string, 0, len(vocab))
	for c := range vocab {
		cards = append(cards, c)
	}
	sort.Strings(cards)
	vSize := float64(len(cards))

	bgCounts := make(map[string]int)
	bgPresence := make(map[string]int)
	massCounts := make([]int, len(archetypes))
	massPresence := make([]int, len(archetypes))

	for i := range archetypes {
		for card, n := range countsCounts[i] {
			bgCounts[card] += n
			massCounts[i] += n
		}
		for card, n := range countsPresence[i] {
			bgPresence[card] += n
			massPresence[i] += n
		}
	}

	bgMassCounts, bgMassPresence := 0, 0
	for _, n := range bgCounts {
		bgMassCounts += n
	}
	for _, n := range bgPresence {
		bgMassPresence += n
	}

	alpha := cfg.Alpha
	lambda := cfg.BackgroundLambda

	denomCounts := make([]float64, len(archetypes))
	denomPresence := make([]float64, len(archetypes))
	for i := range archetypes {
		denomCounts[i] = float64(massCounts[i]) + alpha*vSize
		denomPresence[i] = float64(massPresence[i]) + alpha*vSize
	}
	denomBgCounts := float64(bgMassCounts) + alpha*vSize
	denomBgPresence := float64(bgMassPresence) + alpha*vSize

	unseenPrime := func(denomA, denomBg float64) float64 {
		unseen := alpha / denomA
		bgUnseen := alpha / denomBg
		return (1-lambda)*unseen + lambda*bgUnseen
	}

	logUnseenCounts := make([]float64, len(archetypes))
	logUnseenPresence := make([]float64, len(archetypes))
	logPrior := make([]float64, len(archetypes))
	for i := range archetypes {
		logUnseenCounts[i] = math.Log(unseenPrime(denomCounts[i], denomBgCounts))
		logUnseenPresence[i] = math.Log(unseenPrime(denomPresence[i], denomBgPresence))
		logPrior[i] = math.Log(float64(decksPerArch[i]) / float64(totalDecks))
	}

	meta := Meta{
		Version:    1,
		BuildUnix:  time.Now().Unix(),
		Archetypes: archetypes,
		Counts: Model{
			Kind:      KindCounts,
			Params:    Params{Alpha: alpha, BackgroundLambda: lambda, Temperature: cfg.TemperatureCounts},
			LogPrior:  logPrior,
			LogUnseen: logUnseenCounts,
		},
		Presence: Model{
			Kind:      KindPresence,
			Params:    Params{Alpha: alpha, BackgroundLambda: lambda, Temperature: cfg.TemperaturePresence},
			LogPrior:  logPrior,
			LogUnseen: logUnseenPresence,
		},
	}

	cardEntries := make(map[string]CardEntry, len(cards))
	thetaCountsByCard := make(map[string][]float64, len(cards))

	for _, card := range cards {
		qCounts := (float64(bgCounts[card]) + alpha) / denomBgCounts
		qPresence := (float64(bgPresence[card]) + alpha) / denomBgPresence
		logQCounts := math.Log(qCounts)
		logQPresence := math.Log(qPresence)

		logThetaCounts := make([]float64, len(archetypes))
		logThetaPresence := make([]float64, len(archetypes))
		for i := range archetypes {
			theta := (float64(countsCounts[i][card]) + alpha) / denomCounts[i]
			thetaMixed := (1-lambda)*theta + lambda*qCounts
			logThetaCounts[i] = math.Log(thetaMixed)

			theta2 := (float64(countsPresence[i][card]) + alpha) / denomPresence[i]
			theta2Mixed := (1-lambda)*theta2 + lambda*qPresence
			logThetaPresence[i] = math.Log(theta2Mixed)
		}

		thetaCountsByCard[card] = logThetaCounts
		cardEntries[card] = CardEntry{
			LogThetaCounts:   logThetaCounts,
			LogThetaPresence: logThetaPresence,
			LogQCounts:       &logQCounts,
			LogQPresence:     &logQPresence,
		}
	}

	return TrainedArtifacts{Meta: meta, Cards: cardEntries}, thetaCountsByCard, nil
}

// selfFilter scores every deck against the initial counts model using its
// own uncalibrated posterior (no temperature, no re-normalization against
// other archetypes beyond the softmax itself), then keeps only the top
// (1-rho) fraction of decks per archetype by that posterior. This is a
// single pass: the dropped decks never get a second chance in a later
// iteration.
func selfFilter(decks []Deck, artifacts TrainedArtifacts, cfg config.TrainingConfig, rho float64) []Deck {
	model := artifacts.Meta.Counts
	archetypes := artifacts.Meta.Archetypes
	aIndex := make(map[string]int, len(archetypes))
	for i, a := range archetypes {
		aIndex[a] = i
	}
	allowed := make(map[string]bool, len(archetypes))
	for _, a := range archetypes {
		allowed[a] = true
	}

	type scored struct {
		p    float64
		deck Deck
	}
	byLabel := make(map[string][]scored, len(archetypes))

	for _, d := range decks {
		entry := normalize.DeckEntry{DisplayName: d.DisplayName, ArchetypeRaw: d.ArchetypeRaw}
		label, ok := normalize.NormalizeLabel(entry, allowed)
		if !ok {
			continue
		}
		labelIdx := aIndex[label]

		deckCounts := make(map[string]int)
		for _, c := range d.Mainboard {
			if c.Quantity <= 0 {
				continue
			}
			qty := c.Quantity
			if cfg.ClipQty > 0 && qty > cfg.ClipQty {
				qty = cfg.ClipQty
			}
			deckCounts[c.Name] += qty
		}

		totalMass := 0
		for _, q := range deckCounts {
			totalMass += q
		}

		logScores := make([]float64, len(archetypes))
		for i := range archetypes {
			logScores[i] = model.LogPrior[i] + float64(totalMass)*model.LogUnseen[i]
		}
		for card, qty := range deckCounts {
			cardEntry, ok := artifacts.Cards[card]
			if !ok {
				continue
			}
			logTheta := cardEntry.LogThetaCounts
			for i := range archetypes {
				logScores[i] += float64(qty) * (logTheta[i] - model.LogUnseen[i])
			}
		}

		maxS := logScores[0]
		for _, s := range logScores[1:] {
			if s > maxS {
				maxS = s
			}
		}
		z := 0.0
		exps := make([]float64, len(logScores))
		for i, s := range logScores {
			exps[i] = math.Exp(s - maxS)
			z += exps[i]
		}
		if z <= 0 {
			continue
		}
		pLabel := exps[labelIdx] / z
		byLabel[label] = append(byLabel[label], scored{p: pLabel, deck: d})
	}

	var filtered []Deck
	for _, items := range byLabel {
		if len(items) == 0 {
			continue
		}
		sort.Slice(items, func(i, j int) bool { return items[i].p > items[j].p })
		keepN := int((1 - rho) * float64(len(items)))
		if keepN < 1 {
			keepN = 1
		}
		for _, it := range items[:keepN] {
			filtered = append(filtered, it.deck)
		}
	}
	return filtered
}
