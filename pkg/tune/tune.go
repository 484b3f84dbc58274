// Package tune searches the NBAC hyperparameter space {alpha,
// background_lambda, temperature} with an eaopt genetic algorithm,
// holding out a slice of the corpus to score each candidate's trained
// model against. This has no equivalent in the original build script,
// which pinned these constants; it is an offline, optional addition
// layered on top of pkg/nbac.Train and pkg/nbac.Score.
package tune

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/MaxHalford/eaopt"

	"github.com/klauer/archclass/internal/config"
	archerrors "github.com/klauer/archclass/internal/errors"
	"github.com/klauer/archclass/pkg/nbac"
	"github.com/klauer/archclass/pkg/normalize"
)

// Bounds constrains the search space for each hyperparameter.
type Bounds struct {
	AlphaMin, AlphaMax             float64
	LambdaMin, LambdaMax           float64
	TemperatureMin, TemperatureMax float64
}

// DefaultBounds brackets the defaults in internal/config.TrainingConfig
// with enough room either side to be worth searching.
func DefaultBounds() Bounds {
	return Bounds{
		AlphaMin: 0.1, AlphaMax: 5.0,
		LambdaMin: 0.0, LambdaMax: 0.6,
		TemperatureMin: 0.25, TemperatureMax: 3.0,
	}
}

// SearchConfig controls the genetic algorithm run.
type SearchConfig struct {
	PopulationSize int
	Generations    int
	TournamentSize int
	EliteCount     int
	MutationRate   float64
	CrossoverRate  float64
	Kind           nbac.ModelKind
	Bounds         Bounds
}

// DefaultSearchConfig returns a modest search suitable for a single
// format's corpus.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		PopulationSize: 24,
		Generations:    20,
		TournamentSize: 3,
		EliteCount:     2,
		MutationRate:   0.3,
		CrossoverRate:  0.7,
		Kind:           nbac.KindPresence,
		Bounds:         DefaultBounds(),
	}
}

// Result is the best candidate a Search run found.
type Result struct {
	Alpha            float64
	BackgroundLambda float64
	Temperature      float64
	Accuracy         float64
}

// holdoutSplit separates decks into a training slice and a held-out
// evaluation slice by index, every fifth deck held out, so a Search run
// is deterministic given the same corpus ordering.
func holdoutSplit(decks []nbac.Deck) (train, holdout []nbac.Deck) {
	for i, d := range decks {
		if i%5 == 0 {
			holdout = append(holdout, d)
		} else {
			train = append(train, d)
		}
	}
	return train, holdout
}

// candidate is the genome eaopt evolves: a point in hyperparameter
// space, scored by training on the held-in split and measuring top-1
// accuracy against the held-out split.
type candidate struct {
	alpha   float64
	lambda  float64
	temp    float64
	bounds  Bounds
	kind    nbac.ModelKind
	base    config.TrainingConfig
	train   []nbac.Deck
	holdout []nbac.Deck
}

func (c *candidate) trainingConfig() config.TrainingConfig {
	cfg := c.base
	cfg.Alpha = c.alpha
	cfg.BackgroundLambda = c.lambda
	if c.kind == nbac.KindCounts {
		cfg.TemperatureCounts = c.temp
	} else {
		cfg.TemperaturePresence = c.temp
	}
	return cfg
}

// accuracy trains on c.train and measures top-1 label match over
// c.holdout, restricted to held-out decks whose normalized label
// survived into the trained archetype set.
func (c *candidate) accuracy() (float64, error) {
	cfg := c.trainingConfig()
	artifacts, err := nbac.Train(c.train, cfg)
	if err != nil {
		return 0, err
	}
	allowed := make(map[string]bool, len(artifacts.Meta.Archetypes))
	for _, a := range artifacts.Meta.Archetypes {
		allowed[a] = true
	}

	correct, total := 0, 0
	for _, d := range c.holdout {
		label, ok := normalize.NormalizeLabel(normalize.DeckEntry{DisplayName: d.DisplayName, ArchetypeRaw: d.ArchetypeRaw}, allowed)
		if !ok {
			continue
		}
		deckCounts := make(map[string]int)
		for _, cq := range d.Mainboard {
			if cq.Quantity <= 0 {
				continue
			}
			qty := cq.Quantity
			if cfg.ClipQty > 0 && qty > cfg.ClipQty {
				qty = cfg.ClipQty
			}
			deckCounts[cq.Name] += qty
		}
		probs := nbac.Score(artifacts.Meta, deckCounts, c.kind, artifacts.Cards)
		top := nbac.TopK(probs, 1)
		total++
		if len(top) == 1 && top[0].Archetype == label {
			correct++
		}
	}
	if total == 0 {
		return 0, archerrors.New(archerrors.CodeCorpusEmpty, "no held-out decks survived normalization against the trained archetype set")
	}
	return float64(correct) / float64(total), nil
}

// Evaluate implements eaopt.Genome. eaopt minimizes, so this returns
// 1-accuracy: a perfect model scores 0.
func (c *candidate) Evaluate() (float64, error) {
	acc, err := c.accuracy()
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// Mutate implements eaopt.Genome, jittering each parameter and
// clamping it back into bounds.
func (c *candidate) Mutate(rng *rand.Rand) {
	c.alpha = clamp(c.alpha+rng.NormFloat64()*0.4, c.bounds.AlphaMin, c.bounds.AlphaMax)
	c.lambda = clamp(c.lambda+rng.NormFloat64()*0.08, c.bounds.LambdaMin, c.bounds.LambdaMax)
	c.temp = clamp(c.temp+rng.NormFloat64()*0.2, c.bounds.TemperatureMin, c.bounds.TemperatureMax)
}

// Crossover implements eaopt.Genome by averaging each parameter with
// the other parent's.
func (c *candidate) Crossover(other eaopt.Genome, rng *rand.Rand) {
	o, ok := other.(*candidate)
	if !ok {
		return
	}
	c.alpha = (c.alpha + o.alpha) / 2
	c.lambda = (c.lambda + o.lambda) / 2
	c.temp = (c.temp + o.temp) / 2
}

// Clone implements eaopt.Genome.
func (c *candidate) Clone() eaopt.Genome {
	clone := *c
	return &clone
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Search runs the genetic algorithm over decks, using base as the
// template for every other hyperparameter the search doesn't touch,
// and returns the best {alpha, background_lambda, temperature} found
// along with its held-out accuracy.
func Search(decks []nbac.Deck, base config.TrainingConfig, sc SearchConfig) (Result, error) {
	train, holdout := holdoutSplit(decks)
	if len(train) == 0 || len(holdout) == 0 {
		return Result{}, archerrors.New(archerrors.CodeCorpusEmpty, "corpus too small for a train/holdout split")
	}

	model := elitismModel{
		Selector:  eaopt.SelTournament{NContestants: uint(sc.TournamentSize)},
		Elite:     uint(sc.EliteCount),
		MutRate:   sc.MutationRate,
		CrossRate: sc.CrossoverRate,
	}

	gaConfig := eaopt.GAConfig{
		NPops:        1,
		PopSize:      uint(sc.PopulationSize),
		NGenerations: uint(sc.Generations),
		HofSize:      1,
		Model:        model,
		RNG:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	ga, err := gaConfig.NewGA()
	if err != nil {
		return Result{}, archerrors.New(archerrors.CodeConfigInvalid, fmt.Sprintf("build tuner: %v", err))
	}

	bounds := sc.Bounds
	newGenome := func(rng *rand.Rand) eaopt.Genome {
		return &candidate{
			alpha:   bounds.AlphaMin + rng.Float64()*(bounds.AlphaMax-bounds.AlphaMin),
			lambda:  bounds.LambdaMin + rng.Float64()*(bounds.LambdaMax-bounds.LambdaMin),
			temp:    bounds.TemperatureMin + rng.Float64()*(bounds.TemperatureMax-bounds.TemperatureMin),
			bounds:  bounds,
			kind:    sc.Kind,
			base:    base,
			train:   train,
			holdout: holdout,
		}
	}

	if err := ga.Minimize(newGenome); err != nil {
		return Result{}, archerrors.New(archerrors.CodeConfigInvalid, fmt.Sprintf("run tuner: %v", err))
	}
	if len(ga.HallOfFame) == 0 {
		return Result{}, archerrors.New(archerrors.CodeConfigInvalid, "tuner produced no hall of fame entry")
	}

	best, ok := ga.HallOfFame[0].Genome.(*candidate)
	if !ok {
		return Result{}, archerrors.New(archerrors.CodeConfigInvalid, "unexpected genome type in hall of fame")
	}
	return Result{
		Alpha:            best.alpha,
		BackgroundLambda: best.lambda,
		Temperature:      best.temp,
		Accuracy:         1 - ga.HallOfFame[0].Fitness,
	}, nil
}

// elitismModel carries the population forward by cloning its top
// performers unchanged and filling the remainder via tournament
// selection, crossover, and mutation, mirroring the GA model shape
// eaopt expects a caller to supply.
type elitismModel struct {
	Selector  eaopt.Selector
	Elite     uint
	MutRate   float64
	CrossRate float64
}

func (mod elitismModel) Apply(pop *eaopt.Population) error {
	if pop == nil || len(pop.Individuals) == 0 {
		return nil
	}
	if mod.Elite > uint(len(pop.Individuals)) {
		mod.Elite = uint(len(pop.Individuals))
	}

	pop.Individuals.SortByFitness()

	var elites eaopt.Individuals
	if mod.Elite > 0 {
		elites = pop.Individuals[:mod.Elite].Clone(pop.RNG)
	}

	offspringCount := uint(len(pop.Individuals)) - mod.Elite
	if offspringCount == 0 {
		copy(pop.Individuals, elites)
		return nil
	}

	offsprings := make(eaopt.Individuals, offspringCount)
	i := 0
	for i < len(offsprings) {
		selected, _, err := mod.Selector.Apply(2, pop.Individuals, pop.RNG)
		if err != nil {
			return err
		}
		if pop.RNG.Float64() < mod.CrossRate {
			selected[0].Crossover(selected[1], pop.RNG)
		}
		offsprings[i] = selected[0]
		i++
		if i < len(offsprings) {
			offsprings[i] = selected[1]
			i++
		}
	}
	if mod.MutRate > 0 {
		offsprings.Mutate(mod.MutRate, pop.RNG)
	}

	copy(pop.Individuals, elites)
	copy(pop.Individuals[mod.Elite:], offsprings)
	return nil
}

func (mod elitismModel) Validate() error {
	if mod.Selector == nil {
		return fmt.Errorf("selector cannot be nil")
	}
	if err := mod.Selector.Validate(); err != nil {
		return err
	}
	if mod.MutRate < 0 || mod.MutRate > 1 {
		return fmt.Errorf("mutation rate must be between 0 and 1, got %f", mod.MutRate)
	}
	if mod.CrossRate < 0 || mod.CrossRate > 1 {
		return fmt.Errorf("crossover rate must be between 0 and 1, got %f", mod.CrossRate)
	}
	return nil
}
