// Package nbac implements the Naive Bayes Archetype Classifier: a
// multinomial Naive Bayes model over mainboard card counts (or presence),
// trained per card-legal format with Laplace smoothing and background
// mixing against the corpus-wide card distribution.
package nbac

// ModelKind distinguishes the counts model (clipped mainboard quantities)
// from the presence model (binarized mainboard membership).
type ModelKind string

const (
	KindCounts   ModelKind = "counts"
	KindPresence ModelKind = "presence"
)

// Params are the smoothing/mixing/temperature hyperparameters a model was
// trained with, carried alongside it so a scorer never has to guess them.
type Params struct {
	Alpha            float64
	BackgroundLambda float64
	Temperature      float64
}

// Model is one trained multinomial NB model (counts or presence): a dense
// per-archetype log-prior and log-unseen array, indexed in lockstep with
// Meta.Archetypes.
type Model struct {
	Kind      ModelKind
	Params    Params
	LogPrior  []float64
	LogUnseen []float64
}

// Meta is the artifact-wide header: format version, build timestamp, the
// archetype index, and both trained models.
type Meta struct {
	Version    int
	BuildUnix  int64
	Archetypes []string
	Counts     Model
	Presence   Model
}

// ModelFor returns the counts or presence model by kind.
func (m Meta) ModelFor(kind ModelKind) Model {
	if kind == KindCounts {
		return m.Counts
	}
	return m.Presence
}

// CardEntry is the per-card dense array pair (log theta for the counts
// model, log theta for the presence model), indexed in lockstep with
// Meta.Archetypes, plus the optional background log-q used by NBC2
// entries and the lift explanation mode.
type CardEntry struct {
	LogThetaCounts   []float64
	LogThetaPresence []float64
	LogQCounts       *float64
	LogQPresence     *float64
}

// LogTheta returns the per-archetype log theta array for the given model
// kind.
func (c CardEntry) LogTheta(kind ModelKind) []float64 {
	if kind == KindCounts {
		return c.LogThetaCounts
	}
	return c.LogThetaPresence
}

// LogQ returns the background log-q for the given model kind, or nil if
// this entry predates NBC2 background tracking.
func (c CardEntry) LogQ(kind ModelKind) *float64 {
	if kind == KindCounts {
		return c.LogQCounts
	}
	return c.LogQPresence
}

// CardQty is a single mainboard line: a card name and the copies played.
type CardQty struct {
	Name     string
	Quantity int
}

// Deck is the minimal shape the trainer and scorer need from a corpus row.
type Deck struct {
	DisplayName  string
	ArchetypeRaw string
	Mainboard    []CardQty
}
