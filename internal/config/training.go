// Package config provides the training-time and storage-time
// configuration shared by the trainers, the artifact codec, and the
// store client. Every numeric default named in the design lives here,
// as a struct field with a documented default, rather than inlined at
// call sites.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	archerrors "github.com/klauer/archclass/internal/errors"
)

// TrainingConfig holds every hyperparameter and structural constant the
// trainers and scorers need. Zero-value TrainingConfig is invalid; use
// DefaultTrainingConfig or Load.
type TrainingConfig struct {
	// DeckSize is the nominal mainboard size. Default 60. Validate
	// requires it to be positive; the bigram trainer does not read it and
	// takes N from each bigram's mean deck size in the corpus instead.
	DeckSize int `toml:"deck_size"`

	// OpenerSize is the opening-hand draw size (d in spec terms). Default 7.
	OpenerSize int `toml:"opener_size"`

	// Alpha is the Laplace smoothing pseudocount added to every
	// card/archetype cell before normalizing. Default 1.
	Alpha float64 `toml:"alpha"`

	// BackgroundLambda is the fraction of background (corpus-wide) mass
	// mixed into each per-archetype card probability. Must be in [0, 1].
	// Default 0.15.
	BackgroundLambda float64 `toml:"background_lambda"`

	// TemperatureCounts and TemperaturePresence scale the counts/presence
	// model log-scores before softmax. Must be > 0; non-positive values
	// are treated as 1 at score time. Default 1 for both.
	TemperatureCounts   float64 `toml:"temperature_counts"`
	TemperaturePresence float64 `toml:"temperature_presence"`

	// ClipQty is the per-card mainboard quantity cap applied before
	// accumulating the counts model. Default 4.
	ClipQty int `toml:"clip_qty"`

	// SelfFilterRho is the fraction of lowest-posterior decks dropped per
	// archetype before a single retraining pass. 0 disables self-filtering.
	// Must be in [0, 1). Default 0.
	SelfFilterRho float64 `toml:"self_filter_rho"`

	// StoreBatchSize bounds how many card rows are upserted per batch.
	// Per the design this should sit in [25, 50]. Default 25.
	StoreBatchSize int `toml:"store_batch_size"`

	// RetentionWindow is how long a store row may go unwritten before the
	// retention sweep deletes it. Default 30 days.
	RetentionWindow time.Duration `toml:"-"`
	// RetentionWindowDays mirrors RetentionWindow for TOML round-tripping
	// (time.Duration doesn't have a natural TOML scalar representation).
	RetentionWindowDays int `toml:"retention_window_days"`

	// RecencyWindow bounds how far back the corpus loader looks for
	// labelled decks. Default 90 days.
	RecencyWindow time.Duration `toml:"-"`
	RecencyWindowDays int        `toml:"recency_window_days"`

	// CorpusConcurrency bounds how many per-format corpus loads run
	// concurrently during a multi-format build. Default 3.
	CorpusConcurrency int `toml:"corpus_concurrency"`
}

// DefaultTrainingConfig returns the spec's documented defaults.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		DeckSize:            60,
		OpenerSize:          7,
		Alpha:               1.0,
		BackgroundLambda:    0.15,
		TemperatureCounts:   1.0,
		TemperaturePresence: 1.0,
		ClipQty:             4,
		SelfFilterRho:       0.0,
		StoreBatchSize:      25,
		RetentionWindow:     30 * 24 * time.Hour,
		RetentionWindowDays: 30,
		RecencyWindow:       90 * 24 * time.Hour,
		RecencyWindowDays:   90,
		CorpusConcurrency:   3,
	}
}

// Load reads a TOML training-config file, starting from the defaults so
// a partial file only overrides the fields it sets.
func Load(path string) (TrainingConfig, error) {
	cfg := DefaultTrainingConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, archerrors.New(archerrors.CodeConfigInvalid, fmt.Sprintf("read config %s: %v", path, err))
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, archerrors.New(archerrors.CodeConfigInvalid, fmt.Sprintf("parse config %s: %v", path, err))
	}

	if cfg.RetentionWindowDays > 0 {
		cfg.RetentionWindow = time.Duration(cfg.RetentionWindowDays) * 24 * time.Hour
	}
	if cfg.RecencyWindowDays > 0 {
		cfg.RecencyWindow = time.Duration(cfg.RecencyWindowDays) * 24 * time.Hour
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports a CodeConfigInvalid error when deck_size, opener_size,
// alpha, clip_qty or store_batch_size is not positive, background_lambda
// is outside [0, 1], or self_filter_rho is outside [0, 1). The
// temperatures are not checked, and store_batch_size is not held to the
// [25, 50] band.
func (c TrainingConfig) Validate() error {
	switch {
	case c.DeckSize <= 0:
		return archerrors.New(archerrors.CodeConfigInvalid, "deck_size must be positive")
	case c.OpenerSize <= 0:
		return archerrors.New(archerrors.CodeConfigInvalid, "opener_size must be positive")
	case c.Alpha <= 0:
		return archerrors.New(archerrors.CodeConfigInvalid, "alpha must be positive")
	case c.BackgroundLambda < 0 || c.BackgroundLambda > 1:
		return archerrors.New(archerrors.CodeConfigInvalid, "background_lambda must be in [0, 1]")
	case c.ClipQty <= 0:
		return archerrors.New(archerrors.CodeConfigInvalid, "clip_qty must be positive")
	case c.SelfFilterRho < 0 || c.SelfFilterRho >= 1:
		return archerrors.New(archerrors.CodeConfigInvalid, "self_filter_rho must be in [0, 1)")
	case c.StoreBatchSize <= 0:
		return archerrors.New(archerrors.CodeConfigInvalid, "store_batch_size must be positive")
	}
	return nil
}
