package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/klauer/archclass/internal/config"
	archerrors "github.com/klauer/archclass/internal/errors"
	"github.com/klauer/archclass/pkg/codec"
	"github.com/klauer/archclass/pkg/nbac"
	"github.com/klauer/archclass/pkg/store"
)

// loadTrainingConfig resolves the effective TrainingConfig for a run:
// defaults, overridden by --config if set.
func loadTrainingConfig(cmd *cli.Command) (config.TrainingConfig, error) {
	path := cmd.String("config")
	if path == "" {
		return config.DefaultTrainingConfig(), nil
	}
	return config.Load(path)
}

// resolveFormats expands --all-formats into store.Formats, otherwise
// requires a single --format value.
func resolveFormats(cmd *cli.Command) ([]string, error) {
	if cmd.Bool("all-formats") {
		return store.Formats, nil
	}
	format := cmd.String("format")
	if format == "" {
		return nil, fmt.Errorf("--format is required unless --all-formats is set")
	}
	if !store.ValidFormat(format) {
		return nil, archerrors.New(archerrors.CodeInputShape, fmt.Sprintf("unsupported format %q", format))
	}
	return []string{format}, nil
}

func encodeMeta(meta nbac.Meta) ([]byte, error) {
	return codec.EncodeMeta(meta)
}

func encodeCardEntry(entry nbac.CardEntry) ([]byte, error) {
	return codec.EncodeCardEntry(entry)
}

func decodeMeta(blob []byte) (nbac.Meta, error) {
	return codec.DecodeMeta(blob)
}

func decodeCardEntry(blob []byte) (nbac.CardEntry, error) {
	return codec.DecodeCardEntry(blob)
}

// openStoreClient opens the SQLite artifact archive at the configured
// data directory, read-only in spirit (score/explain/report never write).
func openStoreClient(cmd *cli.Command, cfg config.TrainingConfig) (*store.Client, error) {
	return store.Open(dataDBPath(cmd), cfg)
}

func dataDBPath(cmd *cli.Command) string {
	return filepath.Join(cmd.String("data-dir"), "archive.db")
}
