// Command archclass builds, scores, and explains per-format archetype
// classification artifacts from a labelled deck corpus.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:    "archclass",
		Usage:   "Archetype classification engine: train, score, and explain deck archetypes",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Value:   "./data",
				Usage:   "Directory holding the SQLite artifact archive",
				Sources: cli.EnvVars("ARCHCLASS_DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Competitive format (standard, modern, pioneer, vintage, legacy, pauper)",
				Sources: cli.EnvVars("ARCHCLASS_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a training-config TOML file (defaults applied if unset)",
				Sources: cli.EnvVars("ARCHCLASS_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose progress output",
			},
		},
		Commands: allSubcommands(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// allSubcommands returns the full archclass command tree.
func allSubcommands() []*cli.Command {
	return []*cli.Command{
		addBuildCommand(),
		addScoreCommand(),
		addExplainCommand(),
		addTuneCommand(),
		addReportCommand(),
	}
}

func fprintf(w *os.File, format string, args ...any) {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		log.Printf("write failed: %v", err)
	}
}

func printf(format string, args ...any) {
	fprintf(os.Stdout, format, args...)
}
