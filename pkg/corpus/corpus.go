// Package corpus loads labelled decks for a format within a recency
// window from the Postgres-backed Videre corpus, pacing and bounding the
// concurrency of per-format fetches during a multi-format build.
package corpus

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"

	"github.com/klauer/archclass/internal/config"
	archerrors "github.com/klauer/archclass/internal/errors"
)

// CardQty is a single mainboard or sideboard line.
type CardQty struct {
	Name     string
	Quantity int
}

// Deck is one labelled deck row as the corpus loader yields it. Decklist
// string parsing from the underlying Postgres array/tuple representation
// is the caller's concern; Loader expects the driver's row scan to have
// already produced CardQty slices.
type Deck struct {
	ID           int64
	DisplayName  string
	ArchetypeRaw string
	Format       string
	Date         time.Time
	Mainboard    []CardQty
	Sideboard    []CardQty
}

// Loader fetches labelled decks from Postgres, one connection pool shared
// across every format fetched during a build.
type Loader struct {
	pool    *pgxpool.Pool
	limiter ratelimit.Limiter
	cfg     config.TrainingConfig
}

// NewLoader opens a pgx connection pool against connStr (typically read
// from DATABASE_URL) and paces per-format fetches to at most one query
// per second, matching the single query-per-format suspension point the
// design allows the offline trainer.
func NewLoader(ctx context.Context, connStr string, cfg config.TrainingConfig) (*Loader, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("connect corpus database: %v", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("ping corpus database: %v", err))
	}
	return &Loader{
		pool:    pool,
		limiter: ratelimit.New(1, ratelimit.Per(time.Second)),
		cfg:     cfg,
	}, nil
}

// Close drains the connection pool.
func (l *Loader) Close() {
	l.pool.Close()
}

// query is the shape every per-format fetch shares: labelled decks for
// format at or after the recency window cutoff.
const query = `
	SELECT
		a.id,
		a.name,
		a.archetype,
		e.format,
		e.date,
		d.mainboard,
		d.sideboard
	FROM
		archetypes a
		INNER JOIN decks d ON a.deck_id = d.id
		INNER JOIN events e ON d.event_id = e.id
	WHERE
		a.id IS NOT NULL
		AND e.format = $1
		AND e.date >= $2
`

// Load fetches every labelled deck for format within cfg.RecencyWindow of
// now. Rows are collected with pgx.CollectRows and scanDeck, which scans
// mainboard/sideboard straight into CardQty slices, so the decklist
// array/tuple parser itself stays out of this package.
func (l *Loader) Load(ctx context.Context, format string, now time.Time) ([]Deck, error) {
	l.limiter.Take()

	cutoff := now.Add(-l.cfg.RecencyWindow)
	rows, err := l.pool.Query(ctx, query, format, cutoff)
	if err != nil {
		return nil, archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("query corpus for %s: %v", format, err))
	}
	defer rows.Close()

	decks, err := pgx.CollectRows(rows, scanDeck)
	if err != nil {
		return nil, archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("scan corpus rows for %s: %v", format, err))
	}
	if len(decks) == 0 {
		return nil, archerrors.New(archerrors.CodeCorpusEmpty, fmt.Sprintf("no decks found for %s since %s", format, cutoff.Format("2006-01-02")))
	}
	return decks, nil
}

// scanDeck decodes one row. mainboard/sideboard arrive as driver-decoded
// composite arrays; converting those into CardQty slices is left to the
// caller's pgx type registration (out of scope here, same as the
// reference implementation's separate decklist parser).
func scanDeck(row pgx.CollectableRow) (Deck, error) {
	var d Deck
	var mainboard, sideboard []CardQty
	err := row.Scan(&d.ID, &d.DisplayName, &d.ArchetypeRaw, &d.Format, &d.Date, &mainboard, &sideboard)
	d.Mainboard = mainboard
	d.Sideboard = sideboard
	return d, err
}

// LoadAll fetches every format in formats concurrently, bounded by
// cfg.CorpusConcurrency, and paced by the loader's rate limiter. A
// failure on any format cancels the rest and returns the first error.
func (l *Loader) LoadAll(ctx context.Context, formats []string, now time.Time) (map[string][]Deck, error) {
	concurrency := l.cfg.CorpusConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make(map[string][]Deck, len(formats))
	resultCh := make(chan struct {
		format string
		decks  []Deck
	}, len(formats))

	for _, format := range formats {
		format := format
		g.Go(func() error {
			decks, err := l.Load(ctx, format, now)
			if err != nil {
				return err
			}
			resultCh <- struct {
				format string
				decks  []Deck
			}{format, decks}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(resultCh)
	for r := range resultCh {
		results[r.format] = r.decks
	}
	return results, nil
}
