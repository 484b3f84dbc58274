// Package store implements the artifact store client: a SQLite-backed
// key/value archive, two tables per format, that the trainer writes to
// and the scorer reads from. Writes are content-hash-guarded so an
// unchanged artifact never touches updated_at, and a retention sweep
// reaps rows the trainer hasn't refreshed recently.
package store

import (
	"crypto/md5"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/klauer/archclass/internal/closeutil"
	"github.com/klauer/archclass/internal/config"
	archerrors "github.com/klauer/archclass/internal/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Formats is the closed set of competitive formats the store recognizes.
var Formats = []string{"standard", "modern", "pioneer", "vintage", "legacy", "pauper"}

// ValidFormat reports whether f is one of Formats.
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if v == f {
			return true
		}
	}
	return false
}

// Client is a SQLite-backed artifact archive.
type Client struct {
	db  *sql.DB
	cfg config.TrainingConfig
}

// Open opens (and, if needed, creates) the SQLite database at dbPath and
// applies the archive schema migration.
func Open(dbPath string, cfg config.TrainingConfig) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("open store: %v", err))
	}

	c := &Client{db: db, cfg: cfg}
	if err := c.migrate(); err != nil {
		closeutil.CloseWithLog("store", db, "archive database")
		return nil, err
	}
	return c, nil
}

func (c *Client) migrate() error {
	driver, err := sqlite3.WithInstance(c.db, &sqlite3.Config{})
	if err != nil {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("sqlite migration driver: %v", err))
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("load migrations: %v", err))
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("init migrator: %v", err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("apply migrations: %v", err))
	}
	return nil
}

// Close closes the underlying database handle.
func (c *Client) Close() error {
	return c.db.Close()
}

func contentHash(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// UpsertMeta writes the format's meta row if its content differs from
// what is already stored, leaving updated_at untouched on a no-op write.
func (c *Client) UpsertMeta(format string, blob []byte, now time.Time) error {
	if !ValidFormat(format) {
		return archerrors.New(archerrors.CodeInputShape, fmt.Sprintf("unknown format %q", format))
	}
	table := format + "_meta"
	hash := contentHash(blob)

	query := fmt.Sprintf(`
		INSERT INTO %s (key, entry, hash, updated_at) VALUES ('meta', ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			entry = excluded.entry,
			hash = excluded.hash,
			updated_at = excluded.updated_at
		WHERE %s.hash != excluded.hash
	`, table, table)

	if _, err := c.db.Exec(query, blob, hash, now); err != nil {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("upsert %s meta: %v", format, err))
	}
	return nil
}

// UpsertASI writes the format's ASI bigram artifact, content-hash-guarded
// the same way UpsertMeta is. It shares the format's meta table under a
// distinct key so the bigram artifact rides the same retention sweep as
// the NBAC meta row.
func (c *Client) UpsertASI(format string, blob []byte, now time.Time) error {
	if !ValidFormat(format) {
		return archerrors.New(archerrors.CodeInputShape, fmt.Sprintf("unknown format %q", format))
	}
	table := format + "_meta"
	hash := contentHash(blob)

	query := fmt.Sprintf(`
		INSERT INTO %s (key, entry, hash, updated_at) VALUES ('asi', ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			entry = excluded.entry,
			hash = excluded.hash,
			updated_at = excluded.updated_at
		WHERE %s.hash != excluded.hash
	`, table, table)

	if _, err := c.db.Exec(query, blob, hash, now); err != nil {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("upsert %s asi: %v", format, err))
	}
	return nil
}

// GetASI reads the format's stored ASI bigram artifact, or nil if none
// has been written yet.
func (c *Client) GetASI(format string) ([]byte, error) {
	if !ValidFormat(format) {
		return nil, archerrors.New(archerrors.CodeInputShape, fmt.Sprintf("unknown format %q", format))
	}
	table := format + "_meta"
	var blob []byte
	err := c.db.QueryRow(fmt.Sprintf("SELECT entry FROM %s WHERE key = 'asi'", table)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("read %s asi: %v", format, err))
	}
	return blob, nil
}

// UpsertCards writes card entries in batches of cfg.StoreBatchSize,
// content-hash-guarded the same way UpsertMeta is. cards maps card name
// to its encoded entry blob.
func (c *Client) UpsertCards(format string, cards map[string][]byte, now time.Time) error {
	if !ValidFormat(format) {
		return archerrors.New(archerrors.CodeInputShape, fmt.Sprintf("unknown format %q", format))
	}
	table := format + "_cards"
	batchSize := c.cfg.StoreBatchSize
	if batchSize <= 0 {
		batchSize = 25
	}

	names := make([]string, 0, len(cards))
	for name := range cards {
		names = append(names, name)
	}

	for start := 0; start < len(names); start += batchSize {
		end := start + batchSize
		if end > len(names) {
			end = len(names)
		}
		if err := c.upsertCardBatch(table, names[start:end], cards, now); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) upsertCardBatch(table string, names []string, cards map[string][]byte, now time.Time) error {
	tx, err := c.db.Begin()
	if err != nil {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("begin card batch: %v", err))
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (card, entry, hash, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(card) DO UPDATE SET
			entry = excluded.entry,
			hash = excluded.hash,
			updated_at = excluded.updated_at
		WHERE %s.hash != excluded.hash
	`, table, table)

	stmt, err := tx.Prepare(query)
	if err != nil {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("prepare card upsert: %v", err))
	}
	defer stmt.Close()

	for _, name := range names {
		blob := cards[name]
		if _, err := stmt.Exec(name, blob, contentHash(blob), now); err != nil {
			return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("upsert card %q: %v", name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("commit card batch: %v", err))
	}
	return nil
}

// GetMeta reads the format's meta blob, or nil with no error if absent.
func (c *Client) GetMeta(format string) ([]byte, error) {
	if !ValidFormat(format) {
		return nil, archerrors.New(archerrors.CodeInputShape, fmt.Sprintf("unknown format %q", format))
	}
	table := format + "_meta"
	var blob []byte
	err := c.db.QueryRow(fmt.Sprintf("SELECT entry FROM %s WHERE key = 'meta'", table)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("read %s meta: %v", format, err))
	}
	return blob, nil
}

// GetCards reads only the requested card entries, keyed by name; cards
// with no stored entry are simply absent from the result.
func (c *Client) GetCards(format string, names []string) (map[string][]byte, error) {
	if !ValidFormat(format) {
		return nil, archerrors.New(archerrors.CodeInputShape, fmt.Sprintf("unknown format %q", format))
	}
	if len(names) == 0 {
		return map[string][]byte{}, nil
	}
	table := format + "_cards"

	placeholders := make([]byte, 0, 2*len(names))
	args := make([]any, len(names))
	for i, n := range names {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = n
	}

	query := fmt.Sprintf("SELECT card, entry FROM %s WHERE card IN (%s)", table, string(placeholders))
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("read %s cards: %v", format, err))
	}
	defer closeutil.CloseWithLog("store", rows, "card rows")

	out := make(map[string][]byte, len(names))
	for rows.Next() {
		var name string
		var blob []byte
		if err := rows.Scan(&name, &blob); err != nil {
			return nil, archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("scan %s card row: %v", format, err))
		}
		out[name] = blob
	}
	if err := rows.Err(); err != nil {
		return nil, archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("iterate %s card rows: %v", format, err))
	}
	return out, nil
}

// Retain deletes rows in both of the format's tables whose updated_at
// predates cfg.RetentionWindow, as measured from now.
func (c *Client) Retain(format string, now time.Time) error {
	if !ValidFormat(format) {
		return archerrors.New(archerrors.CodeInputShape, fmt.Sprintf("unknown format %q", format))
	}
	window := c.cfg.RetentionWindow
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	cutoff := now.Add(-window)

	for _, table := range []string{format + "_meta", format + "_cards"} {
		if _, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE updated_at < ?", table), cutoff); err != nil {
			return archerrors.New(archerrors.CodeStoreFailure, fmt.Sprintf("retention sweep %s: %v", table, err))
		}
	}
	return nil
}
