package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/klauer/archclass/internal/config"
)

func openTestClient(t *testing.T) *Client {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "archive.db")
	c, err := Open(dbPath, config.DefaultTrainingConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestUpsertMetaIsHashGuarded(t *testing.T) {
	c := openTestClient(t)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := c.UpsertMeta("standard", []byte("meta-v1"), t0); err != nil {
		t.Fatalf("UpsertMeta: %v", err)
	}

	t1 := t0.Add(time.Hour)
	if err := c.UpsertMeta("standard", []byte("meta-v1"), t1); err != nil {
		t.Fatalf("UpsertMeta (no-op): %v", err)
	}

	blob, err := c.GetMeta("standard")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if string(blob) != "meta-v1" {
		t.Fatalf("unexpected meta blob: %q", blob)
	}

	var updatedAt time.Time
	row := c.db.QueryRow("SELECT updated_at FROM standard_meta WHERE key = 'meta'")
	if err := row.Scan(&updatedAt); err != nil {
		t.Fatalf("scan updated_at: %v", err)
	}
	if !updatedAt.Equal(t0) {
		t.Fatalf("expected hash-guarded write to leave updated_at at %v, got %v", t0, updatedAt)
	}

	t2 := t1.Add(time.Hour)
	if err := c.UpsertMeta("standard", []byte("meta-v2"), t2); err != nil {
		t.Fatalf("UpsertMeta (changed): %v", err)
	}
	blob, err = c.GetMeta("standard")
	if err != nil {
		t.Fatalf("GetMeta after change: %v", err)
	}
	if string(blob) != "meta-v2" {
		t.Fatalf("expected updated meta blob, got %q", blob)
	}
}

func TestUpsertCardsAndGetCards(t *testing.T) {
	c := openTestClient(t)
	now := time.Now()

	cards := map[string][]byte{
		"Lightning Bolt": []byte("entry-1"),
		"Mountain":       []byte("entry-2"),
	}
	if err := c.UpsertCards("modern", cards, now); err != nil {
		t.Fatalf("UpsertCards: %v", err)
	}

	got, err := c.GetCards("modern", []string{"Lightning Bolt", "Nonexistent"})
	if err != nil {
		t.Fatalf("GetCards: %v", err)
	}
	if len(got) != 1 || string(got["Lightning Bolt"]) != "entry-1" {
		t.Fatalf("unexpected cards result: %v", got)
	}
}

func TestRetainDeletesStaleRows(t *testing.T) {
	c := openTestClient(t)
	old := time.Now().Add(-60 * 24 * time.Hour)
	fresh := time.Now()

	if err := c.UpsertMeta("legacy", []byte("old"), old); err != nil {
		t.Fatalf("UpsertMeta: %v", err)
	}
	if err := c.UpsertCards("legacy", map[string][]byte{"Card": []byte("x")}, old); err != nil {
		t.Fatalf("UpsertCards: %v", err)
	}

	if err := c.Retain("legacy", fresh); err != nil {
		t.Fatalf("Retain: %v", err)
	}

	blob, err := c.GetMeta("legacy")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if blob != nil {
		t.Fatalf("expected stale meta row to be reaped, got %q", blob)
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	c := openTestClient(t)
	if err := c.UpsertMeta("homebrew", []byte("x"), time.Now()); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}
