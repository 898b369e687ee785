// Package sqlite archives last-good feed entries in a local database so a
// restarted kiosk shows stale data instead of blank panels while it waits
// for the broker.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/neiam/apollos-kiosk/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS feed_snapshots (
	key        TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	entry      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// SnapshotStore is the sqlite-backed feed snapshot archive.
type SnapshotStore struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the archive at path.
func Open(path string) (*SnapshotStore, error) {
	return open(path)
}

// OpenMemory opens an in-memory archive, used in tests.
func OpenMemory() (*SnapshotStore, error) {
	return open(":memory:")
}

func open(dsn string) (*SnapshotStore, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate snapshot db: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// entryRecord is the stored JSON shape of one feed entry. Content is kept
// as raw JSON and re-typed through the entry's kind on load.
type entryRecord struct {
	Content json.RawMessage   `json:"content"`
	Query   *domain.QueryInfo `json:"query,omitempty"`
}

// Upsert stores or wholesale-replaces the snapshot for key.
func (s *SnapshotStore) Upsert(ctx context.Context, key string, entry domain.Entry) error {
	content, err := json.Marshal(entry.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	record, err := json.Marshal(entryRecord{Content: content, Query: entry.Query})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	query := `
		INSERT INTO feed_snapshots (key, kind, entry, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			kind = EXCLUDED.kind,
			entry = EXCLUDED.entry,
			updated_at = EXCLUDED.updated_at`

	_, err = s.db.ExecContext(ctx, query, key, string(entry.Content.Kind()), string(record), time.Now().UTC())
	return err
}

// All loads every stored snapshot. Rows that no longer decode (schema drift
// across kiosk versions) are skipped rather than failing the whole restore.
func (s *SnapshotStore) All(ctx context.Context) (map[string]domain.Entry, error) {
	var rows []struct {
		Key   string `db:"key"`
		Kind  string `db:"kind"`
		Entry string `db:"entry"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT key, kind, entry FROM feed_snapshots`); err != nil {
		return nil, err
	}

	entries := make(map[string]domain.Entry, len(rows))
	for _, row := range rows {
		var record entryRecord
		if err := json.Unmarshal([]byte(row.Entry), &record); err != nil {
			continue
		}
		content, err := domain.UnmarshalContent(domain.Kind(row.Kind), record.Content)
		if err != nil {
			continue
		}
		entries[row.Key] = domain.Entry{Content: content, Query: record.Query}
	}
	return entries, nil
}

// Delete removes the snapshot for key.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM feed_snapshots WHERE key = $1`, key)
	return err
}
