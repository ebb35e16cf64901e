// Package sqlite is a ledger.Store backed by a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_items (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	processed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS processed_items_at ON processed_items(processed_at);
`

// Store keeps processed items in one table.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// One writer; avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Upsert(ctx context.Context, item types.ProcessedItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed_items (id, kind, processed_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		item.ID, string(item.Kind), item.ProcessedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert processed item: %w", err)
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]types.ProcessedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, processed_at FROM processed_items ORDER BY processed_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query processed items: %w", err)
	}
	defer rows.Close()

	var out []types.ProcessedItem
	for rows.Next() {
		var (
			it   types.ProcessedItem
			kind string
			at   string
		)
		if err := rows.Scan(&it.ID, &kind, &at); err != nil {
			return nil, fmt.Errorf("scan processed item: %w", err)
		}
		it.Kind = types.Kind(kind)
		if it.ProcessedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse processed_at for %s: %w", it.ID, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
