// Package postgres is a ledger.Store backed by PostgreSQL through pgxpool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// Store keeps processed items in the processed_items table.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dbURL, verifies the connection and ensures the schema.
func Open(ctx context.Context, dbURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS processed_items (
			id           TEXT PRIMARY KEY,
			kind         TEXT NOT NULL CHECK (kind IN ('submission', 'comment')),
			processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS processed_items_at ON processed_items (processed_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, item types.ProcessedItem) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO processed_items (id, kind, processed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		item.ID, string(item.Kind), item.ProcessedAt,
	); err != nil {
		return fmt.Errorf("insert processed item: %w", err)
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]types.ProcessedItem, error) {
	rows, err := s.pool.Query(ctx,
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
			at   time.Time
		)
		if err := rows.Scan(&it.ID, &kind, &at); err != nil {
			return nil, fmt.Errorf("scan processed item: %w", err)
		}
		it.Kind = types.Kind(kind)
		it.ProcessedAt = at.UTC()
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
