// Package ledger remembers which submissions and comments the bot has
// finished with, so that no item is ever answered twice.
//
// A Ledger keeps every processed id in memory and writes through to a Store.
// Lookups never touch the store; it is read once, when the ledger is opened.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// ErrPersist marks a Record call whose id is cached but whose store write
// failed. Callers treat it as a warning: the id will not be answered again by
// this process, but a restart may see it as unprocessed.
var ErrPersist = errors.New("ledger: persist failed")

// Store is a durable backend for processed items. Upsert must be idempotent.
type Store interface {
	Upsert(ctx context.Context, item types.ProcessedItem) error
	LoadAll(ctx context.Context) ([]types.ProcessedItem, error)
	Close() error
}

// Ledger is the in-memory view of a Store.
type Ledger struct {
	mu    sync.RWMutex
	store Store
	items map[string]types.ProcessedItem
	now   func() time.Time
}

// Open loads every record from store. A store that cannot be read is fatal
// for the caller; starting with an empty cache would re-answer old items.
func Open(ctx context.Context, store Store) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger: nil store")
	}
	all, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: load: %w", err)
	}
	l := &Ledger{
		store: store,
		items: make(map[string]types.ProcessedItem, len(all)),
		now:   time.Now,
	}
	for _, it := range all {
		if it.ID == "" {
			continue
		}
		if _, ok := l.items[it.ID]; !ok {
			l.items[it.ID] = it
		}
	}
	return l, nil
}

// Contains reports whether id was recorded.
func (l *Ledger) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.items[id]
	return ok
}

// Record marks id as processed. Recording an id twice is a no-op. The cache
// is updated before the store is written; on store failure the returned
// error wraps ErrPersist.
func (l *Ledger) Record(ctx context.Context, id string, kind types.Kind) error {
	if id == "" {
		return errors.New("ledger: empty id")
	}
	if !kind.Valid() {
		return fmt.Errorf("ledger: invalid kind %q", kind)
	}

	l.mu.Lock()
	if _, ok := l.items[id]; ok {
		l.mu.Unlock()
		return nil
	}
	item := types.ProcessedItem{ID: id, Kind: kind, ProcessedAt: l.now().UTC()}
	l.items[id] = item
	l.mu.Unlock()

	if err := l.store.Upsert(ctx, item); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, id, err)
	}
	return nil
}

// Len returns the number of recorded ids.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Items returns every record ordered by ProcessedAt, then id.
func (l *Ledger) Items() []types.ProcessedItem {
	l.mu.RLock()
	out := make([]types.ProcessedItem, 0, len(l.items))
	for _, it := range l.items {
		out = append(out, it)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ProcessedAt.Before(out[j].ProcessedAt)
	})
	return out
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}
