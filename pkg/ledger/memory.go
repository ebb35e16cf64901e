package ledger

import (
	"context"
	"sync"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// MemoryStore keeps records in a map. Nothing survives the process.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]types.ProcessedItem
	order []string

	// FailUpserts makes every Upsert return this error when set.
	FailUpserts error
}

// NewMemoryStore returns an empty store, optionally seeded.
func NewMemoryStore(seed ...types.ProcessedItem) *MemoryStore {
	s := &MemoryStore{items: make(map[string]types.ProcessedItem)}
	for _, it := range seed {
		_ = s.Upsert(context.Background(), it)
	}
	return s
}

func (s *MemoryStore) Upsert(_ context.Context, item types.ProcessedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpserts != nil {
		return s.FailUpserts
	}
	if _, ok := s.items[item.ID]; ok {
		return nil
	}
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	return nil
}

func (s *MemoryStore) LoadAll(context.Context) ([]types.ProcessedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ProcessedItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
