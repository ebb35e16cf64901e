package ledger

import (
	"context"
	"fmt"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/feed"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

const filePrefix = "ledger"

// FileStore appends records to a sharded JSONL journal in a directory.
// Upsert is idempotent at the ledger level: duplicate lines are possible
// across restarts and are collapsed by LoadAll.
type FileStore struct {
	dir string
	w   *feed.Writer
}

// OpenFileStore opens or creates the journal in dir.
func OpenFileStore(dir string) (*FileStore, error) {
	w, err := feed.OpenWriter(feed.WriterConfig{
		Dir:              dir,
		Prefix:           filePrefix,
		MaxLinesPerShard: 5000,
		Append:           true,
		Sync:             true,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger journal: %w", err)
	}
	return &FileStore{dir: dir, w: w}, nil
}

func (s *FileStore) Upsert(_ context.Context, item types.ProcessedItem) error {
	return s.w.Append(item)
}

// LoadAll returns one record per id, keeping the first one written.
func (s *FileStore) LoadAll(ctx context.Context) ([]types.ProcessedItem, error) {
	all, _, err := feed.Decode[types.ProcessedItem](ctx, s.dir, filePrefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, it := range all {
		if it.ID == "" {
			continue
		}
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out, nil
}

func (s *FileStore) Close() error {
	return s.w.Close()
}
