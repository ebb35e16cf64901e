package reddit

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// StreamConfig configures a Stream.
type StreamConfig struct {
	Subreddit string
	Kinds     []types.Kind // default: submissions and comments

	Limit      int           // page size, default 100
	RecentSize int           // ids remembered per kind, default 301
	MinDelay   time.Duration // default 1s
	MaxDelay   time.Duration // default 16s

	// Sleep waits between polls; it must return early with ctx.Err() when
	// ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

type lister interface {
	Listing(ctx context.Context, subreddit string, kind types.Kind, limit int) ([]*types.Item, error)
}

// Stream polls subreddit listings and yields items it has not yielded
// recently, oldest first. It keeps no state across restarts; the engine's
// start-time cursor and the ledger take care of old items.
type Stream struct {
	src lister
	cfg StreamConfig
}

// NewStream creates a stream over c.
func (c *Client) NewStream(cfg StreamConfig) *Stream {
	return newStream(c, cfg)
}

func newStream(src lister, cfg StreamConfig) *Stream {
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = []types.Kind{types.KindSubmission, types.KindComment}
	}
	if cfg.Limit <= 0 || cfg.Limit > MaxListingLimit {
		cfg.Limit = MaxListingLimit
	}
	if cfg.RecentSize <= 0 {
		cfg.RecentSize = 301
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 16 * time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Stream{src: src, cfg: cfg}
}

// Items yields new items until ctx is done or the consumer stops. Listing
// failures are yielded as errors and polling continues with backoff.
func (s *Stream) Items(ctx context.Context) iter.Seq2[*types.Item, error] {
	return func(yield func(*types.Item, error) bool) {
		seen := make(map[types.Kind]*recentSet, len(s.cfg.Kinds))
		for _, k := range s.cfg.Kinds {
			seen[k] = newRecentSet(s.cfg.RecentSize)
		}
		delay := s.cfg.MinDelay

		for {
			if ctx.Err() != nil {
				return
			}
			found := false
			for _, kind := range s.cfg.Kinds {
				items, err := s.src.Listing(ctx, s.cfg.Subreddit, kind, s.cfg.Limit)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					if !yield(nil, fmt.Errorf("poll %s listing: %w", kind, err)) {
						return
					}
					continue
				}
				// Listings are newest first.
				for _, it := range slices.Backward(items) {
					if it == nil || !seen[kind].Add(it.ID) {
						continue
					}
					found = true
					if !yield(it, nil) {
						return
					}
				}
			}

			if found {
				delay = s.cfg.MinDelay
			} else {
				delay = min(delay*2, s.cfg.MaxDelay)
			}
			if err := s.cfg.Sleep(ctx, delay); err != nil {
				return
			}
		}
	}
}

// recentSet remembers the last n ids added, evicting the oldest.
type recentSet struct {
	ids  map[string]struct{}
	ring []string
	next int
}

func newRecentSet(n int) *recentSet {
	return &recentSet{ids: make(map[string]struct{}, n), ring: make([]string, n)}
}

// Add reports whether id was new.
func (r *recentSet) Add(id string) bool {
	if _, ok := r.ids[id]; ok {
		return false
	}
	if old := r.ring[r.next]; old != "" {
		delete(r.ids, old)
	}
	r.ring[r.next] = id
	r.ids[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ring)
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
