package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
)

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return sc
}

// Lines yields every non-blank line of the journal, oldest first. A missing
// journal yields nothing. The manifest is used when present; otherwise the
// shard files on disk are scanned.
func Lines(ctx context.Context, dir, prefix string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if prefix == "" {
			prefix = "events"
		}
		idx, err := LoadIndex(dir, prefix)
		if errors.Is(err, os.ErrNotExist) {
			idx = scanShards(dir, prefix, 0)
		} else if err != nil {
			yield(nil, fmt.Errorf("load feed index: %w", err))
			return
		}

		for _, s := range idx.Shards {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !readShard(filepath.Join(dir, s.File), yield) {
				return
			}
		}
	}
}

func readShard(path string, yield func([]byte, error) bool) bool {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	if err != nil {
		return yield(nil, fmt.Errorf("open shard: %w", err))
	}
	defer f.Close()

	sc := newScanner(f)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if !yield(bytes.Clone(line), nil) {
			return false
		}
	}
	if err := sc.Err(); err != nil {
		return yield(nil, fmt.Errorf("read shard %s: %w", filepath.Base(path), err))
	}
	return true
}

// Decode reads every line into a T. Lines that are not valid JSON (for
// example a line torn by a crash) are counted in skipped and otherwise
// ignored.
func Decode[T any](ctx context.Context, dir, prefix string) (out []T, skipped int, err error) {
	for line, err := range Lines(ctx, dir, prefix) {
		if err != nil {
			return nil, skipped, err
		}
		var v T
		if json.Unmarshal(line, &v) != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped, nil
}
