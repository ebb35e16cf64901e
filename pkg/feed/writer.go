// Package feed stores append-only JSONL journals split into numbered shards
// with a small JSON manifest next to them.
package feed

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DefaultMaxLinesPerShard is used when WriterConfig leaves it unset.
const DefaultMaxLinesPerShard = 500

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("feed writer closed")

// WriterConfig configures OpenWriter.
type WriterConfig struct {
	Dir              string
	Prefix           string // shard file prefix, default "events"
	MaxLinesPerShard int
	Append           bool // resume the existing journal instead of starting at shard 1
	Sync             bool // fsync after every line
}

// Writer appends JSON lines to the newest shard, rotating when it is full.
// It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	cfg WriterConfig
	idx *Index

	f     *os.File
	buf   *bufio.Writer
	seq   int
	lines int
}

// OpenWriter opens (or creates) the journal in cfg.Dir.
func OpenWriter(cfg WriterConfig) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, errors.New("feed dir is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "events"
	}
	if cfg.MaxLinesPerShard <= 0 {
		cfg.MaxLinesPerShard = DefaultMaxLinesPerShard
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create feed dir: %w", err)
	}

	w := &Writer{cfg: cfg}
	if cfg.Append {
		idx, err := LoadIndex(cfg.Dir, cfg.Prefix)
		switch {
		case err == nil:
			w.idx = idx
		case errors.Is(err, os.ErrNotExist):
			// Manifest lost but shards may still be on disk.
			w.idx = scanShards(cfg.Dir, cfg.Prefix, cfg.MaxLinesPerShard)
		default:
			return nil, fmt.Errorf("load feed index: %w", err)
		}
	}
	if w.idx == nil {
		w.idx = &Index{Version: 1, Prefix: cfg.Prefix, MaxLinesPerShard: cfg.MaxLinesPerShard}
	}

	if n := len(w.idx.Shards); n > 0 {
		last := w.idx.Shards[n-1]
		if err := terminateLastLine(filepath.Join(cfg.Dir, last.File)); err != nil {
			return nil, err
		}
		if err := w.open(last.Seq); err != nil {
			return nil, err
		}
		w.lines = countLines(filepath.Join(cfg.Dir, last.File))
		w.idx.Shards[n-1].Lines = w.lines
		w.idx.recount()
		if err := SaveIndexAtomic(cfg.Dir, w.idx); err != nil {
			w.f.Close()
			return nil, err
		}
		return w, nil
	}
	if err := w.rotate(1); err != nil {
		return nil, err
	}
	return w, nil
}

// Index returns a copy of the current manifest.
func (w *Writer) Index() Index {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := *w.idx
	cp.Shards = append([]Shard(nil), w.idx.Shards...)
	return cp
}

// Append marshals v as one JSON line.
func (w *Writer) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal feed line: %w", err)
	}
	return w.AppendJSONLine(data)
}

// AppendJSONLine writes one already-encoded JSON value. Blank input is
// ignored; embedded newlines are rejected.
func (w *Writer) AppendJSONLine(line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	if bytes.IndexByte(line, '\n') >= 0 {
		return errors.New("feed line contains a newline")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf == nil {
		return ErrClosed
	}
	// Rotate lazily so the manifest never lists an empty trailing shard.
	if w.lines >= w.cfg.MaxLinesPerShard {
		if err := w.rotate(w.seq + 1); err != nil {
			return err
		}
	}

	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.cfg.Sync {
		if err := w.f.Sync(); err != nil {
			return err
		}
	}

	w.lines++
	if s := w.idx.shard(w.seq); s != nil {
		s.Lines = w.lines
	}
	w.idx.TotalLines++
	return SaveIndexAtomic(w.cfg.Dir, w.idx)
}

// Close flushes the current shard and the manifest.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf == nil {
		return nil
	}
	err := w.buf.Flush()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.buf, w.f = nil, nil
	if serr := SaveIndexAtomic(w.cfg.Dir, w.idx); err == nil {
		err = serr
	}
	return err
}

func (w *Writer) open(seq int) error {
	path := filepath.Join(w.cfg.Dir, shardName(w.cfg.Prefix, seq))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open shard: %w", err)
	}
	w.f = f
	w.buf = bufio.NewWriter(f)
	w.seq = seq
	return nil
}

func (w *Writer) rotate(seq int) error {
	if w.buf != nil {
		_ = w.buf.Flush()
		_ = w.f.Close()
	}
	if err := w.open(seq); err != nil {
		return err
	}
	w.lines = 0
	if w.idx.shard(seq) == nil {
		w.idx.Shards = append(w.idx.Shards, Shard{Seq: seq, File: shardName(w.cfg.Prefix, seq)})
		sort.Slice(w.idx.Shards, func(i, j int) bool { return w.idx.Shards[i].Seq < w.idx.Shards[j].Seq })
	}
	return SaveIndexAtomic(w.cfg.Dir, w.idx)
}

// terminateLastLine appends a newline when a previous process died halfway
// through a line, so the torn line does not swallow the next one.
func terminateLastLine(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil || st.Size() == 0 {
		return err
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, st.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.WriteAt([]byte{'\n'}, st.Size())
	return err
}

func shardName(prefix string, seq int) string {
	return fmt.Sprintf("%s-%06d.jsonl", prefix, seq)
}

// parseShardSeq returns the sequence number of "<prefix>-000123.jsonl", or 0.
func parseShardSeq(prefix, name string) int {
	mid, ok := strings.CutPrefix(name, prefix+"-")
	if !ok {
		return 0
	}
	mid, ok = strings.CutSuffix(mid, ".jsonl")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(mid)
	if err != nil {
		return 0
	}
	return n
}

// scanShards rebuilds a manifest from the shard files present in dir.
func scanShards(dir, prefix string, maxLines int) *Index {
	idx := &Index{Version: 1, Prefix: prefix, MaxLinesPerShard: maxLines}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return idx
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		seq := parseShardSeq(prefix, e.Name())
		if seq <= 0 {
			continue
		}
		idx.Shards = append(idx.Shards, Shard{
			Seq:   seq,
			File:  e.Name(),
			Lines: countLines(filepath.Join(dir, e.Name())),
		})
	}
	sort.Slice(idx.Shards, func(i, j int) bool { return idx.Shards[i].Seq < idx.Shards[j].Seq })
	idx.recount()
	return idx
}

func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	n := 0
	sc := newScanner(f)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) > 0 {
			n++
		}
	}
	return n
}
