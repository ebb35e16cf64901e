package feed

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Index is the manifest of a sharded JSONL journal. Shards are ordered
// oldest to newest and only the last one is ever appended to.
type Index struct {
	Version          int       `json:"version"`
	UpdatedAt        time.Time `json:"updated_at"`
	Prefix           string    `json:"prefix"`
	MaxLinesPerShard int       `json:"max_lines_per_shard,omitempty"`
	Shards           []Shard   `json:"shards"`
	TotalLines       int       `json:"total_lines,omitempty"`
}

// Shard describes one JSONL file of the journal.
type Shard struct {
	Seq   int    `json:"seq"`
	File  string `json:"file"`  // relative to the journal directory, e.g. "events-000001.jsonl"
	Lines int    `json:"lines"` // best-effort count
}

func (idx *Index) recount() {
	total := 0
	for _, s := range idx.Shards {
		total += s.Lines
	}
	idx.TotalLines = total
}

func (idx *Index) shard(seq int) *Shard {
	for i := range idx.Shards {
		if idx.Shards[i].Seq == seq {
			return &idx.Shards[i]
		}
	}
	return nil
}

func indexPath(dir, prefix string) string {
	return filepath.Join(dir, prefix+"-index.json")
}

// LoadIndex reads the manifest for prefix in dir.
func LoadIndex(dir, prefix string) (*Index, error) {
	data, err := os.ReadFile(indexPath(dir, prefix))
	if err != nil {
		return nil, err
	}
	idx := &Index{}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, err
	}
	if idx.Version == 0 {
		idx.Version = 1
	}
	if idx.Prefix == "" {
		idx.Prefix = prefix
	}
	return idx, nil
}

// SaveIndexAtomic writes idx through a temp file and rename so readers never
// observe a half-written manifest.
func SaveIndexAtomic(dir string, idx *Index) error {
	if idx == nil {
		return nil
	}
	if idx.Version <= 0 {
		idx.Version = 1
	}
	idx.UpdatedAt = time.Now().UTC()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	path := indexPath(dir, idx.Prefix)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
