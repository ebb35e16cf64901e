package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/feed"
)

// ActivityPrefix is the shard prefix of the activity journal.
const ActivityPrefix = "activity"

// Event is one line of the activity journal.
type Event struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	RunID   string    `json:"run_id"`
	Action  string    `json:"action"` // replied, skipped, failed
	ItemID  string    `json:"item_id"`
	Kind    string    `json:"kind,omitempty"`
	Author  string    `json:"author,omitempty"`
	Word    string    `json:"word,omitempty"`
	ReplyID string    `json:"reply_id,omitempty"`
	Stage   string    `json:"stage,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// EventLogger records engine activity for later analysis.
type EventLogger interface {
	LogEvent(Event) error
	Close() error
}

// JournalLogger writes events to a sharded feed journal.
type JournalLogger struct {
	w *feed.Writer
}

// OpenJournal opens (or resumes) the activity journal in dir.
func OpenJournal(dir string) (*JournalLogger, error) {
	w, err := feed.OpenWriter(feed.WriterConfig{
		Dir:              dir,
		Prefix:           ActivityPrefix,
		MaxLinesPerShard: 1000,
		Append:           true,
	})
	if err != nil {
		return nil, fmt.Errorf("open activity journal: %w", err)
	}
	return &JournalLogger{w: w}, nil
}

// LogEvent appends ev, assigning an id if it has none.
func (l *JournalLogger) LogEvent(ev Event) error {
	if l == nil {
		return nil
	}
	if ev.ID == "" {
		ev.ID = newID()
	}
	if err := l.w.Append(ev); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close flushes and closes the journal.
func (l *JournalLogger) Close() error {
	if l == nil {
		return nil
	}
	return l.w.Close()
}

type nopLogger struct{}

func (nopLogger) LogEvent(Event) error { return nil }
func (nopLogger) Close() error         { return nil }

// newID returns a time-ordered UUID so journal lines sort by id.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func eventForReply(p Posted) Event {
	ev := Event{
		Action: string(OutcomeReplied),
		ItemID: p.Target.ID,
		Kind:   string(p.Target.Kind),
		Author: p.Target.Author,
		Word:   p.Word,
		Stage:  string(StageRecording),
	}
	if p.Reply != nil {
		ev.ReplyID = p.Reply.ID
	}
	return ev
}

func eventForResult(res Result) Event {
	ev := Event{
		Action: string(res.Outcome),
		Stage:  string(res.Stage),
		Reason: res.Reason,
	}
	if res.Item != nil {
		ev.ItemID = res.Item.ID
		ev.Kind = string(res.Item.Kind)
		ev.Author = res.Item.Author
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	return ev
}
