// Package engine consumes a stream of submissions and comments and answers
// them with one-word replies, never answering the same item twice.
package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/ledger"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// Source delivers new items. The sequence ends when the source is
// exhausted or ctx is done.
type Source interface {
	Items(ctx context.Context) iter.Seq2[*types.Item, error]
}

// Platform reads threads and posts replies.
type Platform interface {
	Thread(ctx context.Context, submissionID string) (*types.Item, error)
	Reply(ctx context.Context, parentFullname, text string) (*types.Item, error)
}

// Generator turns text into a single word. It never fails.
type Generator interface {
	Generate(ctx context.Context, text, contextText string) string
}

// Ledger remembers processed ids.
type Ledger interface {
	Contains(id string) bool
	Record(ctx context.Context, id string, kind types.Kind) error
}

// Filter decides whether an author may be answered.
type Filter interface {
	Eligible(author string) bool
}

// Actuator runs a platform mutation with rate-limit retry.
type Actuator interface {
	Perform(ctx context.Context, action func(context.Context) error) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) iter.Seq2[*types.Item, error]

func (f SourceFunc) Items(ctx context.Context) iter.Seq2[*types.Item, error] { return f(ctx) }

// Config wires an Engine. Events, Logger, Now and RunID are optional.
type Config struct {
	Self      string // the bot's account name
	Source    Source
	Platform  Platform
	Generator Generator
	Ledger    Ledger
	Filter    Filter
	Actuator  Actuator

	Events EventLogger
	Logger *slog.Logger
	Now    func() time.Time
	RunID  string
}

// Engine is the single-goroutine processing loop.
type Engine struct {
	self      string
	source    Source
	platform  Platform
	generator Generator
	ledger    Ledger
	filter    Filter
	actuator  Actuator
	events    EventLogger
	logger    *slog.Logger
	now       func() time.Time
	runID     string

	cursor time.Time
	stats  Stats
}

// Stats counts results since the engine was created.
type Stats struct {
	Processed int
	Replies   int
	Skipped   int
	Failed    int
}

// New validates cfg and returns an engine.
func New(cfg Config) (*Engine, error) {
	var missing []string
	if cfg.Self == "" {
		missing = append(missing, "Self")
	}
	if cfg.Platform == nil {
		missing = append(missing, "Platform")
	}
	if cfg.Generator == nil {
		missing = append(missing, "Generator")
	}
	if cfg.Ledger == nil {
		missing = append(missing, "Ledger")
	}
	if cfg.Filter == nil {
		missing = append(missing, "Filter")
	}
	if cfg.Actuator == nil {
		missing = append(missing, "Actuator")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("engine: missing %s", strings.Join(missing, ", "))
	}

	e := &Engine{
		self:      cfg.Self,
		source:    cfg.Source,
		platform:  cfg.Platform,
		generator: cfg.Generator,
		ledger:    cfg.Ledger,
		filter:    cfg.Filter,
		actuator:  cfg.Actuator,
		events:    cfg.Events,
		logger:    cfg.Logger,
		now:       cfg.Now,
		runID:     cfg.RunID,
	}
	if e.events == nil {
		e.events = nopLogger{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.runID == "" {
		e.runID = newID()
	}
	e.logger = e.logger.With("run_id", e.runID)
	return e, nil
}

// Cursor returns the time before which items are ignored. It is zero until
// Run starts.
func (e *Engine) Cursor() time.Time { return e.cursor }

// Stats returns result counters. Not safe for use concurrently with Run.
func (e *Engine) Stats() Stats { return e.stats }

// RunID identifies this engine in logs and events.
func (e *Engine) RunID() string { return e.runID }

// Run captures the cursor and processes items from the source until it ends
// or ctx is done. Per-item failures are logged, never returned.
func (e *Engine) Run(ctx context.Context) error {
	if e.source == nil {
		return errors.New("engine: no source configured")
	}
	e.cursor = e.now()
	e.logger.Info("engine started", "self", e.self, "cursor", e.cursor.Format(time.RFC3339))

	for item, err := range e.source.Items(ctx) {
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			e.logger.Warn("stream error", "error", err)
			continue
		}
		e.report(e.Process(ctx, item))
	}

	e.logger.Info("engine stopped",
		"processed", e.stats.Processed,
		"replies", e.stats.Replies,
		"skipped", e.stats.Skipped,
		"failed", e.stats.Failed,
	)
	return ctx.Err()
}

// Process handles one delivered item. It never panics.
func (e *Engine) Process(ctx context.Context, item *types.Item) (res Result) {
	res = Result{Item: item, Stage: StageFetching}
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = errors.Join(res.Err, fmt.Errorf("panic: %v", r))
		}
	}()

	switch {
	case item == nil:
		return res.skip(StageFetching, "nil item")
	case item.CreatedAt.Before(e.cursor):
		return res.skip(StageFiltering, "created before cursor")
	}

	switch item.Kind {
	case types.KindSubmission:
		e.processSubmission(ctx, item, &res)
	case types.KindComment:
		e.processComment(ctx, item, &res)
	default:
		return res.skip(StageFiltering, fmt.Sprintf("unknown kind %q", item.Kind))
	}
	return res
}

func (e *Engine) processSubmission(ctx context.Context, item *types.Item, res *Result) {
	thread, err := e.platform.Thread(ctx, item.ID)
	if err != nil {
		res.fail(StageFetching, fmt.Errorf("fetch thread %s: %w", item.ID, err))
		return
	}

	res.Stage = StageFiltering
	switch {
	case e.ledger.Contains(thread.ID):
		res.Reason = "already processed"
	case !e.filter.Eligible(thread.Author):
		res.Reason = "author not eligible"
	case e.hasTopLevelReply(thread):
		res.Reason = "already commented"
		if err := e.ledger.Record(ctx, thread.ID, types.KindSubmission); err != nil {
			res.Warnings = append(res.Warnings, err)
		}
	default:
		posted, stage, err := e.replyTo(ctx, thread, thread.Text(), "", res)
		if err != nil {
			res.fail(stage, err)
			return
		}
		res.Stage = stage
		res.Replies = append(res.Replies, posted)
	}

	e.walkOwnComments(ctx, thread, res)
}

func (e *Engine) processComment(ctx context.Context, item *types.Item, res *Result) {
	if item.SubmissionID == "" {
		res.skip(StageFetching, "comment without submission")
		return
	}
	thread, err := e.platform.Thread(ctx, item.SubmissionID)
	if err != nil {
		res.fail(StageFetching, fmt.Errorf("fetch thread %s: %w", item.SubmissionID, err))
		return
	}
	res.Stage = StageFiltering
	e.walkOwnComments(ctx, thread, res)
}

// walkOwnComments walks the subtree under every comment the bot wrote in
// thread and folds the walk results into res.
func (e *Engine) walkOwnComments(ctx context.Context, thread *types.Item, res *Result) {
	var errs []error
	for _, c := range thread.Comments() {
		if !e.isSelf(c.Author) {
			continue
		}
		w := e.walk(ctx, c, thread.Title, res)
		res.Replies = append(res.Replies, w.replies...)
		errs = append(errs, w.errs...)
		if w.lastStage != "" {
			res.Stage = w.lastStage
		}
		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) > 0 {
		res.Err = errors.Join(append([]error{res.Err}, errs...)...)
		res.Outcome = OutcomeFailed
		return
	}
	if res.Outcome == OutcomeFailed {
		return
	}
	if len(res.Replies) > 0 {
		res.Outcome = OutcomeReplied
		return
	}
	res.Outcome = OutcomeSkipped
	if res.Reason == "" {
		res.Reason = "nothing to answer"
	}
}

func (e *Engine) hasTopLevelReply(thread *types.Item) bool {
	for _, c := range thread.Children {
		if c != nil && e.isSelf(c.Author) {
			return true
		}
	}
	return false
}

func (e *Engine) isSelf(author string) bool {
	return author != "" && strings.EqualFold(author, e.self)
}

// replyTo generates a word for target, posts it, and records target. A
// ledger failure after a successful post is added to res.Warnings.
func (e *Engine) replyTo(ctx context.Context, target *types.Item, text, contextText string, res *Result) (Posted, Stage, error) {
	word := e.generator.Generate(ctx, text, contextText)
	if word == "" {
		return Posted{}, StageGenerating, errors.New("generator returned an empty word")
	}

	var reply *types.Item
	err := e.actuator.Perform(ctx, func(ctx context.Context) error {
		r, err := e.platform.Reply(ctx, target.Fullname(), word)
		if err != nil {
			return err
		}
		reply = r
		return nil
	})
	if err != nil {
		return Posted{}, StagePosting, fmt.Errorf("reply to %s: %w", target.Fullname(), err)
	}

	if err := e.ledger.Record(ctx, target.ID, target.Kind); err != nil {
		if !errors.Is(err, ledger.ErrPersist) {
			err = fmt.Errorf("record %s: %w", target.ID, err)
		}
		res.Warnings = append(res.Warnings, err)
	}
	return Posted{Target: target, Word: word, Reply: reply}, StageRecording, nil
}

func (e *Engine) report(res Result) {
	e.stats.Processed++
	e.stats.Replies += len(res.Replies)

	attrs := []any{"stage", string(res.Stage), "outcome", string(res.Outcome)}
	if res.Item != nil {
		attrs = append(attrs, "id", res.Item.ID, "kind", string(res.Item.Kind))
	}

	for _, w := range res.Warnings {
		msg := "ledger record failed; item was not recorded"
		if errors.Is(w, ledger.ErrPersist) {
			msg = "ledger persist failed; item may be answered again after restart"
		}
		e.logger.Warn(msg, append(attrs, "error", w)...)
	}
	for _, p := range res.Replies {
		e.logger.Info("replied", "target", p.Target.Fullname(), "author", p.Target.Author, "word", p.Word)
		e.emit(eventForReply(p))
	}

	switch res.Outcome {
	case OutcomeFailed:
		e.stats.Failed++
		e.logger.Error("item failed", append(attrs, "error", res.Err)...)
		e.emit(eventForResult(res))
	case OutcomeSkipped:
		e.stats.Skipped++
		e.logger.Debug("item skipped", append(attrs, "reason", res.Reason)...)
		e.emit(eventForResult(res))
	}
}

func (e *Engine) emit(ev Event) {
	ev.RunID = e.runID
	if ev.Time.IsZero() {
		ev.Time = e.now().UTC()
	}
	if err := e.events.LogEvent(ev); err != nil {
		e.logger.Warn("activity log write failed", "error", err)
	}
}
