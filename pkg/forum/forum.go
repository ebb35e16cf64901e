// Package forum is an in-memory subreddit. It implements the same read and
// reply surface as the Reddit client so the engine can be exercised offline.
package forum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// ErrNotFound is returned for unknown ids.
var ErrNotFound = errors.New("forum: not found")

// Forum holds submissions and comments of one subreddit.
type Forum struct {
	mu sync.RWMutex

	Name   string                 `json:"name"`
	Self   string                 `json:"self"` // account that Reply posts as
	Things map[string]*types.Item `json:"things"`
	Order  []string               `json:"order"` // creation order
	Seq    int64                  `json:"seq"`

	dataPath  string
	now       func() time.Time
	replyErrs []error
}

// New creates an empty forum. dataPath may be empty when Save/Load are not
// used.
func New(name, self, dataPath string) *Forum {
	return &Forum{
		Name:     name,
		Self:     self,
		Things:   make(map[string]*types.Item),
		dataPath: dataPath,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for new items.
func (f *Forum) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// FailReplies makes the next len(errs) Reply calls return errs in order.
// A nil entry lets that call succeed.
func (f *Forum) FailReplies(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replyErrs = append(f.replyErrs, errs...)
}

func (f *Forum) nextID(prefix string) string {
	f.Seq++
	return prefix + strconv.FormatInt(f.Seq, 36)
}

func (f *Forum) add(it *types.Item) *types.Item {
	f.Things[it.ID] = it
	f.Order = append(f.Order, it.ID)
	cp := *it
	return &cp
}

// Submit creates a submission.
func (f *Forum) Submit(author, title, body string) *types.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("s")
	return f.add(&types.Item{
		ID:           id,
		Kind:         types.KindSubmission,
		Author:       author,
		Title:        title,
		Body:         body,
		SubmissionID: id,
		Subreddit:    f.Name,
		CreatedAt:    f.now().UTC(),
	})
}

// Comment adds a comment by author under the thing named parentFullname.
func (f *Forum) Comment(parentFullname, author, body string) (*types.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comment(parentFullname, author, body)
}

func (f *Forum) comment(parentFullname, author, body string) (*types.Item, error) {
	_, parentID, ok := types.SplitFullname(parentFullname)
	if !ok {
		return nil, fmt.Errorf("forum: invalid parent %q", parentFullname)
	}
	parent, ok := f.Things[parentID]
	if !ok || parent.Fullname() != parentFullname {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, parentFullname)
	}
	return f.add(&types.Item{
		ID:           f.nextID("c"),
		Kind:         types.KindComment,
		Author:       author,
		Body:         body,
		ParentID:     parentFullname,
		SubmissionID: parent.SubmissionID,
		Subreddit:    f.Name,
		CreatedAt:    f.now().UTC(),
	}), nil
}

// Me returns the account Reply posts as.
func (f *Forum) Me(context.Context) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.Self == "" {
		return "", errors.New("forum: no self account configured")
	}
	return f.Self, nil
}

// Reply posts text as Self under parentFullname.
func (f *Forum) Reply(ctx context.Context, parentFullname, text string) (*types.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replyErrs) > 0 {
		err := f.replyErrs[0]
		f.replyErrs = f.replyErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.comment(parentFullname, f.Self, text)
}

// Thread returns a snapshot of the submission with its comment tree.
// Siblings are ordered by creation.
func (f *Forum) Thread(ctx context.Context, submissionID string) (*types.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	root, ok := f.Things[submissionID]
	if !ok || root.Kind != types.KindSubmission {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}

	nodes := map[string]*types.Item{}
	cp := *root
	cp.Children = nil
	nodes[root.Fullname()] = &cp
	for _, id := range f.Order {
		it := f.Things[id]
		if it.Kind != types.KindComment || it.SubmissionID != submissionID {
			continue
		}
		c := *it
		c.Children = nil
		nodes[c.Fullname()] = &c
		// Parents are always created before their children.
		if p, ok := nodes[c.ParentID]; ok {
			p.Children = append(p.Children, &c)
		}
	}
	return &cp, nil
}

// Listing returns the newest items of a kind, newest first.
func (f *Forum) Listing(ctx context.Context, subreddit string, kind types.Kind, limit int) ([]*types.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if subreddit != "" && !strings.EqualFold(subreddit, f.Name) {
		return nil, fmt.Errorf("%w: subreddit %s", ErrNotFound, subreddit)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []*types.Item
	for i := len(f.Order) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		it := f.Things[f.Order[i]]
		if it.Kind == kind {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Replay yields every item that exists when iteration starts, in creation
// order, then ends.
func (f *Forum) Replay(ctx context.Context) iter.Seq2[*types.Item, error] {
	return func(yield func(*types.Item, error) bool) {
		f.mu.RLock()
		items := make([]*types.Item, 0, len(f.Order))
		for _, id := range f.Order {
			cp := *f.Things[id]
			items = append(items, &cp)
		}
		f.mu.RUnlock()

		for _, it := range items {
			if ctx.Err() != nil {
				return
			}
			if !yield(it, nil) {
				return
			}
		}
	}
}

// ByAuthor returns the items written by author in creation order.
func (f *Forum) ByAuthor(author string) []*types.Item {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []*types.Item
	for _, id := range f.Order {
		if it := f.Things[id]; it.Author == author {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out
}

// Format renders a thread as an indented outline.
func (f *Forum) Format(ctx context.Context, submissionID string) (string, error) {
	root, err := f.Thread(ctx, submissionID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s (u/%s)\n", root.ID, root.Title, root.Author)

	type frame struct {
		it    *types.Item
		depth int
	}
	stack := make([]frame, 0, len(root.Children))
	for i := len(root.Children) - 1; i >= 0; i-- {
		stack = append(stack, frame{root.Children[i], 1})
	}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fmt.Fprintf(&b, "%s[%s] u/%s: %s\n", strings.Repeat("  ", fr.depth), fr.it.ID, fr.it.Author, fr.it.Body)
		for i := len(fr.it.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{fr.it.Children[i], fr.depth + 1})
		}
	}
	return b.String(), nil
}

// Submissions returns submission ids, oldest first.
func (f *Forum) Submissions() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []string
	for _, id := range f.Order {
		if f.Things[id].Kind == types.KindSubmission {
			out = append(out, id)
		}
	}
	return out
}

// Save persists the forum to disk.
func (f *Forum) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := os.MkdirAll(f.dataPath, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(f.dataPath, "forum.json"), data, 0644)
}

// Load loads the forum from disk. A missing file leaves the forum empty.
func (f *Forum) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(f.dataPath, "forum.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, f); err != nil {
		return err
	}
	if f.Things == nil {
		f.Things = make(map[string]*types.Item)
	}
	// Keep Order consistent with Things for files edited by hand.
	known := make(map[string]struct{}, len(f.Order))
	order := f.Order[:0]
	for _, id := range f.Order {
		if _, ok := f.Things[id]; ok {
			known[id] = struct{}{}
			order = append(order, id)
		}
	}
	var missing []string
	for id := range f.Things {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return f.Things[missing[i]].CreatedAt.Before(f.Things[missing[j]].CreatedAt)
	})
	f.Order = append(order, missing...)
	return nil
}
