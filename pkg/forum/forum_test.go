package forum

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

func TestForum_ThreadSnapshot(t *testing.T) {
	ctx := context.Background()
	f := New("AnarchyChess", "OneWordMenace", t.TempDir())

	s := f.Submit("chessFan42", "Is castling legal?", "")
	r, err := f.Reply(ctx, s.Fullname(), "illegal")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if r.Author != "OneWordMenace" || r.SubmissionID != s.ID || r.ParentID != s.Fullname() {
		t.Fatalf("unexpected reply: %+v", r)
	}
	c, err := f.Comment(r.Fullname(), "chessFan42", "wdym")
	if err != nil {
		t.Fatalf("Comment: %v", err)
	}

	thread, err := f.Thread(ctx, s.ID)
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if len(thread.Children) != 1 || thread.Children[0].ID != r.ID {
		t.Fatalf("top-level=%+v, want [%s]", thread.Children, r.ID)
	}
	if len(thread.Children[0].Children) != 1 || thread.Children[0].Children[0].ID != c.ID {
		t.Fatalf("replies under %s wrong", r.ID)
	}

	// Later writes do not show up in an earlier snapshot.
	if _, err := f.Comment(c.Fullname(), "someone", "lol"); err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if len(thread.Children[0].Children[0].Children) != 0 {
		t.Fatal("snapshot changed after a later comment")
	}
}

func TestForum_ReplyUnknownParent(t *testing.T) {
	f := New("x", "me", "")
	if _, err := f.Reply(context.Background(), "t1_nope", "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	s := f.Submit("a", "t", "")
	// Right id, wrong kind prefix.
	if _, err := f.Reply(context.Background(), "t1_"+s.ID, "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestForum_FailReplies(t *testing.T) {
	f := New("x", "me", "")
	s := f.Submit("a", "t", "")
	boom := errors.New("boom")
	f.FailReplies(boom, nil)

	if _, err := f.Reply(context.Background(), s.Fullname(), "one"); !errors.Is(err, boom) {
		t.Fatalf("err=%v, want boom", err)
	}
	if _, err := f.Reply(context.Background(), s.Fullname(), "two"); err != nil {
		t.Fatalf("second Reply: %v", err)
	}
	if got := len(f.ByAuthor("me")); got != 1 {
		t.Fatalf("replies by me=%d, want 1", got)
	}
}

func TestForum_ListingAndReplay(t *testing.T) {
	ctx := context.Background()
	f := New("x", "me", "")
	s1 := f.Submit("a", "one", "")
	c1, _ := f.Comment(s1.Fullname(), "b", "hi")
	s2 := f.Submit("a", "two", "")

	subs, err := f.Listing(ctx, "X", types.KindSubmission, 10)
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if len(subs) != 2 || subs[0].ID != s2.ID || subs[1].ID != s1.ID {
		t.Fatalf("Listing=%v, want newest first", subs)
	}
	if _, err := f.Listing(ctx, "other", types.KindSubmission, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}

	var ids []string
	for it, err := range f.Replay(ctx) {
		if err != nil {
			t.Fatalf("Replay: %v", err)
		}
		ids = append(ids, it.ID)
	}
	want := []string{s1.ID, c1.ID, s2.ID}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("Replay=%v, want %v", ids, want)
	}
}

func TestForum_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	f := New("x", "me", dir)
	s := f.Submit("a", "Is castling legal?", "")
	if _, err := f.Comment(s.Fullname(), "b", "yes"); err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	g := New("", "", dir)
	if err := g.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := g.Format(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(out, "Is castling legal?") || !strings.Contains(out, "  [") || !strings.Contains(out, "u/b: yes") {
		t.Fatalf("unexpected outline:\n%s", out)
	}
	// New ids must not collide with loaded ones.
	n := g.Submit("c", "next", "")
	if n.ID == s.ID {
		t.Fatalf("id %s reused after Load", n.ID)
	}
}
