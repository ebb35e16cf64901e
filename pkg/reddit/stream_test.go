package reddit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// fakeLister serves one scripted page per call and kind; the last page
// repeats once the script runs out.
type fakeLister struct {
	pages map[types.Kind][][]*types.Item
	errs  map[types.Kind][]error
	calls map[types.Kind]int
}

func (f *fakeLister) Listing(_ context.Context, _ string, kind types.Kind, _ int) ([]*types.Item, error) {
	if f.calls == nil {
		f.calls = map[types.Kind]int{}
	}
	n := f.calls[kind]
	f.calls[kind]++
	if n < len(f.errs[kind]) && f.errs[kind][n] != nil {
		return nil, f.errs[kind][n]
	}
	pages := f.pages[kind]
	if len(pages) == 0 {
		return nil, nil
	}
	if n >= len(pages) {
		n = len(pages) - 1
	}
	return pages[n], nil
}

func sub(id string) *types.Item {
	return &types.Item{ID: id, Kind: types.KindSubmission, SubmissionID: id}
}

func TestStream_OldestFirstAndDedup(t *testing.T) {
	src := &fakeLister{pages: map[types.Kind][][]*types.Item{
		types.KindSubmission: {
			{sub("s3"), sub("s2"), sub("s1")},
			{sub("s4"), sub("s3"), sub("s2")},
		},
	}}
	var sleeps []time.Duration
	s := newStream(src, StreamConfig{
		Subreddit: "x",
		Kinds:     []types.Kind{types.KindSubmission},
		Sleep: func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			if len(sleeps) >= 4 {
				return context.Canceled
			}
			return nil
		},
	})

	var got []string
	for it, err := range s.Items(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, it.ID)
	}

	want := []string{"s1", "s2", "s3", "s4"}
	if len(got) != len(want) {
		t.Fatalf("got=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got=%v, want %v", got, want)
		}
	}

	// New items on polls 1 and 2 reset the delay; polls 3 and 4 back off.
	wantSleeps := []time.Duration{time.Second, time.Second, 2 * time.Second, 4 * time.Second}
	for i := range wantSleeps {
		if sleeps[i] != wantSleeps[i] {
			t.Fatalf("sleeps=%v, want %v", sleeps, wantSleeps)
		}
	}
}

func TestStream_BackoffCapped(t *testing.T) {
	src := &fakeLister{}
	var sleeps []time.Duration
	s := newStream(src, StreamConfig{
		Subreddit: "x",
		Kinds:     []types.Kind{types.KindComment},
		Sleep: func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			if len(sleeps) >= 7 {
				return context.Canceled
			}
			return nil
		},
	})
	for range s.Items(context.Background()) {
		t.Fatal("no items expected")
	}

	want := []time.Duration{2, 4, 8, 16, 16, 16, 16}
	for i, w := range want {
		if sleeps[i] != w*time.Second {
			t.Fatalf("sleeps=%v, want capped doubling to 16s", sleeps)
		}
	}
}

func TestStream_ErrorsYieldedAndPollingContinues(t *testing.T) {
	boom := errors.New("502 bad gateway")
	src := &fakeLister{
		pages: map[types.Kind][][]*types.Item{
			types.KindSubmission: {nil, {sub("s1")}},
		},
		errs: map[types.Kind][]error{types.KindSubmission: {boom}},
	}
	polls := 0
	s := newStream(src, StreamConfig{
		Subreddit: "x",
		Kinds:     []types.Kind{types.KindSubmission},
		Sleep: func(ctx context.Context, d time.Duration) error {
			polls++
			if polls >= 2 {
				return context.Canceled
			}
			return nil
		},
	})

	var errs, items int
	for it, err := range s.Items(context.Background()) {
		if err != nil {
			if !errors.Is(err, boom) {
				t.Fatalf("err=%v, want wrapped %v", err, boom)
			}
			errs++
			continue
		}
		if it.ID != "s1" {
			t.Fatalf("item=%s, want s1", it.ID)
		}
		items++
	}
	if errs != 1 || items != 1 {
		t.Fatalf("errs=%d items=%d, want 1 and 1", errs, items)
	}
}

func TestStream_ConsumerStops(t *testing.T) {
	src := &fakeLister{pages: map[types.Kind][][]*types.Item{
		types.KindSubmission: {{sub("s2"), sub("s1")}},
	}}
	s := newStream(src, StreamConfig{Kinds: []types.Kind{types.KindSubmission}})
	for it := range s.Items(context.Background()) {
		if it.ID != "s1" {
			t.Fatalf("first=%s, want s1", it.ID)
		}
		break
	}
}

func TestRecentSet_Evicts(t *testing.T) {
	r := newRecentSet(2)
	if !r.Add("a") || !r.Add("b") {
		t.Fatal("fresh ids should be new")
	}
	if r.Add("a") {
		t.Fatal("a should still be remembered")
	}
	if !r.Add("c") {
		t.Fatal("c should be new")
	}
	if !r.Add("a") {
		t.Fatal("a should have been evicted by c")
	}
}
