package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/engine"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/feed"
)

type summaryStats struct {
	TotalEvents int
	Skipped     int // unreadable lines
	ByAction    map[string]int
	ByWord      map[string]int
	ByAuthor    map[string]int
	Runs        int
}

func analyzeActivity(ctx context.Context, dir string) (*summaryStats, error) {
	events, skipped, err := feed.Decode[engine.Event](ctx, dir, engine.ActivityPrefix)
	if err != nil {
		return nil, err
	}

	stats := &summaryStats{
		Skipped:  skipped,
		ByAction: make(map[string]int),
		ByWord:   make(map[string]int),
		ByAuthor: make(map[string]int),
	}
	runs := make(map[string]struct{})
	for _, ev := range events {
		stats.TotalEvents++
		stats.ByAction[ev.Action]++
		runs[ev.RunID] = struct{}{}
		if ev.Action == string(engine.OutcomeReplied) {
			stats.ByWord[ev.Word]++
			stats.ByAuthor[ev.Author]++
		}
	}
	stats.Runs = len(runs)
	return stats, nil
}

func printSummary(w io.Writer, stats *summaryStats) {
	if stats == nil {
		return
	}
	fmt.Fprintln(w, "\n=== Activity ===")
	fmt.Fprintf(w, "Total events: %d across %d run(s)\n", stats.TotalEvents, stats.Runs)
	if stats.Skipped > 0 {
		fmt.Fprintf(w, "Unreadable lines: %d\n", stats.Skipped)
	}

	fmt.Fprintln(w, "\nEvents by action:")
	for _, action := range sortedKeys(stats.ByAction) {
		fmt.Fprintf(w, "  %s: %d\n", action, stats.ByAction[action])
	}

	fmt.Fprintln(w, "\nReplies by author:")
	for _, name := range sortedKeys(stats.ByAuthor) {
		fmt.Fprintf(w, "  u/%s: %d\n", name, stats.ByAuthor[name])
	}

	fmt.Fprintln(w, "\nWords used:")
	for _, word := range sortedKeys(stats.ByWord) {
		fmt.Fprintf(w, "  %s: %d\n", word, stats.ByWord[word])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
