// Package types defines core types for the OneWordMenace bot.
package types

import (
	"strings"
	"time"
)

// Kind distinguishes top-level submissions from comments.
type Kind string

const (
	KindSubmission Kind = "submission"
	KindComment    Kind = "comment"
)

// Prefix returns the Reddit type prefix used in fullnames ("t3", "t1").
func (k Kind) Prefix() string {
	switch k {
	case KindSubmission:
		return "t3"
	case KindComment:
		return "t1"
	}
	return ""
}

// KindFromPrefix maps a fullname prefix back to a Kind.
func KindFromPrefix(prefix string) (Kind, bool) {
	switch prefix {
	case "t3":
		return KindSubmission, true
	case "t1":
		return KindComment, true
	}
	return "", false
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindSubmission || k == KindComment
}

// Item is a submission or comment as seen by the bot. Items are transient
// views produced by a platform client; Children is only populated when a
// whole thread has been fetched.
type Item struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	Author       string    `json:"author,omitempty"` // empty for deleted/removed authors
	Title        string    `json:"title,omitempty"`
	Body         string    `json:"body,omitempty"`
	ParentID     string    `json:"parent_id,omitempty"` // fullname, e.g. "t1_abc"
	SubmissionID string    `json:"submission_id,omitempty"`
	Subreddit    string    `json:"subreddit,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Children     []*Item   `json:"children,omitempty"`
}

// Fullname returns the platform-wide identifier, e.g. "t3_abc123".
func (it *Item) Fullname() string {
	return it.Kind.Prefix() + "_" + it.ID
}

// Text returns the title for submissions and the body for comments.
func (it *Item) Text() string {
	if it.Kind == KindSubmission {
		if strings.TrimSpace(it.Title) != "" {
			return it.Title
		}
	}
	return it.Body
}

// HasReplies reports whether the item has at least one materialised child.
func (it *Item) HasReplies() bool {
	return len(it.Children) > 0
}

// Comments returns every comment below it in pre-order.
func (it *Item) Comments() []*Item {
	var out []*Item
	stack := make([]*Item, 0, len(it.Children))
	for i := len(it.Children) - 1; i >= 0; i-- {
		stack = append(stack, it.Children[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		out = append(out, n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

// ProcessedItem is the ledger record for an item the bot has finished with.
type ProcessedItem struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	ProcessedAt time.Time `json:"processed_at"`
}

// SplitFullname splits "t1_abc" into its kind and id.
func SplitFullname(fullname string) (Kind, string, bool) {
	prefix, id, ok := strings.Cut(fullname, "_")
	if !ok || id == "" {
		return "", "", false
	}
	kind, ok := KindFromPrefix(prefix)
	if !ok {
		return "", "", false
	}
	return kind, id, true
}
