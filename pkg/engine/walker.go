package engine

import (
	"context"
	"fmt"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

type walkResult struct {
	replies   []Posted
	errs      []error
	lastStage Stage
}

// walk visits the descendants of root depth-first, pre-order, and answers
// every eligible leaf that is not in the ledger. Ineligible authors,
// including the bot itself, prune their whole subtree; the bot's own
// comments are walked separately as roots.
func (e *Engine) walk(ctx context.Context, root *types.Item, title string, res *Result) walkResult {
	var w walkResult
	stack := make([]*types.Item, 0, len(root.Children))
	push := func(children []*types.Item) {
		for i := len(children) - 1; i >= 0; i-- {
			if children[i] != nil {
				stack = append(stack, children[i])
			}
		}
	}
	push(root.Children)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			w.errs = append(w.errs, fmt.Errorf("walk under %s: %w", root.ID, err))
			return w
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch {
		case !e.filter.Eligible(node.Author):
			continue
		case node.HasReplies():
			push(node.Children)
			continue
		case e.ledger.Contains(node.ID):
			continue
		}

		posted, stage, err := e.replyTo(ctx, node, node.Body, title, res)
		w.lastStage = stage
		if err != nil {
			w.errs = append(w.errs, err)
			continue
		}
		w.replies = append(w.replies, posted)
	}
	return w
}
