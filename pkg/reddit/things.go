package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// MaxListingLimit is the largest page Reddit serves.
const MaxListingLimit = 100

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thingData struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	Title      string          `json:"title"`
	Selftext   string          `json:"selftext"`
	Body       string          `json:"body"`
	ParentID   string          `json:"parent_id"`
	LinkID     string          `json:"link_id"`
	Subreddit  string          `json:"subreddit"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"` // "" when there are none
}

func unixFloat(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func normaliseAuthor(a string) string {
	if a == "[deleted]" || a == "[removed]" {
		return ""
	}
	return a
}

// toItem converts a t1 or t3 thing. Other kinds, including "more" stubs,
// return ok=false.
func toItem(t thing) (*types.Item, bool, error) {
	kind, ok := types.KindFromPrefix(t.Kind)
	if !ok {
		return nil, false, nil
	}
	var d thingData
	if err := json.Unmarshal(t.Data, &d); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", t.Kind, err)
	}
	it := &types.Item{
		ID:        d.ID,
		Kind:      kind,
		Author:    normaliseAuthor(d.Author),
		Subreddit: d.Subreddit,
		CreatedAt: unixFloat(d.CreatedUTC),
	}
	switch kind {
	case types.KindSubmission:
		it.Title = d.Title
		it.Body = d.Selftext
		it.SubmissionID = d.ID
	case types.KindComment:
		it.Body = d.Body
		it.ParentID = d.ParentID
		it.SubmissionID = strings.TrimPrefix(d.LinkID, "t3_")
		children, err := parseReplies(d.Replies)
		if err != nil {
			return nil, false, err
		}
		it.Children = children
	}
	return it, true, nil
}

func parseReplies(raw json.RawMessage) ([]*types.Item, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var l listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("decode replies: %w", err)
	}
	return listingItems(l)
}

func listingItems(l listing) ([]*types.Item, error) {
	out := make([]*types.Item, 0, len(l.Data.Children))
	for _, t := range l.Data.Children {
		it, ok, err := toItem(t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// Listing returns the newest submissions (/new) or comments (/comments) of
// a subreddit, newest first.
func (c *Client) Listing(ctx context.Context, subreddit string, kind types.Kind, limit int) ([]*types.Item, error) {
	if subreddit == "" {
		return nil, errors.New("subreddit is required")
	}
	if limit <= 0 || limit > MaxListingLimit {
		limit = MaxListingLimit
	}
	var path string
	switch kind {
	case types.KindSubmission:
		path = "/r/" + url.PathEscape(subreddit) + "/new"
	case types.KindComment:
		path = "/r/" + url.PathEscape(subreddit) + "/comments"
	default:
		return nil, fmt.Errorf("unknown listing kind %q", kind)
	}

	var l listing
	if err := c.do(ctx, http.MethodGet, path, url.Values{"limit": {strconv.Itoa(limit)}}, &l); err != nil {
		return nil, err
	}
	return listingItems(l)
}

// Thread fetches a submission with its materialised comment tree. "Load
// more" stubs are dropped, so very large threads are truncated.
func (c *Client) Thread(ctx context.Context, submissionID string) (*types.Item, error) {
	if submissionID == "" {
		return nil, errors.New("submission id is required")
	}
	var pair []listing
	if err := c.do(ctx, http.MethodGet, "/comments/"+url.PathEscape(submissionID),
		url.Values{"limit": {"500"}}, &pair); err != nil {
		return nil, err
	}
	if len(pair) < 1 {
		return nil, fmt.Errorf("thread %s: empty response", submissionID)
	}

	subs, err := listingItems(pair[0])
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 || subs[0].Kind != types.KindSubmission {
		return nil, fmt.Errorf("thread %s: no submission in response", submissionID)
	}
	root := subs[0]
	if len(pair) > 1 {
		if root.Children, err = listingItems(pair[1]); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// Reply posts text under the thing with the given fullname and returns the
// new comment. The comment is nil when Reddit accepted the post but its
// echo could not be decoded.
func (c *Client) Reply(ctx context.Context, parentFullname, text string) (*types.Item, error) {
	if _, _, ok := types.SplitFullname(parentFullname); !ok {
		return nil, fmt.Errorf("invalid parent fullname %q", parentFullname)
	}
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {parentFullname},
		"text":     {text},
	}
	var resp struct {
		JSON struct {
			Errors    [][]string `json:"errors"`
			Ratelimit float64    `json:"ratelimit"`
			Data      struct {
				Things []thing `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/comment", form, &resp); err != nil {
		return nil, err
	}
	if err := thingErrors(resp.JSON.Errors, resp.JSON.Ratelimit); err != nil {
		return nil, err
	}
	// An empty errors list means the comment is up; a bad echo is not a failure.
	for _, t := range resp.JSON.Data.Things {
		it, ok, err := toItem(t)
		if err != nil {
			c.logger.Warn("reply posted but response not decoded", "parent", parentFullname, "error", err)
			return nil, nil
		}
		if ok {
			return it, nil
		}
	}
	c.logger.Warn("reply posted but response carried no comment", "parent", parentFullname)
	return nil, nil
}
