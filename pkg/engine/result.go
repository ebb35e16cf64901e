package engine

import (
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// Stage is the step an item was in when processing stopped.
type Stage string

const (
	StageFetching   Stage = "fetching"
	StageFiltering  Stage = "filtering"
	StageGenerating Stage = "generating"
	StagePosting    Stage = "posting"
	StageRecording  Stage = "recording"
)

// Outcome summarises what happened to an item.
type Outcome string

const (
	OutcomeReplied Outcome = "replied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Posted is one reply the engine made.
type Posted struct {
	Target *types.Item // what was replied to
	Word   string
	Reply  *types.Item // the new comment, when the platform returned it
}

// Result is the outcome of processing one delivered item.
type Result struct {
	Item    *types.Item
	Stage   Stage
	Outcome Outcome
	Reason  string // why an item was skipped
	Replies []Posted

	// Err holds every failure; for walks it may join several node errors.
	Err error
	// Warnings are non-fatal problems such as a ledger write that failed
	// after a reply was posted.
	Warnings []error
}

func (r *Result) skip(stage Stage, reason string) Result {
	r.Stage = stage
	r.Outcome = OutcomeSkipped
	r.Reason = reason
	return *r
}

func (r *Result) fail(stage Stage, err error) Result {
	r.Stage = stage
	r.Outcome = OutcomeFailed
	r.Err = err
	return *r
}
