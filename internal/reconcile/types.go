// Package reconcile maps annotated frames onto a facility's canonical paths
// and folds them into contiguous playback ranges.
//
// Everything here is pure: no files, no clocks, no goroutines. Callers load
// the inputs, run Aggregate then GroupAll, and hand the ranges to whatever
// writes reports or renders clips.
package reconcile

import (
	"fmt"

	"github.com/heimdex/crucible/internal/timecode"
)

// ErrNegativeFrame is returned for negative frame indices or totals. It is
// the timecode sentinel so callers can test for either with errors.Is.
var ErrNegativeFrame = timecode.ErrNegativeFrame

// FrameRecord is one annotation entry: a folder as the grading tool saw it
// and the frame indices flagged under it.
type FrameRecord struct {
	Folder string `json:"folder"`
	Frames []int  `json:"frames"`
}

// FrameRange is a run of consecutive frames at one canonical location.
// EndFrame > StartFrame unless isolated frames were requested.
type FrameRange struct {
	Location      string `json:"location"`
	StartFrame    int    `json:"start_frame"`
	EndFrame      int    `json:"end_frame"`
	StartTimecode string `json:"start_timecode"`
	EndTimecode   string `json:"end_timecode"`
	SampledFrame  int    `json:"sampled_frame"`
}

// FrameRangeString renders "start-end".
func (r FrameRange) FrameRangeString() string {
	return fmt.Sprintf("%d-%d", r.StartFrame, r.EndFrame)
}

// TimecodeRangeString renders "startTC-endTC".
func (r FrameRange) TimecodeRangeString() string {
	return r.StartTimecode + "-" + r.EndTimecode
}

// Options tunes range grouping.
type Options struct {
	// IncludeIsolatedFrames reports single-frame runs as ranges with
	// StartFrame == EndFrame. Off by default: review has always dropped them.
	IncludeIsolatedFrames bool
}
