package reconcile

import (
	"fmt"
	"slices"

	"github.com/heimdex/crucible/internal/timecode"
)

// Group folds the frames flagged at one location into ranges of consecutive
// frames, ascending. Single frames that are not next to another flagged
// frame are dropped unless opts.IncludeIsolatedFrames is set.
func Group(location string, frames []int, fps float64, opts Options) ([]FrameRange, error) {
	if err := timecode.ValidateFPS(fps); err != nil {
		return nil, err
	}

	sorted := slices.Clone(frames)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	if len(sorted) > 0 && sorted[0] < 0 {
		return nil, fmt.Errorf("location %q: %w: got %d", location, ErrNegativeFrame, sorted[0])
	}

	minFrames := 2
	if opts.IncludeIsolatedFrames {
		minFrames = 1
	}
	if len(sorted) < minFrames {
		return nil, nil
	}

	var ranges []FrameRange
	emit := func(start, last int) error {
		if start == last && !opts.IncludeIsolatedFrames {
			return nil
		}
		r, err := newFrameRange(location, start, last, fps)
		if err != nil {
			return err
		}
		ranges = append(ranges, r)
		return nil
	}

	start, last := sorted[0], sorted[0]
	for _, f := range sorted[1:] {
		if f == last+1 {
			last = f
			continue
		}
		if err := emit(start, last); err != nil {
			return nil, err
		}
		start, last = f, f
	}
	if err := emit(start, last); err != nil {
		return nil, err
	}
	return ranges, nil
}

// GroupAll runs Group over every location in agg, in location order.
func GroupAll(agg *AggregatedFrames, fps float64, opts Options) ([]FrameRange, error) {
	if err := timecode.ValidateFPS(fps); err != nil {
		return nil, err
	}
	var all []FrameRange
	for _, loc := range agg.Locations() {
		ranges, err := Group(loc, agg.Frames(loc), fps, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, ranges...)
	}
	return all, nil
}

func newFrameRange(location string, start, end int, fps float64) (FrameRange, error) {
	startTC, err := timecode.FrameToTimecode(start, fps)
	if err != nil {
		return FrameRange{}, err
	}
	endTC, err := timecode.FrameToTimecode(end, fps)
	if err != nil {
		return FrameRange{}, err
	}
	return FrameRange{
		Location:      location,
		StartFrame:    start,
		EndFrame:      end,
		StartTimecode: startTC,
		EndTimecode:   endTC,
		SampledFrame:  (start + end) / 2,
	}, nil
}
