package reconcile

import (
	"fmt"
	"slices"
)

// AggregatedFrames maps canonical locations to deduplicated frame sets.
// Locations are remembered in the order they were first added so reports
// come out the same way on every run.
type AggregatedFrames struct {
	order []string
	sets  map[string]map[int]struct{}
}

func NewAggregatedFrames() *AggregatedFrames {
	return &AggregatedFrames{sets: make(map[string]map[int]struct{})}
}

// Add unions frames into the set for location. The zero value is ready to use.
func (a *AggregatedFrames) Add(location string, frames ...int) {
	if a.sets == nil {
		a.sets = make(map[string]map[int]struct{})
	}
	set, ok := a.sets[location]
	if !ok {
		set = make(map[int]struct{}, len(frames))
		a.sets[location] = set
		a.order = append(a.order, location)
	}
	for _, f := range frames {
		set[f] = struct{}{}
	}
}

// Merge unions every location of other into a. Union is commutative and
// associative, so partial aggregates built separately can be combined in
// any order.
func (a *AggregatedFrames) Merge(other *AggregatedFrames) {
	if other == nil {
		return
	}
	for _, loc := range other.order {
		a.Add(loc, other.Frames(loc)...)
	}
}

func (a *AggregatedFrames) Locations() []string {
	return slices.Clone(a.order)
}

// Frames returns the frames for location in ascending order.
func (a *AggregatedFrames) Frames(location string) []int {
	set := a.sets[location]
	frames := make([]int, 0, len(set))
	for f := range set {
		frames = append(frames, f)
	}
	slices.Sort(frames)
	return frames
}

func (a *AggregatedFrames) Len() int {
	return len(a.order)
}

// Aggregate drops frames beyond totalFrames, resolves each record's folder
// with Normalize and unions the survivors per canonical location. A frame
// equal to totalFrames is kept.
func Aggregate(records []FrameRecord, totalFrames int, canonical []string) (*AggregatedFrames, error) {
	if totalFrames < 0 {
		return nil, fmt.Errorf("total frame count: %w: got %d", ErrNegativeFrame, totalFrames)
	}

	agg := NewAggregatedFrames()
	for _, rec := range records {
		kept := make([]int, 0, len(rec.Frames))
		for _, f := range rec.Frames {
			if f < 0 {
				return nil, fmt.Errorf("record %q: %w: got %d", rec.Folder, ErrNegativeFrame, f)
			}
			if f > totalFrames {
				continue
			}
			kept = append(kept, f)
		}
		if len(kept) == 0 {
			continue
		}
		agg.Add(Normalize(rec.Folder, canonical), kept...)
	}
	return agg, nil
}
