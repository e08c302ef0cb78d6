package reconcile

import (
	"errors"
	"slices"
	"testing"
)

func TestAggregate_MergesRawPathsIntoOneSet(t *testing.T) {
	canonical := []string{"/mnt/proj/shotX/seq/010/file.ext"}
	records := []FrameRecord{
		{Folder: "/grade/a/shotX/seq/010/file.ext", Frames: []int{10, 11, 12}},
		{Folder: "/other/b/shotX/seq/010/file.ext", Frames: []int{12, 13, 40}},
	}

	agg, err := Aggregate(records, 100, canonical)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if agg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (locations %v)", agg.Len(), agg.Locations())
	}
	got := agg.Frames(canonical[0])
	want := []int{10, 11, 12, 13, 40}
	if !slices.Equal(got, want) {
		t.Fatalf("Frames() = %v, want %v", got, want)
	}
}

func TestAggregate_DropsFramesBeyondTotal(t *testing.T) {
	records := []FrameRecord{
		{Folder: "/x/shot", Frames: []int{98, 99, 100, 101, 5000}},
		{Folder: "/y/shot", Frames: []int{200}},
	}

	agg, err := Aggregate(records, 100, nil)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got := agg.Frames("/x/shot"); !slices.Equal(got, []int{98, 99, 100}) {
		t.Fatalf("Frames(/x/shot) = %v, want [98 99 100]", got)
	}
	if slices.Contains(agg.Locations(), "/y/shot") {
		t.Fatalf("location with no surviving frames should be absent, got %v", agg.Locations())
	}
}

func TestAggregate_KeepsFirstSeenLocationOrder(t *testing.T) {
	records := []FrameRecord{
		{Folder: "/z", Frames: []int{1}},
		{Folder: "/a", Frames: []int{1}},
		{Folder: "/z", Frames: []int{2}},
		{Folder: "/m", Frames: []int{1}},
	}

	agg, err := Aggregate(records, 10, nil)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got, want := agg.Locations(), []string{"/z", "/a", "/m"}; !slices.Equal(got, want) {
		t.Fatalf("Locations() = %v, want %v", got, want)
	}
}

func TestAggregate_RejectsNegatives(t *testing.T) {
	if _, err := Aggregate(nil, -1, nil); !errors.Is(err, ErrNegativeFrame) {
		t.Fatalf("Aggregate(total=-1) error = %v, want %v", err, ErrNegativeFrame)
	}
	records := []FrameRecord{{Folder: "/x", Frames: []int{3, -2}}}
	if _, err := Aggregate(records, 10, nil); !errors.Is(err, ErrNegativeFrame) {
		t.Fatalf("Aggregate(frame=-2) error = %v, want %v", err, ErrNegativeFrame)
	}
}

func TestAggregatedFrames_MergeIsOrderIndependent(t *testing.T) {
	a := NewAggregatedFrames()
	a.Add("/p", 1, 2)
	b := NewAggregatedFrames()
	b.Add("/p", 2, 3)
	b.Add("/q", 7)

	ab := NewAggregatedFrames()
	ab.Merge(a)
	ab.Merge(b)
	ba := NewAggregatedFrames()
	ba.Merge(b)
	ba.Merge(a)

	for _, loc := range []string{"/p", "/q"} {
		if !slices.Equal(ab.Frames(loc), ba.Frames(loc)) {
			t.Fatalf("Frames(%s): %v vs %v", loc, ab.Frames(loc), ba.Frames(loc))
		}
	}
	if got := ab.Frames("/p"); !slices.Equal(got, []int{1, 2, 3}) {
		t.Fatalf("Frames(/p) = %v, want [1 2 3]", got)
	}
	ab.Merge(nil)
}

func TestAggregatedFrames_ZeroValue(t *testing.T) {
	var agg AggregatedFrames
	agg.Add("/a", 3, 1, 3)
	agg.Add("/b", 7)

	if got := agg.Frames("/a"); !slices.Equal(got, []int{1, 3}) {
		t.Fatalf("Frames(/a) = %v, want [1 3]", got)
	}
	if got := agg.Locations(); !slices.Equal(got, []string{"/a", "/b"}) {
		t.Fatalf("Locations() = %v", got)
	}
}
