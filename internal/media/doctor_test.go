package media

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDoctor struct {
	calls int
	err   error
}

func (d *fakeDoctor) Check(ctx context.Context) (*Capabilities, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return &Capabilities{
		FFmpeg:   ToolInfo{Available: true},
		FFprobe:  ToolInfo{Available: true},
		ProbedAt: time.Now(),
	}, nil
}

func TestCachedDoctor_CachesWithinTTL(t *testing.T) {
	fake := &fakeDoctor{}
	d := NewCachedDoctor(fake, testLogger())

	for i := 0; i < 3; i++ {
		caps, err := d.Get(context.Background())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !caps.Ready() {
			t.Fatal("Ready() = false")
		}
	}
	if fake.calls != 1 {
		t.Errorf("doctor called %d times, want 1", fake.calls)
	}

	d.Invalidate()
	if d.Peek() != nil {
		t.Fatal("Peek() after Invalidate() should be nil")
	}
	if _, err := d.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fake.calls != 2 {
		t.Errorf("doctor called %d times, want 2", fake.calls)
	}
}

func TestCachedDoctor_StaleOnFailure(t *testing.T) {
	fake := &fakeDoctor{}
	d := NewCachedDoctor(fake, testLogger())
	if _, err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	fake.err = errors.New("boom")
	caps, err := d.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() with stale cache error = %v", err)
	}
	if caps == nil {
		t.Fatal("Refresh() returned nil caps")
	}

	d.Invalidate()
	if _, err := d.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() without cache should fail")
	}
}

func TestCapabilities_Ready(t *testing.T) {
	var nilCaps *Capabilities
	if nilCaps.Ready() {
		t.Error("nil Ready() = true")
	}
	if (&Capabilities{FFmpeg: ToolInfo{Available: true}}).Ready() {
		t.Error("Ready() without ffprobe = true")
	}
}
