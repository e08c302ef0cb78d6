package review

import (
	"context"
	"testing"
	"time"

	"github.com/heimdex/crucible/internal/logging"
	"github.com/heimdex/crucible/internal/media"
)

type fakeDoctor struct {
	caps *media.Capabilities
	err  error
}

func (d *fakeDoctor) Check(ctx context.Context) (*media.Capabilities, error) {
	return d.caps, d.err
}

func readyCaps() *media.Capabilities {
	return &media.Capabilities{
		FFmpeg:   media.ToolInfo{Available: true},
		FFprobe:  media.ToolInfo{Available: true},
		ProbedAt: time.Now(),
	}
}

func TestRunner_ProcessNext(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	doctor := media.NewCachedDoctor(&fakeDoctor{caps: readyCaps()}, logging.Discard())
	runner := NewRunner(f.svc, f.repo, doctor, time.Second, logging.Discard())

	if runner.ProcessNext(ctx) {
		t.Fatal("ProcessNext() with no pending runs = true")
	}

	first, err := f.svc.Submit(ctx, Request{ManifestPath: f.mpath, VideoPath: f.vpath})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.Submit(ctx, Request{ManifestPath: f.mpath, VideoPath: f.vpath})
	if err != nil {
		t.Fatal(err)
	}

	if !runner.ProcessNext(ctx) {
		t.Fatal("ProcessNext() = false, want true")
	}
	got, err := f.repo.GetRun(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != RunStatusCompleted || got.RangeCount != 3 {
		t.Fatalf("first run = %+v", got)
	}
	pending, _ := f.repo.GetRun(ctx, second.ID)
	if pending.Status != RunStatusPending {
		t.Fatalf("second run status = %s, want pending", pending.Status)
	}
	if runner.ActiveRunID() != "" {
		t.Errorf("ActiveRunID() = %q after run", runner.ActiveRunID())
	}

	runner.ProcessNext(ctx)
	done, _ := f.repo.GetRun(ctx, second.ID)
	if done.Status != RunStatusCompleted {
		t.Fatalf("second run status = %s", done.Status)
	}
}

func TestRunner_FailsWhenToolsMissing(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	caps := readyCaps()
	caps.FFmpeg.Available = false
	doctor := media.NewCachedDoctor(&fakeDoctor{caps: caps}, logging.Discard())
	runner := NewRunner(f.svc, f.repo, doctor, time.Second, logging.Discard())

	run, err := f.svc.Submit(ctx, Request{ManifestPath: f.mpath, VideoPath: f.vpath})
	if err != nil {
		t.Fatal(err)
	}
	runner.ProcessNext(ctx)

	got, _ := f.repo.GetRun(ctx, run.ID)
	if got.Status != RunStatusFailed || got.Error == "" {
		t.Fatalf("run = %+v, want failed with error", got)
	}
	if len(f.ff.Thumbnails()) != 0 {
		t.Error("no work should happen without tools")
	}
}

func TestRunner_StartStop(t *testing.T) {
	f := setup(t, nil)
	runner := NewRunner(f.svc, f.repo, nil, 10*time.Millisecond, logging.Discard())

	run, err := f.svc.Submit(context.Background(), Request{ManifestPath: f.mpath, VideoPath: f.vpath})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := f.repo.GetRun(context.Background(), run.ID)
		if got != nil && got.Done() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	got, _ := f.repo.GetRun(context.Background(), run.ID)
	if got.Status != RunStatusCompleted {
		t.Fatalf("run status = %s, want completed", got.Status)
	}
	if runner.IsRunning() {
		t.Error("IsRunning() after stop = true")
	}
}

func TestRunner_PauseResume(t *testing.T) {
	runner := NewRunner(nil, nil, nil, 0, logging.Discard())
	if runner.IsPaused() {
		t.Fatal("new runner is paused")
	}
	runner.Pause()
	if !runner.IsPaused() {
		t.Fatal("Pause() did not pause")
	}
	runner.Resume()
	if runner.IsPaused() {
		t.Fatal("Resume() did not resume")
	}
}

func TestRunner_Stopped(t *testing.T) {
	runner := NewRunner(nil, nil, nil, time.Hour, logging.Discard())

	select {
	case <-runner.Stopped():
		t.Fatal("Stopped() closed before Start")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	go runner.Start(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for !runner.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// A second Start while running is a no-op and must not close Stopped.
	runner.Start(ctx)
	select {
	case <-runner.Stopped():
		t.Fatal("Stopped() closed while the loop is still running")
	default:
	}

	cancel()
	select {
	case <-runner.Stopped():
	case <-time.After(5 * time.Second):
		t.Fatal("Stopped() not closed after cancel")
	}
	if runner.IsRunning() {
		t.Error("IsRunning() after Stopped = true")
	}
}
