package review

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heimdex/crucible/internal/media"
)

// Runner executes pending runs one at a time from a polling loop.
type Runner struct {
	service      *Service
	repo         Repository
	doctor       *media.CachedDoctor
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
	active       atomic.Pointer[string]

	stopped     chan struct{}
	stoppedOnce sync.Once
}

// NewRunner builds a runner. doctor may be nil to skip the tool check.
func NewRunner(service *Service, repo Repository, doctor *media.CachedDoctor, pollInterval time.Duration, logger *slog.Logger) *Runner {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Runner{
		service:      service,
		repo:         repo,
		doctor:       doctor,
		logger:       logger,
		pollInterval: pollInterval,
		stopped:      make(chan struct{}),
	}
}

// Start blocks until ctx is done and any run in progress has returned.
func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}
	defer r.stoppedOnce.Do(func() { close(r.stopped) })

	r.logger.Info("run runner started", "poll_interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("run runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.ProcessNext(ctx)
			}
		}
	}
}

// Stopped is closed once the first Start call has returned.
func (r *Runner) Stopped() <-chan struct{} {
	return r.stopped
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("run runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("run runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// ActiveRunID is the run being executed, or "".
func (r *Runner) ActiveRunID() string {
	if id := r.active.Load(); id != nil {
		return *id
	}
	return ""
}

// ProcessNext executes the oldest pending run, if any. It reports whether a
// run was picked up.
func (r *Runner) ProcessNext(ctx context.Context) bool {
	runs, err := r.repo.ListPendingRuns(ctx)
	if err != nil {
		r.logger.Error("failed to list pending runs", "error", err)
		return false
	}
	if len(runs) == 0 {
		return false
	}

	run := runs[0]
	r.logger.Info("processing run", "run_id", run.ID)

	if r.doctor != nil {
		caps, err := r.doctor.Get(ctx)
		if err != nil || !caps.Ready() {
			msg := "ffmpeg and ffprobe are required"
			if err != nil {
				msg = "tool check failed: " + err.Error()
			}
			if uerr := r.repo.UpdateRunStatus(ctx, run.ID, RunStatusFailed, msg); uerr != nil {
				r.logger.Error("failed to record run failure", "run_id", run.ID, "error", uerr)
			}
			return true
		}
	}

	r.active.Store(&run.ID)
	defer r.active.Store(nil)

	if _, err := r.service.Execute(ctx, run.ID); err != nil {
		r.logger.Error("run failed", "run_id", run.ID, "error", err)
	}
	return true
}
