package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/heimdex/crucible/internal/logging"
	"github.com/heimdex/crucible/internal/timecode"
)

const maxStderrBytes = 8 * 1024

// Config holds tool paths, thumbnail geometry and per-call timeouts.
type Config struct {
	FFmpegPath       string
	FFprobePath      string
	ThumbnailWidth   int
	ThumbnailHeight  int
	ProbeTimeout     time.Duration
	ThumbnailTimeout time.Duration
	RenderTimeout    time.Duration
	Logger           *slog.Logger
	DebugPaths       bool
}

func DefaultConfig(logger *slog.Logger) Config {
	return Config{
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		ThumbnailWidth:   96,
		ThumbnailHeight:  74,
		ProbeTimeout:     30 * time.Second,
		ThumbnailTimeout: 30 * time.Second,
		RenderTimeout:    10 * time.Minute,
		Logger:           logger,
	}
}

// Tools runs the real ffmpeg and ffprobe binaries.
type Tools struct {
	cfg Config
}

func NewTools(cfg Config) *Tools {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Tools{cfg: cfg}
}

func (t *Tools) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	ctx, cancel := withTimeout(ctx, t.cfg.ProbeTimeout)
	defer cancel()

	var stdout bytes.Buffer
	result := t.exec(ctx, t.cfg.FFprobePath, &stdout,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		"--", path,
	)
	if !result.IsSuccess() {
		return nil, fmt.Errorf("probe %s: %w", t.safePath(path), &ToolError{Tool: "ffprobe", Result: result})
	}

	info, err := ParseProbeJSON(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", t.safePath(path), err)
	}
	t.cfg.Logger.Info("probed video",
		"path", t.safePath(path),
		"frames", info.FrameCount,
		"fps", info.FPS,
		"duration_s", info.Duration,
	)
	return info, nil
}

func (t *Tools) CaptureThumbnail(ctx context.Context, videoPath string, frame int, fps float64, outPath string) error {
	if err := timecode.ValidateFPS(fps); err != nil {
		return err
	}
	if frame < 0 {
		return fmt.Errorf("%w: got %d", timecode.ErrNegativeFrame, frame)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create thumbnail dir: %w", err)
	}

	ctx, cancel := withTimeout(ctx, t.cfg.ThumbnailTimeout)
	defer cancel()

	offset := float64(frame) / fps
	result := t.exec(ctx, t.cfg.FFmpegPath, io.Discard,
		"-y", "-v", "error",
		"-ss", formatSeconds(offset),
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", t.cfg.ThumbnailWidth, t.cfg.ThumbnailHeight),
		outPath,
	)
	if !result.IsSuccess() {
		return fmt.Errorf("thumbnail for frame %d: %w", frame, &ToolError{Tool: "ffmpeg", Result: result})
	}
	return nil
}

func (t *Tools) RenderClip(ctx context.Context, videoPath string, startMs, endMs int64, outPath string) error {
	if startMs < 0 {
		return fmt.Errorf("%w: clip start %dms", timecode.ErrNegativeDuration, startMs)
	}
	if endMs <= startMs {
		return fmt.Errorf("empty clip: end %dms is not after start %dms", endMs, startMs)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create renders dir: %w", err)
	}

	ctx, cancel := withTimeout(ctx, t.cfg.RenderTimeout)
	defer cancel()

	result := t.exec(ctx, t.cfg.FFmpegPath, io.Discard,
		"-y", "-v", "error",
		"-ss", formatSeconds(float64(startMs)/1000),
		"-i", videoPath,
		"-t", formatSeconds(float64(endMs-startMs)/1000),
		"-c", "copy",
		outPath,
	)
	if !result.IsSuccess() {
		return fmt.Errorf("render %s: %w", filepath.Base(outPath), &ToolError{Tool: "ffmpeg", Result: result})
	}

	if info, err := os.Stat(outPath); err == nil {
		t.cfg.Logger.Info("rendered clip",
			"output", t.safePath(outPath),
			"size", humanize.Bytes(uint64(info.Size())),
			"duration_ms", endMs-startMs,
		)
	}
	return nil
}

func (t *Tools) exec(ctx context.Context, binary string, stdout io.Writer, args ...string) RunResult {
	start := time.Now()

	var stderrBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}

	t.cfg.Logger.Debug("executing media command", "binary", binary, "args", len(args))

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			stderrBuf.WriteString(err.Error())
		}
	}

	if exitCode != 0 {
		t.cfg.Logger.Warn("media command failed",
			"binary", binary,
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrBuf.String(), 512),
		)
	}

	return RunResult{ExitCode: exitCode, StderrTail: stderrBuf.String(), Duration: elapsed}
}

func (t *Tools) safePath(path string) string {
	if t.cfg.DebugPaths {
		return path
	}
	return logging.SanitizePath(path)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last limit bytes written to it.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
