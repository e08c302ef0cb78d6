package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/heimdex/crucible/internal/timecode"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunResult_IsSuccess(t *testing.T) {
	tests := []struct {
		exitCode int
		want     bool
	}{
		{0, true},
		{1, false},
		{-1, false},
	}
	for _, tt := range tests {
		r := RunResult{ExitCode: tt.exitCode}
		if got := r.IsSuccess(); got != tt.want {
			t.Errorf("RunResult{ExitCode: %d}.IsSuccess() = %v, want %v", tt.exitCode, got, tt.want)
		}
	}
}

func TestLimitedWriter_KeepsOnlyTail(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 10}

	lw.Write([]byte("hello"))
	if buf.String() != "hello" {
		t.Errorf("after short write got %q, want %q", buf.String(), "hello")
	}

	n, err := lw.Write([]byte(" world of test data"))
	if err != nil || n != 19 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if got := buf.String(); got != " test data" {
		t.Errorf("after overflow got %q, want %q", got, " test data")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "...world"},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestNames(t *testing.T) {
	if got := ThumbnailName(42); got != "thumbnail_42.png" {
		t.Errorf("ThumbnailName() = %q", got)
	}
	if got := ClipName(10, 12); got != "render_10_12.mp4" {
		t.Errorf("ClipName() = %q", got)
	}
}

func TestRenderClip_RejectsEmptySpan(t *testing.T) {
	tools := NewTools(DefaultConfig(testLogger()))
	out := filepath.Join(t.TempDir(), "clip.mp4")

	if err := tools.RenderClip(context.Background(), "in.mp4", 500, 500, out); err == nil {
		t.Fatal("RenderClip(500, 500) error = nil")
	}
	if err := tools.RenderClip(context.Background(), "in.mp4", -1, 500, out); !errors.Is(err, timecode.ErrNegativeDuration) {
		t.Fatalf("RenderClip(-1, 500) error = %v, want %v", err, timecode.ErrNegativeDuration)
	}
}

func TestCaptureThumbnail_RejectsBadFPS(t *testing.T) {
	tools := NewTools(DefaultConfig(testLogger()))
	err := tools.CaptureThumbnail(context.Background(), "in.mp4", 10, 0, filepath.Join(t.TempDir(), "t.png"))
	if !errors.Is(err, timecode.ErrInvalidFPS) {
		t.Fatalf("CaptureThumbnail(fps=0) error = %v, want %v", err, timecode.ErrInvalidFPS)
	}
}

func TestProbe_MissingBinary(t *testing.T) {
	cfg := DefaultConfig(testLogger())
	cfg.FFprobePath = filepath.Join(t.TempDir(), "no-such-ffprobe")
	tools := NewTools(cfg)

	_, err := tools.Probe(context.Background(), "in.mp4")
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Probe() error = %v, want *ToolError", err)
	}
	if toolErr.Result.ExitCode != -1 || !strings.Contains(toolErr.Error(), "ffprobe") {
		t.Fatalf("ToolError = %v", toolErr)
	}
}
