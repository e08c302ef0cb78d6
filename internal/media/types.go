// Package media wraps the ffprobe and ffmpeg binaries: reading a video's
// frame count and rate, grabbing review thumbnails and cutting clips.
package media

import (
	"context"
	"fmt"
	"time"
)

// VideoInfo is what a review run needs to know about the source video.
type VideoInfo struct {
	FrameCount int     `json:"frame_count"`
	FPS        float64 `json:"fps"`
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Codec      string  `json:"codec"`
}

type Prober interface {
	Probe(ctx context.Context, path string) (*VideoInfo, error)
}

// FFmpeg is everything a review run asks of the media tools.
type FFmpeg interface {
	Prober
	// CaptureThumbnail writes one scaled PNG of frame to outPath.
	CaptureThumbnail(ctx context.Context, videoPath string, frame int, fps float64, outPath string) error
	// RenderClip stream-copies [startMs, endMs) of the video to outPath.
	RenderClip(ctx context.Context, videoPath string, startMs, endMs int64, outPath string) error
}

// ThumbnailName is the file name used for the thumbnail of frame.
func ThumbnailName(frame int) string {
	return fmt.Sprintf("thumbnail_%d.png", frame)
}

// ClipName is the file name used for the clip of a frame range.
func ClipName(startFrame, endFrame int) string {
	return fmt.Sprintf("render_%d_%d.mp4", startFrame, endFrame)
}

// RunResult is the outcome of one tool invocation.
type RunResult struct {
	ExitCode   int           `json:"exit_code"`
	StderrTail string        `json:"stderr_tail,omitempty"`
	Duration   time.Duration `json:"duration"`
}

func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// ToolError reports a non-zero exit from ffmpeg or ffprobe.
type ToolError struct {
	Tool   string
	Result RunResult
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited %d: %s", e.Tool, e.Result.ExitCode, truncate(e.Result.StderrTail, 512))
}
