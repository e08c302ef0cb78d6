package media

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// StubFFmpeg records requests instead of running anything. Probe answers
// with Info. Thumbnails are written as small grey PNGs and clips as empty
// files so callers that check for outputs behave as they would with real
// tools.
type StubFFmpeg struct {
	Info   VideoInfo
	logger *slog.Logger

	mu         sync.Mutex
	thumbnails []int
	clips      [][2]int64
}

func NewStubFFmpeg(info VideoInfo, logger *slog.Logger) *StubFFmpeg {
	return &StubFFmpeg{Info: info, logger: logger}
}

func (f *StubFFmpeg) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	f.logger.Info("ffmpeg stub: probe requested", "path", path)
	info := f.Info
	return &info, nil
}

func (f *StubFFmpeg) CaptureThumbnail(ctx context.Context, videoPath string, frame int, fps float64, outPath string) error {
	f.logger.Info("ffmpeg stub: thumbnail requested", "frame", frame, "output", outPath)
	f.mu.Lock()
	f.thumbnails = append(f.thumbnails, frame)
	f.mu.Unlock()
	return writePlaceholderPNG(outPath)
}

func (f *StubFFmpeg) RenderClip(ctx context.Context, videoPath string, startMs, endMs int64, outPath string) error {
	f.logger.Info("ffmpeg stub: render requested", "start_ms", startMs, "end_ms", endMs, "output", outPath)
	f.mu.Lock()
	f.clips = append(f.clips, [2]int64{startMs, endMs})
	f.mu.Unlock()
	return touch(outPath)
}

// Thumbnails returns the frames thumbnails were requested for.
func (f *StubFFmpeg) Thumbnails() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.thumbnails...)
}

// Clips returns the [start, end) millisecond spans clips were requested for.
func (f *StubFFmpeg) Clips() [][2]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]int64(nil), f.clips...)
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, nil, 0644)
}

func writePlaceholderPNG(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	img := image.NewGray(image.Rect(0, 0, 96, 74))
	for i := range img.Pix {
		img.Pix[i] = color.Gray{Y: 128}.Y
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
