// Package cloud pushes rendered review clips to remote storage: a
// Frame.io-style asset API or an S3-compatible bucket.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// UploadResult describes one uploaded file.
type UploadResult struct {
	Name        string `json:"name"`
	Destination string `json:"destination"`
	Location    string `json:"location,omitempty"`
	Size        int64  `json:"size"`
}

type Uploader interface {
	Upload(ctx context.Context, filePath string) (*UploadResult, error)
}

// UploadError represents a non-2xx response from an upload endpoint.
type UploadError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *UploadError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// IsRetryable reports whether err wraps a retryable *UploadError.
func IsRetryable(err error) bool {
	var ue *UploadError
	return errors.As(err, &ue) && ue.IsRetryable()
}

// StubUploader logs uploads without sending anything.
type StubUploader struct {
	logger *slog.Logger
}

func NewStubUploader(logger *slog.Logger) *StubUploader {
	return &StubUploader{logger: logger}
}

func (s *StubUploader) Upload(ctx context.Context, filePath string) (*UploadResult, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}
	s.logger.Info("cloud stub: upload requested", "path", filePath, "bytes", info.Size())
	return &UploadResult{Name: filepath.Base(filePath), Destination: "stub", Size: info.Size()}, nil
}

// Multi uploads every file to each uploader in turn.
type Multi []Uploader

// Upload returns the first uploader's result. Every uploader is tried even
// when an earlier one fails; the errors are joined.
func (m Multi) Upload(ctx context.Context, filePath string) (*UploadResult, error) {
	var first *UploadResult
	var errs []error
	for _, up := range m {
		res, err := up.Upload(ctx, filePath)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if first == nil {
			first = res
		}
	}
	return first, errors.Join(errs...)
}

// UploadDir uploads each regular file in dir whose name ends in ext, in name
// order. It keeps going past failures and returns every result it got along
// with the joined errors.
func UploadDir(ctx context.Context, up Uploader, dir, ext string) ([]*UploadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var results []*UploadResult
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := up.Upload(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".png":  "image/png",
	".edl":  "text/plain",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func contentType(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}
