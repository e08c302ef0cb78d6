// Package fileutil wraps file reads with errors that say whether the file
// was missing or could not be read.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

type Kind string

const (
	KindNotFound  Kind = "not_found"
	KindIOFailure Kind = "io_failure"
)

// Error is returned by every read helper in this package.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("file not found: %s", e.Path)
	default:
		return fmt.Sprintf("read %s: %v", e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a fileutil NotFound error.
func IsNotFound(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindNotFound
}

func classify(path string, err error) *Error {
	if errors.Is(err, fs.ErrNotExist) {
		return &Error{Kind: KindNotFound, Path: path, Err: err}
	}
	return &Error{Kind: KindIOFailure, Path: path, Err: err}
}

// Open opens path for reading. Directories are reported as IOFailure.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classify(path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, classify(path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, &Error{Kind: KindIOFailure, Path: path, Err: errors.New("is a directory")}
	}
	return f, nil
}

// ReadWith opens path and hands it to parse, closing it afterwards. Errors
// from parse are wrapped as IOFailure only when they come from the reader.
func ReadWith[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	v, err := parse(f)
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return zero, classify(path, err)
		}
		return zero, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}
