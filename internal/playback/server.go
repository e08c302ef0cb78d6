// Package playback serves rendered clips and thumbnails with byte-range
// support so browsers can seek inside review clips.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidName = errors.New("invalid artifact name")

type PlaybackService interface {
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error
	ServeArtifact(w http.ResponseWriter, r *http.Request, dir, name string) error
}

type Server struct {
	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logger}
}

var contentTypes = map[string]string{
	".mp4": "video/mp4",
	".mov": "video/quicktime",
	".png": "image/png",
}

// ValidateName accepts plain file names only: no separators, no dot-dirs.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ServeArtifact serves dir/name after checking name cannot escape dir.
func (s *Server) ServeArtifact(w http.ResponseWriter, r *http.Request, dir, name string) error {
	if err := ValidateName(name); err != nil {
		http.Error(w, "invalid name", http.StatusBadRequest)
		return nil
	}
	return s.ServeFile(w, r, filepath.Join(dir, name))
}

// ServeFile writes the file honouring Range and conditional headers.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}

	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filePath))]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
	return nil
}
