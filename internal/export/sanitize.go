package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	ErrOutputDirRequired  = errors.New("output directory is required")
	ErrOutputDirTraversal = errors.New("output directory cannot contain path traversal")
)

// SanitizeName drops control characters, replaces anything outside
// letters, digits and " -_.,()" with '_' and caps the result at maxLen runes.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// FileName builds "workorder_<id>.<ext>" for run outputs. An empty or
// unusable work order falls back to "review".
func FileName(workOrder, ext string) string {
	stem := strings.ReplaceAll(SanitizeName(workOrder, 64), " ", "_")
	stem = strings.Trim(stem, "._")
	if stem == "" {
		return "review." + ext
	}
	return "workorder_" + stem + "." + ext
}

// ValidateOutputDir accepts only clean, existing directories with no ".."
// segments.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return ErrOutputDirRequired
	}

	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return ErrOutputDirTraversal
		}
	}

	if filepath.Clean(dir) != dir {
		return fmt.Errorf("output directory %q must be a clean path", dir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory %q does not exist", dir)
		}
		return fmt.Errorf("invalid output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory %q is not a directory", dir)
	}
	return nil
}
