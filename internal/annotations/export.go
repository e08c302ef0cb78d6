// Package annotations reads grading-tool frame exports and keeps them in the
// local database until a review run consumes them.
package annotations

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/heimdex/crucible/internal/fileutil"
	"github.com/heimdex/crucible/internal/reconcile"
)

// ParseExport reads a Baselight-style export: one folder per line followed
// by the frames flagged under it.
//
//	/baselightfilesystem1/Avatar/reel1/partA/1920x1080 2 3 4 31 32 <err> 33
//
// Tokens that are not plain decimal numbers (<err>, <null>, -5) are dropped,
// as are numbers too large for an int.
// A folder with no usable frames still yields a record.
func ParseExport(r io.Reader) ([]reconcile.FrameRecord, error) {
	var records []reconcile.FrameRecord

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		rec := reconcile.FrameRecord{Folder: fields[0], Frames: make([]int, 0, len(fields)-1)}
		for _, tok := range fields[1:] {
			if !isDigits(tok) {
				continue
			}
			n, err := strconv.Atoi(tok)
			if err != nil {
				// Too large for int, so past any real frame count.
				if errors.Is(err, strconv.ErrRange) {
					continue
				}
				return nil, fmt.Errorf("line %d: frame %q: %w", lineNo, tok, err)
			}
			rec.Frames = append(rec.Frames, n)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return records, nil
}

// LoadExport parses the export at path. Read failures come back as
// *fileutil.Error.
func LoadExport(path string) ([]reconcile.FrameRecord, error) {
	return fileutil.ReadWith(path, ParseExport)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
