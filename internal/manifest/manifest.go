// Package manifest parses facility work-order manifests: a short header
// naming the work order and crew, the canonical shot paths, and free-text
// notes.
//
//	Xytech Workorder 1109
//
//	Producer: Jane Doe
//	Operator: John Doe
//	Job: Color Correction
//
//	Location:
//	/hpsans13/production/Avatar/reel1/partA/1920x1080
//	...
//	Notes:
//	Please clean up flagged frames.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/heimdex/crucible/internal/fileutil"
)

var ErrEmptyManifest = errors.New("manifest is empty")

// Manifest is a parsed work order. Paths keep file order; the path
// normalizer relies on it for tie-breaks.
type Manifest struct {
	WorkOrder string
	Producer  string
	Operator  string
	Job       string
	paths     []string
	Notes     string
}

// Paths returns a copy of the canonical paths in file order.
func (m *Manifest) Paths() []string {
	return slices.Clone(m.paths)
}

type state int

const (
	readingHeader state = iota
	readingPaths
	readingNotes
)

func (s state) String() string {
	switch s {
	case readingHeader:
		return "ReadingHeader"
	case readingPaths:
		return "ReadingPaths"
	case readingNotes:
		return "ReadingNotes"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const notesMarker = "Notes:"

type parser struct {
	state     state
	m         Manifest
	seen      map[string]struct{}
	notes     []string
	haveOrder bool
}

// Parse reads a manifest from r.
func Parse(r io.Reader) (*Manifest, error) {
	p := &parser{seen: make(map[string]struct{})}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		p.line(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if !p.haveOrder {
		return nil, ErrEmptyManifest
	}

	p.m.Notes = strings.TrimSpace(strings.Join(p.notes, " "))
	m := p.m
	return &m, nil
}

// Load parses the manifest at path. Read failures come back as *fileutil.Error.
func Load(path string) (*Manifest, error) {
	return fileutil.ReadWith(path, Parse)
}

func (p *parser) line(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}

	if !p.haveOrder {
		fields := strings.Fields(line)
		p.m.WorkOrder = fields[len(fields)-1]
		p.haveOrder = true
		return
	}

	if p.state != readingNotes {
		if idx := strings.Index(line, notesMarker); idx >= 0 {
			p.state = readingNotes
			p.addNote(line[idx+len(notesMarker):])
			return
		}
	}

	switch p.state {
	case readingHeader:
		if strings.HasPrefix(line, "/") {
			p.state = readingPaths
			p.addPath(line)
			return
		}
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			return
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "producer":
			p.m.Producer = value
		case "operator":
			p.m.Operator = value
		case "job":
			p.m.Job = value
			p.state = readingPaths
		}
	case readingPaths:
		if isSectionLabel(line) {
			return
		}
		p.addPath(line)
	case readingNotes:
		p.addNote(line)
	}
}

func (p *parser) addPath(path string) {
	if _, dup := p.seen[path]; dup {
		return
	}
	p.seen[path] = struct{}{}
	p.m.paths = append(p.m.paths, path)
}

func (p *parser) addNote(text string) {
	if text = strings.TrimSpace(text); text != "" {
		p.notes = append(p.notes, text)
	}
}

func isSectionLabel(line string) bool {
	return strings.HasSuffix(line, ":") && !strings.Contains(line, "/")
}
