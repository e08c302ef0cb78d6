// Package timecode converts between frame indices, SMPTE-style timecodes
// (HH:MM:SS:FF) and milliseconds.
//
// Conversions floor-truncate at every step, so for non-integer frame rates
// (29.97, 59.94) a frame converted to a timecode, then to milliseconds, then
// back to a frame may land one frame away from where it started. Callers that
// need a frame back should use MillisecondsToFrame and tolerate ±1.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidFPS        = errors.New("fps must be a positive finite number")
	ErrNegativeFrame     = errors.New("frame index must not be negative")
	ErrNegativeDuration  = errors.New("duration must not be negative")
	ErrMalformedTimecode = errors.New("malformed timecode")
)

// Timecode is a frame-indexed position split into its display fields.
// For integer frame rates Frames is always below fps; for fractional rates
// it stays below ceil(fps).
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
}

func (t Timecode) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds, t.Frames)
}

// ValidateFPS rejects rates that would divide by zero or poison the math with NaN.
func ValidateFPS(fps float64) error {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidFPS, fps)
	}
	return nil
}

// FromFrame splits a zero-based frame index into timecode fields at fps.
func FromFrame(frame int, fps float64) (Timecode, error) {
	if err := ValidateFPS(fps); err != nil {
		return Timecode{}, err
	}
	if frame < 0 {
		return Timecode{}, fmt.Errorf("%w: got %d", ErrNegativeFrame, frame)
	}

	// hours = floor(f/(fps*3600)), minutes = floor((f mod fps*3600)/(fps*60))
	// and seconds = floor((f mod fps*60)/fps) all reduce to one whole-second
	// count. Deriving them from that count and the same remainder keeps the
	// fields consistent when fps*60 is not exactly representable.
	f := float64(frame)
	rem := math.Mod(f, fps)
	whole := int(math.Round((f - rem) / fps))
	return Timecode{
		Hours:   whole / 3600,
		Minutes: whole / 60 % 60,
		Seconds: whole % 60,
		Frames:  int(math.Floor(rem)),
	}, nil
}

// FrameToTimecode formats a frame index as "HH:MM:SS:FF".
func FrameToTimecode(frame int, fps float64) (string, error) {
	tc, err := FromFrame(frame, fps)
	if err != nil {
		return "", err
	}
	return tc.String(), nil
}

// Parse reads "HH:MM:SS:FF". Every field must be a non-negative decimal
// integer; minutes and seconds must be below 60.
func Parse(s string) (Timecode, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 4 {
		return Timecode{}, fmt.Errorf("%w: %q: want HH:MM:SS:FF", ErrMalformedTimecode, s)
	}

	var fields [4]int
	for i, part := range parts {
		if part == "" || !isDigits(part) {
			return Timecode{}, fmt.Errorf("%w: %q: field %d is not a number", ErrMalformedTimecode, s, i+1)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Timecode{}, fmt.Errorf("%w: %q: %v", ErrMalformedTimecode, s, err)
		}
		fields[i] = n
	}

	tc := Timecode{Hours: fields[0], Minutes: fields[1], Seconds: fields[2], Frames: fields[3]}
	if tc.Minutes >= 60 || tc.Seconds >= 60 {
		return Timecode{}, fmt.Errorf("%w: %q: minutes and seconds must be below 60", ErrMalformedTimecode, s)
	}
	return tc, nil
}

// TimecodeToMilliseconds converts "HH:MM:SS:FF" at fps to whole milliseconds,
// truncating toward zero.
func TimecodeToMilliseconds(s string, fps float64) (int64, error) {
	if err := ValidateFPS(fps); err != nil {
		return 0, err
	}
	tc, err := Parse(s)
	if err != nil {
		return 0, err
	}
	if float64(tc.Frames) >= math.Ceil(fps) {
		return 0, fmt.Errorf("%w: %q: frame field %d out of range for %v fps", ErrMalformedTimecode, s, tc.Frames, fps)
	}

	totalSeconds := float64(tc.Hours*3600+tc.Minutes*60+tc.Seconds) + float64(tc.Frames)/fps
	return int64(math.Floor(totalSeconds * 1000)), nil
}

// MillisecondsToFrame maps a position in milliseconds to the nearest frame.
func MillisecondsToFrame(ms int64, fps float64) (int, error) {
	if err := ValidateFPS(fps); err != nil {
		return 0, err
	}
	if ms < 0 {
		return 0, fmt.Errorf("%w: got %dms", ErrNegativeDuration, ms)
	}
	return int(math.Round(float64(ms) * fps / 1000)), nil
}

// MillisecondsToTimecode formats a wall-clock duration as "HH:MM:SS.mmm".
// It has no notion of frames and must not be used for frame positions.
func MillisecondsToTimecode(ms int64) (string, error) {
	if ms < 0 {
		return "", fmt.Errorf("%w: got %dms", ErrNegativeDuration, ms)
	}
	hours := ms / 3_600_000
	minutes := ms / 60_000 % 60
	seconds := ms / 1000 % 60
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
