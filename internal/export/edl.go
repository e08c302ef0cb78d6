package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/heimdex/crucible/internal/media"
	"github.com/heimdex/crucible/internal/reconcile"
	"github.com/heimdex/crucible/internal/timecode"
)

// GenerateEDL renders ranges as CMX3600 events laid end to end on the
// record side. Source out points are exclusive, so a range's last frame is
// included. Timecodes are counted exactly like FrameRange timecodes, so the
// source in point of every event matches the range's StartTimecode. That
// count never skips frame numbers, so the list is always NON-DROP, even at
// 29.97 and 59.94. An invalid frameRate falls back to 30.
func GenerateEDL(ranges []reconcile.FrameRange, title string, frameRate float64) string {
	if timecode.ValidateFPS(frameRate) != nil {
		frameRate = 30
	}
	tc := func(frame int) string {
		s, err := timecode.FrameToTimecode(frame, frameRate)
		if err != nil {
			return "00:00:00:00"
		}
		return s
	}

	lines := []string{
		fmt.Sprintf("TITLE: %s", title),
		"FCM: NON-DROP FRAME",
		"",
	}

	record := 0
	for i, r := range ranges {
		length := r.EndFrame - r.StartFrame + 1
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V",
				tc(r.StartFrame), tc(r.EndFrame+1), tc(record), tc(record+length)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", media.ClipName(r.StartFrame, r.EndFrame)),
			fmt.Sprintf("* LOCATION:  %s", r.Location),
		)
		record += length
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// WriteEDL writes GenerateEDL output to path.
func WriteEDL(path string, ranges []reconcile.FrameRange, title string, frameRate float64) error {
	edl := GenerateEDL(ranges, SanitizeName(title, 70), frameRate)
	if err := os.WriteFile(path, []byte(edl), 0o644); err != nil {
		return fmt.Errorf("write edl: %w", err)
	}
	return nil
}
