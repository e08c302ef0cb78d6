package media

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/heimdex/crucible/internal/timecode"
)

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

// ParseProbeJSON turns `ffprobe -print_format json -show_format
// -show_streams` output into VideoInfo for the first video stream.
// A video without a usable frame rate is rejected with timecode.ErrInvalidFPS.
func ParseProbeJSON(data []byte) (*VideoInfo, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	var video *ffprobeStream
	for i := range raw.Streams {
		if strings.EqualFold(raw.Streams[i].CodecType, "video") {
			video = &raw.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, fmt.Errorf("no video stream found")
	}

	fps := parseRational(video.AvgFrameRate)
	if fps <= 0 {
		fps = parseRational(video.RFrameRate)
	}
	if err := timecode.ValidateFPS(fps); err != nil {
		return nil, fmt.Errorf("video frame rate %q: %w", video.AvgFrameRate, err)
	}

	duration := parseFloat(video.Duration)
	if duration <= 0 {
		duration = parseFloat(raw.Format.Duration)
	}

	frames, err := strconv.Atoi(strings.TrimSpace(video.NbFrames))
	if err != nil || frames <= 0 {
		frames = int(math.Round(duration * fps))
	}

	return &VideoInfo{
		FrameCount: frames,
		FPS:        fps,
		Duration:   duration,
		Width:      video.Width,
		Height:     video.Height,
		Codec:      video.CodecName,
	}, nil
}

// parseRational reads "30000/1001" or "25". Anything unparseable or with a
// zero denominator is 0.
func parseRational(s string) float64 {
	s = strings.TrimSpace(s)
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
