package media

import (
	"errors"
	"math"
	"testing"

	"github.com/heimdex/crucible/internal/timecode"
)

const probeSample = `{
  "streams": [
    {"index": 0, "codec_name": "aac", "codec_type": "audio", "avg_frame_rate": "0/0"},
    {"index": 1, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080,
     "avg_frame_rate": "30000/1001", "r_frame_rate": "30000/1001", "nb_frames": "5994", "duration": "200.000000"}
  ],
  "format": {"duration": "200.100000"}
}`

func TestParseProbeJSON(t *testing.T) {
	info, err := ParseProbeJSON([]byte(probeSample))
	if err != nil {
		t.Fatalf("ParseProbeJSON() error = %v", err)
	}
	if info.FrameCount != 5994 {
		t.Errorf("FrameCount = %d, want 5994", info.FrameCount)
	}
	if math.Abs(info.FPS-29.97) > 0.001 {
		t.Errorf("FPS = %v, want ~29.97", info.FPS)
	}
	if info.Width != 1920 || info.Height != 1080 || info.Codec != "h264" {
		t.Errorf("stream = %dx%d %s", info.Width, info.Height, info.Codec)
	}
	if info.Duration != 200 {
		t.Errorf("Duration = %v, want stream duration 200", info.Duration)
	}
}

func TestParseProbeJSON_Fallbacks(t *testing.T) {
	data := `{"streams":[{"codec_type":"video","avg_frame_rate":"0/0","r_frame_rate":"25/1"}],"format":{"duration":"10.0"}}`
	info, err := ParseProbeJSON([]byte(data))
	if err != nil {
		t.Fatalf("ParseProbeJSON() error = %v", err)
	}
	if info.FPS != 25 {
		t.Errorf("FPS = %v, want r_frame_rate fallback 25", info.FPS)
	}
	if info.FrameCount != 250 {
		t.Errorf("FrameCount = %d, want duration*fps = 250", info.FrameCount)
	}
}

func TestParseProbeJSON_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantFPS bool
	}{
		{name: "not json", data: "ffprobe: error"},
		{name: "no video", data: `{"streams":[{"codec_type":"audio"}]}`},
		{name: "zero rate", data: `{"streams":[{"codec_type":"video","avg_frame_rate":"0/0","r_frame_rate":"0/0"}]}`, wantFPS: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseProbeJSON([]byte(tc.data))
			if err == nil {
				t.Fatal("ParseProbeJSON() error = nil")
			}
			if tc.wantFPS && !errors.Is(err, timecode.ErrInvalidFPS) {
				t.Fatalf("ParseProbeJSON() error = %v, want %v", err, timecode.ErrInvalidFPS)
			}
		})
	}
}

func TestParseRational(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"24/1", 24},
		{"25", 25},
		{"0/0", 0},
		{"1/0", 0},
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := parseRational(tt.in); got != tt.want {
			t.Errorf("parseRational(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
