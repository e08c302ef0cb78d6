package api

import (
	"time"

	"github.com/heimdex/crucible/internal/review"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State            string         `json:"state"`
	LastError        string         `json:"last_error,omitempty"`
	RunsRunning      int            `json:"runs_running"`
	RunsPending      int            `json:"runs_pending"`
	ActiveRunID      string         `json:"active_run_id,omitempty"`
	AnnotationsCount int            `json:"annotations_count"`
	Tools            *ToolsResponse `json:"tools,omitempty"`
}

type ToolsResponse struct {
	FFmpeg      bool   `json:"ffmpeg"`
	FFprobe     bool   `json:"ffprobe"`
	LastProbeAt string `json:"last_probe_at,omitempty"`
}

type SubmitRunResponse struct {
	RunID string `json:"run_id"`
}

type RunResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	WorkOrder       string `json:"work_order,omitempty"`
	ManifestPath    string `json:"manifest_path"`
	VideoPath       string `json:"video_path"`
	OutputPath      string `json:"output_path,omitempty"`
	EDLPath         string `json:"edl_path,omitempty"`
	IncludeIsolated bool   `json:"include_isolated"`
	Upload          bool   `json:"upload"`
	Progress        int    `json:"progress"`
	RangeCount      int    `json:"range_count"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type RangeResponse struct {
	Position      int    `json:"position"`
	Location      string `json:"location"`
	FrameRange    string `json:"frame_range"`
	TimecodeRange string `json:"timecode_range"`
	StartFrame    int    `json:"start_frame"`
	EndFrame      int    `json:"end_frame"`
	SampledFrame  int    `json:"sampled_frame"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	Clip          string `json:"clip,omitempty"`
}

type RangesResponse struct {
	Ranges []RangeResponse `json:"ranges"`
}

type IngestResponse struct {
	Records int `json:"records"`
}

type TimecodeResponse struct {
	Frame        *int    `json:"frame,omitempty"`
	FPS          float64 `json:"fps,omitempty"`
	Timecode     string  `json:"timecode,omitempty"`
	Milliseconds *int64  `json:"milliseconds,omitempty"`
	Duration     string  `json:"duration,omitempty"`
}

func RunToResponse(r *review.Run) RunResponse {
	return RunResponse{
		ID:              r.ID,
		Status:          r.Status,
		WorkOrder:       r.WorkOrder,
		ManifestPath:    r.ManifestPath,
		VideoPath:       r.VideoPath,
		OutputPath:      r.OutputPath,
		EDLPath:         r.EDLPath,
		IncludeIsolated: r.IncludeIsolated,
		Upload:          r.Upload,
		Progress:        r.Progress,
		RangeCount:      r.RangeCount,
		Error:           r.Error,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.Format(time.RFC3339),
	}
}

// RangeToResponse exposes artifact file names, not server paths; clients
// fetch them through the run's clip and thumbnail routes.
func RangeToResponse(s review.StoredRange) RangeResponse {
	return RangeResponse{
		Position:      s.Position,
		Location:      s.Location,
		FrameRange:    s.FrameRangeString(),
		TimecodeRange: s.TimecodeRangeString(),
		StartFrame:    s.StartFrame,
		EndFrame:      s.EndFrame,
		SampledFrame:  s.SampledFrame,
		Thumbnail:     baseName(s.ThumbnailPath),
		Clip:          baseName(s.ClipPath),
	}
}
