// Package review runs the reconcile pipeline end to end: manifest and
// annotations in, ranges, thumbnails, report, EDL and clips out.
package review

import (
	"time"

	"github.com/google/uuid"
	"github.com/heimdex/crucible/internal/reconcile"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one review of a video against a work order.
type Run struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	WorkOrder       string    `json:"work_order,omitempty"`
	ManifestPath    string    `json:"manifest_path"`
	VideoPath       string    `json:"video_path"`
	OutputPath      string    `json:"output_path,omitempty"`
	EDLPath         string    `json:"edl_path,omitempty"`
	IncludeIsolated bool      `json:"include_isolated"`
	Upload          bool      `json:"upload"`
	Progress        int       `json:"progress"`
	RangeCount      int       `json:"range_count"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Done reports whether the run has reached a terminal status.
func (r *Run) Done() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// StoredRange is a FrameRange as persisted for a run, with the artifacts
// produced for it.
type StoredRange struct {
	reconcile.FrameRange
	RunID         string `json:"run_id"`
	Position      int    `json:"position"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	ClipPath      string `json:"clip_path,omitempty"`
}

// ConfigKeyAuthToken is the config table key holding the API bearer token.
const ConfigKeyAuthToken = "auth_token"

func NewID() string {
	return uuid.NewString()
}

// Ranges strips the stored metadata back to the core values.
func Ranges(stored []StoredRange) []reconcile.FrameRange {
	out := make([]reconcile.FrameRange, len(stored))
	for i, s := range stored {
		out[i] = s.FrameRange
	}
	return out
}
