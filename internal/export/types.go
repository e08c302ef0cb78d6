package export

import "github.com/heimdex/crucible/internal/reconcile"

const (
	FormatEDL  = "edl"
	FormatXLSX = "xlsx"
)

// ExportRequest asks for a finished run's ranges to be written out again.
type ExportRequest struct {
	Format    string `json:"format"`
	OutputDir string `json:"output_dir"`
	Title     string `json:"title"`
}

type ExportResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	RangeCount int    `json:"range_count"`
}

// Header is the work-order block at the top of a report.
type Header struct {
	WorkOrder string
	Producer  string
	Operator  string
	Job       string
	Notes     string
}

// Row is one report line: a range and the thumbnail captured for it.
type Row struct {
	Range         reconcile.FrameRange
	ThumbnailPath string
}

type Report struct {
	Header Header
	Rows   []Row
}
