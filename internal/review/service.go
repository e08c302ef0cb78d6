package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/heimdex/crucible/internal/annotations"
	"github.com/heimdex/crucible/internal/cloud"
	"github.com/heimdex/crucible/internal/export"
	"github.com/heimdex/crucible/internal/logging"
	"github.com/heimdex/crucible/internal/manifest"
	"github.com/heimdex/crucible/internal/media"
	"github.com/heimdex/crucible/internal/reconcile"
	"github.com/heimdex/crucible/internal/timecode"
)

var (
	ErrRunNotFound      = errors.New("run not found")
	ErrRunNotFinished   = errors.New("run has not completed")
	ErrUploadNotEnabled = errors.New("upload requested but no uploader is configured")
	ErrInterrupted      = errors.New("interrupted by restart")
)

// Request describes a run to submit. Empty paths fall back to the
// service's directories.
type Request struct {
	ManifestPath    string `json:"manifest_path"`
	VideoPath       string `json:"video_path"`
	OutputPath      string `json:"output_path,omitempty"`
	EDLPath         string `json:"edl_path,omitempty"`
	ThumbnailsDir   string `json:"thumbnails_dir,omitempty"`
	RendersDir      string `json:"renders_dir,omitempty"`
	IncludeIsolated bool   `json:"include_isolated"`
	Upload          bool   `json:"upload"`
}

// Result is everything a finished run produced.
type Result struct {
	Run      *Run                  `json:"run"`
	Manifest *manifest.Manifest    `json:"-"`
	Video    *media.VideoInfo      `json:"video"`
	Ranges   []StoredRange         `json:"ranges"`
	Uploads  []*cloud.UploadResult `json:"uploads,omitempty"`
}

// Dirs says where a run's thumbnails, clips and reports are written.
type Dirs struct {
	Thumbnails string
	Renders    string
	Reports    string
}

// forRun nests each directory under the run ID so concurrent history does
// not collide.
func (d Dirs) forRun(id string) Dirs {
	return Dirs{
		Thumbnails: filepath.Join(d.Thumbnails, id),
		Renders:    filepath.Join(d.Renders, id),
		Reports:    filepath.Join(d.Reports, id),
	}
}

// ReviewService is what the HTTP API needs from a Service.
type ReviewService interface {
	Ingest(ctx context.Context, r io.Reader) (int, error)
	Submit(ctx context.Context, req Request) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListRanges(ctx context.Context, runID string) ([]StoredRange, error)
	Export(ctx context.Context, runID string, req export.ExportRequest) (*export.ExportResponse, error)
}

type Service struct {
	repo        Repository
	annotations annotations.Repository
	ffmpeg      media.FFmpeg
	uploader    cloud.Uploader
	dirs        Dirs
	source      string
	logger      *slog.Logger
}

// NewService wires a review service. uploader may be nil, in which case
// runs that ask for upload fail.
func NewService(repo Repository, ann annotations.Repository, ff media.FFmpeg, uploader cloud.Uploader, dirs Dirs, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		annotations: ann,
		ffmpeg:      ff,
		uploader:    uploader,
		dirs:        dirs,
		source:      "baselight",
		logger:      logger,
	}
}

// SetAnnotationSource changes the source name Ingest stores records under.
func (s *Service) SetAnnotationSource(source string) {
	if source != "" {
		s.source = source
	}
}

// Ingest replaces the stored annotations for the configured source with
// the export read from r.
func (s *Service) Ingest(ctx context.Context, r io.Reader) (int, error) {
	records, err := annotations.ParseExport(r)
	if err != nil {
		return 0, err
	}
	return s.store(ctx, records)
}

// IngestFile is Ingest for an export on disk.
func (s *Service) IngestFile(ctx context.Context, path string) (int, error) {
	records, err := annotations.LoadExport(path)
	if err != nil {
		return 0, err
	}
	return s.store(ctx, records)
}

func (s *Service) store(ctx context.Context, records []reconcile.FrameRecord) (int, error) {
	n, err := s.annotations.ReplaceAll(ctx, s.source, records)
	if err != nil {
		return 0, fmt.Errorf("store annotations: %w", err)
	}
	s.logger.Info("annotations ingested", "source", s.source, "records", n)
	return n, nil
}

// Submit records a pending run for the runner to pick up.
func (s *Service) Submit(ctx context.Context, req Request) (*Run, error) {
	if strings.TrimSpace(req.ManifestPath) == "" {
		return nil, fmt.Errorf("manifest path is required")
	}
	if strings.TrimSpace(req.VideoPath) == "" {
		return nil, fmt.Errorf("video path is required")
	}
	if req.Upload && s.uploader == nil {
		return nil, ErrUploadNotEnabled
	}

	now := time.Now()
	run := &Run{
		ID:              NewID(),
		Status:          RunStatusPending,
		ManifestPath:    req.ManifestPath,
		VideoPath:       req.VideoPath,
		OutputPath:      req.OutputPath,
		EDLPath:         req.EDLPath,
		IncludeIsolated: req.IncludeIsolated,
		Upload:          req.Upload,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	s.logger.Info("run submitted", "run_id", run.ID, "manifest", run.ManifestPath, "video", run.VideoPath)
	return run, nil
}

// Run submits req and executes it immediately, writing into the request's
// directories when given.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	run, err := s.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	dirs := s.dirs.forRun(run.ID)
	if req.ThumbnailsDir != "" {
		dirs.Thumbnails = req.ThumbnailsDir
	}
	if req.RendersDir != "" {
		dirs.Renders = req.RendersDir
	}
	return s.execute(ctx, run, dirs)
}

// Execute runs a previously submitted run.
func (s *Service) Execute(ctx context.Context, runID string) (*Result, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return s.execute(ctx, run, s.dirs.forRun(run.ID))
}

func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.repo.GetRun(ctx, id)
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return s.repo.ListRuns(ctx, limit)
}

func (s *Service) ListRanges(ctx context.Context, runID string) ([]StoredRange, error) {
	return s.repo.ListRanges(ctx, runID)
}

func (s *Service) execute(ctx context.Context, run *Run, dirs Dirs) (*Result, error) {
	logger := logging.WithRunID(s.logger, run.ID)
	if err := s.repo.UpdateRunStatus(ctx, run.ID, RunStatusRunning, ""); err != nil {
		return nil, fmt.Errorf("mark running: %w", err)
	}

	res, err := s.pipeline(ctx, run, dirs, logger)
	if err != nil {
		logger.Error("run failed", "error", err)
		// the caller's context may be what failed; record the outcome regardless
		if uerr := s.repo.UpdateRunStatus(context.WithoutCancel(ctx), run.ID, RunStatusFailed, err.Error()); uerr != nil {
			logger.Error("failed to record run failure", "error", uerr)
		}
		return res, err
	}

	if err := s.repo.UpdateRunProgress(ctx, run.ID, 100); err != nil {
		return res, err
	}
	if err := s.repo.UpdateRunStatus(ctx, run.ID, RunStatusCompleted, ""); err != nil {
		return res, err
	}
	res.Run, _ = s.repo.GetRun(ctx, run.ID)
	logger.Info("run completed", "ranges", len(res.Ranges))
	return res, nil
}

func (s *Service) pipeline(ctx context.Context, run *Run, dirs Dirs, logger *slog.Logger) (*Result, error) {
	m, err := manifest.Load(run.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	info, err := s.ffmpeg.Probe(ctx, run.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("probe video: %w", err)
	}
	logger.Info("video probed", "frames", info.FrameCount, "fps", info.FPS)

	records, err := s.annotations.ListWithFramesAtMost(ctx, info.FrameCount)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	agg, err := reconcile.Aggregate(annotations.FrameRecords(records), info.FrameCount, m.Paths())
	if err != nil {
		return nil, fmt.Errorf("aggregate frames: %w", err)
	}
	ranges, err := reconcile.GroupAll(agg, info.FPS, reconcile.Options{IncludeIsolatedFrames: run.IncludeIsolated})
	if err != nil {
		return nil, fmt.Errorf("group frames: %w", err)
	}
	logger.Info("frames grouped", "locations", agg.Len(), "ranges", len(ranges))
	s.progress(ctx, run.ID, 20, logger)

	res := &Result{Run: run, Manifest: m, Video: info, Ranges: make([]StoredRange, len(ranges))}
	for i, rg := range ranges {
		res.Ranges[i] = StoredRange{FrameRange: rg, RunID: run.ID, Position: i}
	}

	if err := os.MkdirAll(dirs.Thumbnails, 0755); err != nil {
		return res, fmt.Errorf("create thumbnails dir: %w", err)
	}
	for i := range res.Ranges {
		rg := &res.Ranges[i]
		out := filepath.Join(dirs.Thumbnails, media.ThumbnailName(rg.SampledFrame))
		if err := s.ffmpeg.CaptureThumbnail(ctx, run.VideoPath, rg.SampledFrame, info.FPS, out); err != nil {
			return res, fmt.Errorf("thumbnail for %s: %w", rg.FrameRangeString(), err)
		}
		rg.ThumbnailPath = out
	}
	s.progress(ctx, run.ID, 50, logger)

	outputPath, edlPath := run.OutputPath, run.EDLPath
	if outputPath == "" {
		outputPath = filepath.Join(dirs.Reports, export.FileName(m.WorkOrder, export.FormatXLSX))
	}
	if edlPath == "" {
		edlPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "." + export.FormatEDL
	}
	if err := writeOutputs(res, outputPath, edlPath); err != nil {
		return res, err
	}
	logger.Info("report written", "output", outputPath, "edl", edlPath)
	s.progress(ctx, run.ID, 60, logger)

	if err := os.MkdirAll(dirs.Renders, 0755); err != nil {
		return res, fmt.Errorf("create renders dir: %w", err)
	}
	for i := range res.Ranges {
		rg := &res.Ranges[i]
		startMs, endMs, err := ClipSpan(rg.FrameRange, info.FPS)
		if err != nil {
			return res, fmt.Errorf("clip span for %s: %w", rg.FrameRangeString(), err)
		}
		out := filepath.Join(dirs.Renders, media.ClipName(rg.StartFrame, rg.EndFrame))
		if err := s.ffmpeg.RenderClip(ctx, run.VideoPath, startMs, endMs, out); err != nil {
			return res, fmt.Errorf("render %s: %w", rg.FrameRangeString(), err)
		}
		rg.ClipPath = out
		s.progress(ctx, run.ID, 60+30*(i+1)/len(res.Ranges), logger)
	}

	if err := s.repo.ReplaceRanges(ctx, run.ID, res.Ranges); err != nil {
		return res, fmt.Errorf("store ranges: %w", err)
	}
	if err := s.repo.UpdateRunResult(ctx, run.ID, m.WorkOrder, outputPath, edlPath, len(res.Ranges)); err != nil {
		return res, fmt.Errorf("store run result: %w", err)
	}

	if run.Upload {
		if s.uploader == nil {
			return res, ErrUploadNotEnabled
		}
		uploads, err := cloud.UploadDir(ctx, s.uploader, dirs.Renders, ".mp4")
		res.Uploads = uploads
		if err != nil {
			return res, fmt.Errorf("upload clips: %w", err)
		}
		logger.Info("clips uploaded", "count", len(uploads))
	}
	return res, nil
}

// Export writes a finished run's ranges again as a report or EDL into
// req.OutputDir.
func (s *Service) Export(ctx context.Context, runID string, req export.ExportRequest) (*export.ExportResponse, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	if run.Status != RunStatusCompleted {
		return nil, ErrRunNotFinished
	}
	if err := export.ValidateOutputDir(req.OutputDir); err != nil {
		return nil, err
	}

	stored, err := s.repo.ListRanges(ctx, runID)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(req.Format)
	title := export.SanitizeName(req.Title, 120)
	if title == "" {
		title = run.WorkOrder
	}
	outPath := filepath.Join(req.OutputDir, export.FileName(title, format))

	switch format {
	case export.FormatEDL:
		info, err := s.ffmpeg.Probe(ctx, run.VideoPath)
		if err != nil {
			return nil, fmt.Errorf("probe video: %w", err)
		}
		if err := export.WriteEDL(outPath, Ranges(stored), title, info.FPS); err != nil {
			return nil, err
		}
	case export.FormatXLSX:
		m, err := manifest.Load(run.ManifestPath)
		if err != nil {
			return nil, fmt.Errorf("load manifest: %w", err)
		}
		if err := export.WriteReport(outPath, buildReport(m, stored)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported export format %q", req.Format)
	}

	return &export.ExportResponse{
		Status:     "ok",
		Format:     format,
		OutputPath: outPath,
		RangeCount: len(stored),
	}, nil
}

// ClipSpan turns a range's timecodes into the millisecond span handed to
// the clip renderer. A single-frame range spans one frame duration.
func ClipSpan(rg reconcile.FrameRange, fps float64) (int64, int64, error) {
	startMs, err := timecode.TimecodeToMilliseconds(rg.StartTimecode, fps)
	if err != nil {
		return 0, 0, err
	}
	endMs, err := timecode.TimecodeToMilliseconds(rg.EndTimecode, fps)
	if err != nil {
		return 0, 0, err
	}
	if endMs <= startMs {
		endMs = startMs + int64(math.Ceil(1000/fps))
	}
	return startMs, endMs, nil
}

func writeOutputs(res *Result, outputPath, edlPath string) error {
	for _, p := range []string{outputPath, edlPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := export.WriteReport(outputPath, buildReport(res.Manifest, res.Ranges)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := export.WriteEDL(edlPath, Ranges(res.Ranges), res.Manifest.WorkOrder, res.Video.FPS); err != nil {
		return fmt.Errorf("write edl: %w", err)
	}
	return nil
}

func buildReport(m *manifest.Manifest, stored []StoredRange) export.Report {
	rows := make([]export.Row, len(stored))
	for i, s := range stored {
		rows[i] = export.Row{Range: s.FrameRange, ThumbnailPath: s.ThumbnailPath}
	}
	return export.Report{
		Header: export.Header{
			WorkOrder: m.WorkOrder,
			Producer:  m.Producer,
			Operator:  m.Operator,
			Job:       m.Job,
			Notes:     m.Notes,
		},
		Rows: rows,
	}
}

func (s *Service) progress(ctx context.Context, runID string, pct int, logger *slog.Logger) {
	if err := s.repo.UpdateRunProgress(ctx, runID, pct); err != nil {
		logger.Warn("failed to update progress", "progress", pct, "error", err)
	}
}
