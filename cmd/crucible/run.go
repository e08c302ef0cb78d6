package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heimdex/crucible/internal/media"
	"github.com/heimdex/crucible/internal/review"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		exportPath string
		req        review.Request
		dryRun     bool
		dryFrames  int
		dryFPS     float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile flagged frames and build the review report, thumbnails and clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.ManifestPath == "" || req.VideoPath == "" {
				return fmt.Errorf("--xytech and --video are required")
			}

			var opts appOptions
			if dryRun {
				if dryFrames <= 0 || dryFPS <= 0 {
					return fmt.Errorf("--dry-run needs --frames and --fps")
				}
				opts.stub = &media.VideoInfo{FrameCount: dryFrames, FPS: dryFPS, Duration: float64(dryFrames) / dryFPS}
			}

			a, err := ctx.openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("include-isolated") {
				req.IncludeIsolated = a.cfg.Review.IncludeIsolatedFrames
			}

			if exportPath != "" {
				n, err := a.service.IngestFile(cmd.Context(), exportPath)
				if err != nil {
					return err
				}
				a.logger.Info("ingested frame export", "path", exportPath, "records", n)
			}

			result, err := a.service.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&exportPath, "baselight", "", "Ingest this frame export before running")
	flags.StringVar(&req.ManifestPath, "xytech", "", "Work-order manifest file")
	flags.StringVar(&req.VideoPath, "video", "", "Source video to review")
	flags.StringVar(&req.OutputPath, "output-xls", "", "Report path (defaults under the data directory)")
	flags.StringVar(&req.EDLPath, "edl", "", "EDL path (defaults next to the report)")
	flags.StringVar(&req.ThumbnailsDir, "thumbnails", "", "Thumbnail directory override")
	flags.StringVar(&req.RendersDir, "renders", "", "Clip directory override")
	flags.BoolVar(&req.Upload, "upload", false, "Upload rendered clips to the configured destinations")
	flags.BoolVar(&req.IncludeIsolated, "include-isolated", false, "Keep single-frame ranges")
	flags.BoolVar(&dryRun, "dry-run", false, "Skip ffmpeg and ffprobe; write placeholder artifacts")
	flags.IntVar(&dryFrames, "frames", 0, "Frame count reported in --dry-run")
	flags.Float64Var(&dryFPS, "fps", 0, "Frame rate reported in --dry-run")

	return cmd
}

func printResult(w io.Writer, result *review.Result) {
	rows := make([][]string, 0, len(result.Ranges))
	for _, r := range result.Ranges {
		rows = append(rows, []string{
			r.Location,
			r.FrameRangeString(),
			r.TimecodeRangeString(),
			strconv.Itoa(r.SampledFrame),
			filepath.Base(r.ClipPath),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable(
			[]string{"Location", "Frames", "Timecode", "Sampled", "Clip"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
		))
	}

	run := result.Run
	fmt.Fprintf(w, "Run %s %s: %s\n", run.ID, run.Status, pluralize(len(result.Ranges), "range"))
	if run.OutputPath != "" {
		fmt.Fprintf(w, "Report: %s\n", run.OutputPath)
	}
	if run.EDLPath != "" {
		fmt.Fprintf(w, "EDL:    %s\n", run.EDLPath)
	}
	if len(result.Uploads) > 0 {
		var total int64
		for _, u := range result.Uploads {
			total += u.Size
		}
		fmt.Fprintf(w, "Uploaded %s (%s)\n", pluralize(len(result.Uploads), "clip"), humanize.Bytes(uint64(total)))
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}
