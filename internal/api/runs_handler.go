package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/heimdex/crucible/internal/export"
	"github.com/heimdex/crucible/internal/playback"
	"github.com/heimdex/crucible/internal/review"
)

const maxExportBytes = 32 << 20

func ingestHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := http.MaxBytesReader(w, r.Body, maxExportBytes)
		n, err := cfg.Service.Ingest(r.Context(), body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteError(w, http.StatusRequestEntityTooLarge, "export too large", "BAD_REQUEST")
				return
			}
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, IngestResponse{Records: n})
	}
}

func listRunsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		runs, err := cfg.Service.ListRuns(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list runs", "INTERNAL_ERROR")
			return
		}

		resp := RunsResponse{Runs: make([]RunResponse, len(runs))}
		for i, run := range runs {
			resp.Runs[i] = RunToResponse(run)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func submitRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req review.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		// directory overrides are a CLI feature; queued runs use the configured dirs
		req.ThumbnailsDir, req.RendersDir = "", ""

		run, err := cfg.Service.Submit(r.Context(), req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusAccepted, SubmitRunResponse{RunID: run.ID})
	}
}

func getRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := loadRun(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, RunToResponse(run))
	}
}

func listRangesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := loadRun(w, r, cfg)
		if !ok {
			return
		}

		ranges, err := cfg.Service.ListRanges(r.Context(), run.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := RangesResponse{Ranges: make([]RangeResponse, len(ranges))}
		for i, rg := range ranges {
			resp.Ranges[i] = RangeToResponse(rg)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func exportRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		format := strings.ToLower(req.Format)
		if format != export.FormatEDL && format != export.FormatXLSX {
			WriteError(w, http.StatusBadRequest, "format must be edl or xlsx", "BAD_REQUEST")
			return
		}

		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		resp, err := cfg.Service.Export(r.Context(), chi.URLParam(r, "id"), req)
		switch {
		case errors.Is(err, review.ErrRunNotFound):
			WriteError(w, http.StatusNotFound, "run not found", "NOT_FOUND")
		case errors.Is(err, review.ErrRunNotFinished):
			WriteError(w, http.StatusConflict, err.Error(), "CONFLICT")
		case err != nil:
			cfg.Logger.Error("export failed", "run_id", chi.URLParam(r, "id"), "error", err)
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		default:
			WriteJSON(w, http.StatusOK, resp)
		}
	}
}

func clipPath(s review.StoredRange) string      { return s.ClipPath }
func thumbnailPath(s review.StoredRange) string { return s.ThumbnailPath }

// artifactHandler serves a clip or thumbnail that belongs to one of the
// run's stored ranges. Only files the run recorded are reachable.
func artifactHandler(cfg ServerConfig, pathOf func(review.StoredRange) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := playback.ValidateName(name); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		run, ok := loadRun(w, r, cfg)
		if !ok {
			return
		}

		ranges, err := cfg.Service.ListRanges(r.Context(), run.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		for _, rg := range ranges {
			p := pathOf(rg)
			if p != "" && filepath.Base(p) == name {
				if err := cfg.PlaybackServer.ServeFile(w, r, p); err != nil {
					cfg.Logger.Error("playback error", "error", err, "run_id", run.ID, "name", name)
				}
				return
			}
		}
		WriteError(w, http.StatusNotFound, "artifact not found", "NOT_FOUND")
	}
}

func loadRun(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*review.Run, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "run id required", "BAD_REQUEST")
		return nil, false
	}

	run, err := cfg.Service.GetRun(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return nil, false
	}
	if run == nil {
		WriteError(w, http.StatusNotFound, "run not found", "NOT_FOUND")
		return nil, false
	}
	return run, true
}
