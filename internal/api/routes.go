package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/heimdex/crucible/internal/review"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Post("/annotations", ingestHandler(cfg))

		r.Get("/runs", listRunsHandler(cfg))
		r.Post("/runs", submitRunHandler(cfg))
		r.Get("/runs/{id}", getRunHandler(cfg))
		r.Get("/runs/{id}/ranges", listRangesHandler(cfg))
		r.Post("/runs/{id}/export", exportRunHandler(cfg))
		r.Get("/runs/{id}/clips/{name}", artifactHandler(cfg, clipPath))
		r.Get("/runs/{id}/thumbnails/{name}", artifactHandler(cfg, thumbnailPath))

		r.Get("/timecode/frame", frameToTimecodeHandler())
		r.Get("/timecode/ms", timecodeToMillisecondsHandler())
		r.Get("/timecode/duration", durationHandler())
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		runs, _ := cfg.Repository.ListRuns(ctx, 20)

		state := "idle"
		resp := StatusResponse{}

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		for _, run := range runs {
			switch run.Status {
			case review.RunStatusRunning:
				state = "running"
				resp.RunsRunning++
			case review.RunStatusPending:
				resp.RunsPending++
			case review.RunStatusFailed:
				if resp.LastError == "" {
					resp.LastError = run.Error
				}
			}
		}
		if cfg.Runner != nil {
			resp.ActiveRunID = cfg.Runner.ActiveRunID()
		}

		if resp.LastError != "" && state == "idle" {
			state = "error"
		}
		resp.State = state

		if cfg.Annotations != nil {
			resp.AnnotationsCount, _ = cfg.Annotations.Count(ctx)
		}

		if cfg.Doctor != nil {
			caps, err := cfg.Doctor.Get(ctx)
			if err == nil && caps != nil {
				resp.Tools = &ToolsResponse{
					FFmpeg:  caps.FFmpeg.Available,
					FFprobe: caps.FFprobe.Available,
				}
				if !caps.ProbedAt.IsZero() {
					resp.Tools.LastProbeAt = caps.ProbedAt.Format(time.RFC3339)
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func baseName(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Base(p)
}
