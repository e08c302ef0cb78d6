package api

import (
	"net/http"
	"strconv"

	"github.com/heimdex/crucible/internal/timecode"
)

func parseFPS(r *http.Request) (float64, error) {
	fps, err := strconv.ParseFloat(r.URL.Query().Get("fps"), 64)
	if err != nil {
		return 0, timecode.ErrInvalidFPS
	}
	return fps, timecode.ValidateFPS(fps)
}

func frameToTimecodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, err := strconv.Atoi(r.URL.Query().Get("frame"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "frame must be an integer", "BAD_REQUEST")
			return
		}
		fps, err := parseFPS(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		tc, err := timecode.FrameToTimecode(frame, fps)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, TimecodeResponse{Frame: &frame, FPS: fps, Timecode: tc})
	}
}

func timecodeToMillisecondsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc := r.URL.Query().Get("timecode")
		fps, err := parseFPS(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		ms, err := timecode.TimecodeToMilliseconds(tc, fps)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, TimecodeResponse{FPS: fps, Timecode: tc, Milliseconds: &ms})
	}
}

func durationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ms, err := strconv.ParseInt(r.URL.Query().Get("ms"), 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "ms must be an integer", "BAD_REQUEST")
			return
		}

		d, err := timecode.MillisecondsToTimecode(ms)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, TimecodeResponse{Milliseconds: &ms, Duration: d})
	}
}
