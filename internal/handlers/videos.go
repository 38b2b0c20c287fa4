package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"recview/internal/logging"
	"recview/internal/streaming"
	"recview/internal/transcoder"
)

// retryAfterSeconds is suggested to clients polling a running transcode.
const retryAfterSeconds = "2"

// ConvertingResponse is the 202 body sent while a transcode runs.
type ConvertingResponse struct {
	Status   transcoder.StatusKind `json:"status"`
	Progress int                   `json:"progress"`
	Message  string                `json:"message"`
	JobID    string                `json:"jobId,omitempty"`
}

// StreamVideo serves a recording for playback, or the original as a download
// with ?download=1. While a transcode for the file runs it answers 202 with
// the progress instead.
// GET|HEAD /videos/{path}
func (h *Handlers) StreamVideo(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]

	abs, ok := h.resolveVideo(w, r, rel)
	if !ok {
		return
	}

	if r.URL.Query().Get("download") == "1" {
		h.serve(w, r, abs, streaming.ServeOptions{
			Attachment: true,
			FileName:   filepath.Base(abs),
			Source:     "download",
		})
		return
	}

	decision, err := h.transcoder.Resolve(r.Context(), abs)
	if err != nil {
		if errors.Is(err, transcoder.ErrNotFound) {
			notFound(w, r)
			return
		}
		logging.Error("Failed to resolve %s: %v", rel, err)
		http.Error(w, "Failed to prepare video", http.StatusInternalServerError)
		return
	}

	switch decision.Kind {
	case transcoder.Converting:
		w.Header().Set("Retry-After", retryAfterSeconds)
		message := "Video is being converted for browser playback"
		if decision.Started {
			message = "Conversion started for browser playback"
		}
		writeJSONStatus(w, http.StatusAccepted, ConvertingResponse{
			Status:   transcoder.StatusConverting,
			Progress: decision.Progress,
			Message:  message,
			JobID:    decision.JobID,
		})
	case transcoder.ServeCached:
		h.serve(w, r, decision.Path, streaming.ServeOptions{Source: "cached"})
	default:
		h.serve(w, r, decision.Path, streaming.ServeOptions{Source: "original"})
	}
}

func (h *Handlers) serve(w http.ResponseWriter, r *http.Request, path string, opts streaming.ServeOptions) {
	if err := streaming.ServeFile(w, r, path, opts); err != nil {
		if errors.Is(err, streaming.ErrUnsatisfiable) {
			logging.Debug("Unsatisfiable range %q for %s", r.Header.Get("Range"), filepath.Base(path))
			return
		}
		logging.Warn("Failed to stream %s: %v", filepath.Base(path), err)
	}
}

// GetStatus reports the conversion state of a recording without starting
// anything.
// GET /status/{path}
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]

	abs, ok := h.resolveVideo(w, r, rel)
	if !ok {
		return
	}

	status, err := h.transcoder.Status(r.Context(), abs)
	if err != nil {
		if errors.Is(err, transcoder.ErrNotFound) {
			notFound(w, r)
			return
		}
		logging.Error("Failed to read status of %s: %v", rel, err)
		http.Error(w, "Failed to read status", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusOK, status)
}
