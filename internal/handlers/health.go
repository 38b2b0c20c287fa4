package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"recview/internal/logging"
	"recview/internal/startup"
	"recview/internal/transcoder"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Transcoder info
	TranscodingEnabled bool   `json:"transcodingEnabled"`
	RunningJobs        int    `json:"runningJobs"`
	CompletedJobs      int    `json:"completedJobs"`
	CacheBytes         int64  `json:"cacheBytes"`
	CacheSize          string `json:"cacheSize"`
	CacheFiles         int    `json:"cacheFiles"`
	CacheError         string `json:"cacheError,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. It is served on the
// metrics port without authentication.
// GET /healthz
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:             statusHealthy,
		Version:            startup.Version,
		Uptime:             time.Since(h.config.StartTime).Round(time.Second).String(),
		TranscodingEnabled: h.transcoder.IsEnabled(),
		GoVersion:          runtime.Version(),
		NumGoroutine:       runtime.NumGoroutine(),
	}

	for _, job := range h.transcoder.Jobs() {
		switch job.State {
		case transcoder.JobRunning:
			response.RunningJobs++
		case transcoder.JobCompleted:
			response.CompletedJobs++
		}
	}

	size, count, err := h.transcoder.CacheSize()
	if err != nil {
		logging.Warn("Health check could not size the cache: %v", err)
		response.Status = statusDegraded
		response.CacheError = err.Error()
	}
	response.CacheBytes = size
	response.CacheSize = humanize.IBytes(uint64(size))
	response.CacheFiles = count

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}
