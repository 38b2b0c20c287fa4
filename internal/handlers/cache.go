package handlers

import (
	"net/http"

	"recview/internal/logging"
)

// ClearCacheResponse reports the outcome of a cache clear.
type ClearCacheResponse struct {
	Success    bool  `json:"success"`
	FreedBytes int64 `json:"freedBytes"`
}

// ClearCache deletes finished transcodes. Running jobs are not affected.
// POST /api/cache/clear
func (h *Handlers) ClearCache(w http.ResponseWriter, _ *http.Request) {
	freedBytes, err := h.transcoder.ClearCache()
	if err != nil {
		logging.Error("Failed to clear transcode cache: %v", err)
		http.Error(w, "Failed to clear transcode cache", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusOK, ClearCacheResponse{
		Success:    true,
		FreedBytes: freedBytes,
	})
}
