package handlers

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"recview/internal/catalog"
	"recview/internal/filesystem"
	"recview/internal/logging"
	"recview/internal/mediatypes"
	"recview/internal/transcoder"
)

// Config is the immutable per-server configuration shared by all handlers.
type Config struct {
	// MediaDir is the absolute root of the served tree.
	MediaDir string
	// Template is the listing page shell. Empty uses the embedded default.
	Template string
	// StartTime is reported as uptime by the health check.
	StartTime time.Time
}

// Handlers serves the listing, playback, status and maintenance routes.
type Handlers struct {
	config     Config
	walker     *catalog.Walker
	transcoder *transcoder.Transcoder
	page       *page
}

// New creates the handlers. The transcoder's prober also labels codecs in
// the listing.
func New(config Config, trans *transcoder.Transcoder) *Handlers {
	if config.StartTime.IsZero() {
		config.StartTime = time.Now()
	}
	return &Handlers{
		config:     config,
		walker:     catalog.NewWalker(config.MediaDir, trans.Prober()),
		transcoder: trans,
		page:       newPage(config.Template),
	}
}

// Router returns a router with the application routes. The router does not
// clean paths; traversal is answered with a 404 by the containment check.
func (h *Handlers) Router() *mux.Router {
	router := mux.NewRouter().SkipClean(true)
	router.HandleFunc("/", h.ListDirectory).Methods(http.MethodGet, http.MethodHead).Name("listing")
	router.HandleFunc("/videos/{path:.*}", h.StreamVideo).Methods(http.MethodGet, http.MethodHead).Name("video")
	router.HandleFunc("/status/{path:.*}", h.GetStatus).Methods(http.MethodGet).Name("status")
	router.HandleFunc("/api/cache/clear", h.ClearCache).Methods(http.MethodPost).Name("cache-clear")
	router.NotFoundHandler = http.HandlerFunc(notFound)
	return router
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Not found", http.StatusNotFound)
}

// resolveVideo maps a request path onto a video file under the media root.
// It writes a 404 and returns false for anything else.
func (h *Handlers) resolveVideo(w http.ResponseWriter, r *http.Request, rel string) (string, bool) {
	abs, err := catalog.Resolve(h.config.MediaDir, rel)
	if err != nil {
		logRejected(r, rel, err)
		notFound(w, r)
		return "", false
	}

	info, err := filesystem.StatWithRetry(abs, filesystem.DefaultRetryConfig())
	if err != nil || !info.Mode().IsRegular() || !mediatypes.IsVideo(abs) {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn("Failed to stat %s: %v", abs, err)
		}
		notFound(w, r)
		return "", false
	}
	return abs, true
}

func logRejected(r *http.Request, rel string, err error) {
	if errors.Is(err, catalog.ErrOutsideRoot) {
		logging.Warn("Rejected path outside media root from %s: %q", r.RemoteAddr, rel)
		return
	}
	logging.Debug("Rejected path %q: %v", rel, err)
}
