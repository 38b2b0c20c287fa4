package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recview_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recview_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recview_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Streaming metrics
var (
	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recview_stream_bytes_total",
			Help: "Total number of body bytes streamed to clients",
		},
		[]string{"source"}, // "original", "cached", "download"
	)

	StreamResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recview_stream_responses_total",
			Help: "Total number of stream responses by status code class",
		},
		[]string{"status"}, // "200", "206", "416"
	)

	StreamClientDisconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recview_stream_client_disconnects_total",
			Help: "Total number of streams ended by the client before completion",
		},
	)
)

// Transcoder metrics
var (
	TranscoderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recview_transcoder_jobs_total",
			Help: "Total number of transcoding jobs",
		},
		[]string{"status"}, // "started", "completed", "failed"
	)

	TranscoderJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recview_transcoder_job_duration_seconds",
			Help:    "Transcoding job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	TranscoderJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recview_transcoder_jobs_in_progress",
			Help: "Number of transcoding jobs currently registered as running",
		},
	)

	TranscoderDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recview_transcoder_decisions_total",
			Help: "Playback decisions by outcome",
		},
		[]string{"decision"}, // "original", "cached", "converting", "started"
	)

	TranscodeCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recview_transcode_cache_size_bytes",
			Help: "Total size of the transcode cache in bytes",
		},
	)

	TranscodeCacheCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recview_transcode_cache_count",
			Help: "Number of artifacts in the transcode cache",
		},
	)
)

// Probe metrics
var (
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recview_probe_duration_seconds",
			Help:    "ffprobe invocation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"}, // "codec", "duration"
	)

	ProbeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recview_probe_failures_total",
			Help: "Total number of failed ffprobe invocations",
		},
		[]string{"kind"},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recview_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recview_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recview_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recview_filesystem_retry_attempts_total",
			Help: "Total number of retries after stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recview_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors",
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recview_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// Runtime metrics
var (
	GoMemoryLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recview_go_memory_limit_bytes",
			Help: "Soft memory limit applied to the Go runtime (0 when unset)",
		},
	)
)
