// Package metrics provides Prometheus instrumentation for recview.
//
// All metrics are prefixed with "recview_" and registered on the default
// registry through promauto, so they are exported by promhttp.Handler on the
// metrics server.
//
// # Metric Categories
//
//   - HTTP: request totals, durations and in-flight gauge (middleware.Metrics)
//   - Streaming: bytes sent per source, response codes, client disconnects
//   - Transcoder: job lifecycle counters, job duration, playback decisions,
//     cache size and artifact count
//   - Probe: ffprobe duration and failures
//   - Auth: Basic authentication outcomes
//   - Filesystem: operation latency, errors and stale handle retries, labeled
//     by volume ("media" for recordings, "cache" for the transcode cache)
//
// InitializeMetrics pre-populates label combinations so dashboards see zero
// values before the first event.
package metrics
