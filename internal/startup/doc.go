// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Settings are resolved by viper in this order: command line flag, environment
// variable, config file (--config), default. [NewViper] binds the environment
// and defaults, [Init] adds the flags to a cobra command, and [LoadConfig]
// validates the result into an immutable [Config].
//
//   - MEDIA_DIR: root of the recordings tree (default: ./recordings)
//   - PORT: HTTP server port (default: 9596)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: enable or disable the metrics server (default: true)
//   - AUTH_USERNAME, AUTH_PASSWORD_HASH: shared Basic auth credential; both
//     empty disables auth. Generate the hash with cmd/hashpw.
//   - AUTH_REALM: Basic auth realm (default: Video Server)
//   - TEMPLATE_PATH: HTML shell for the listing page (default: embedded)
//   - FFMPEG_BINARY, FFPROBE_BINARY: tool paths (default: from PATH)
//   - PROBE_TIMEOUT: upper bound for one ffprobe run (default: 10s)
//   - TRANSCODE_WORKERS: concurrent transcodes (default: derived from CPUs)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FILE: additional rotating log file
//   - LOG_STATIC_FILES: log static asset requests (default: false)
//   - LOG_HEALTH_CHECKS: log health check requests (default: true)
//
// Transcoded files live in MEDIA_DIR/.cache. Transcoding is disabled when that
// directory cannot be written.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// [LogTranscoderInit], [LogHTTPRoutes], [LogServerStarted] and the shutdown
// helpers print the sectioned startup and shutdown log.
package startup
