// Package handlers provides the HTTP handlers of the recording viewer.
//
// It includes handlers for:
//   - Directory listing rendered into an HTML shell
//   - Video playback and download with byte range support
//   - Transcode progress polling
//   - Transcode cache maintenance
//   - Health checks
//
// The listing shell is plain HTML with two placeholders, {{BREADCRUMBS}} and
// {{VIDEO_TABLE_ROWS}}, replaced by escaped fragments on every request.
//
// Playback goes through the transcoder: browser compatible recordings are
// streamed as they are, others are converted once in the background while
// clients poll /status/{path}.
package handlers
