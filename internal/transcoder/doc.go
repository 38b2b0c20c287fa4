// Package transcoder turns recordings that browsers cannot play into cached
// H.264 MP4 files.
//
// Resolve decides, per request, whether a source is streamed as is, served
// from the cache, or needs a transcode. Transcodes run in the background, one
// job per source version: the job is keyed by a hash of the absolute path and
// the modification time, so a re-recorded file gets a fresh artifact.
//
// Artifacts live in the cache directory as
//
//	<base>_<pathHash>_<modHash>_h264.mp4
//
// and are written under a .tmp- prefix until ffmpeg exits cleanly. Clients
// poll Status while a job runs; progress is parsed from ffmpeg's stderr and
// stays at or below 99 until the artifact is in place.
//
// ffprobe and ffmpeg must be installed; Prober and Encoder allow other
// implementations.
package transcoder
