package mediatypes

import (
	"path/filepath"
	"strings"
)

// EntryKind distinguishes directories from files in a listing.
type EntryKind string

const (
	// KindDirectory represents a directory.
	KindDirectory EntryKind = "directory"
	// KindFile represents a playable video file.
	KindFile EntryKind = "file"
)

// VideoExtensions maps file extensions to whether they are listed as recordings.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
	".flv":  true,
	".wmv":  true,
}

// MimeTypes maps video extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// Ext returns the lowercase extension of name including the leading dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsVideo reports whether name has a recognized video container extension.
func IsVideo(name string) bool {
	return VideoExtensions[Ext(name)]
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mp4").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
