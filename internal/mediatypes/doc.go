// Package mediatypes holds the dependency-free definitions shared by the
// catalog, streaming and transcoder packages: which extensions count as
// recordings and which MIME type each one is served with.
//
// Use IsVideo to filter directory entries:
//
//	if mediatypes.IsVideo(entry.Name()) {
//	    // list it
//	}
//
// Use GetMimeType for Content-Type headers:
//
//	mimeType := mediatypes.GetMimeType(mediatypes.Ext(path)) // e.g., "video/mp4"
package mediatypes
