// Package catalog lists the recording tree under the media root and keeps
// every request path inside it.
//
// Resolve is the single gate between a URL path and the filesystem. Names
// starting with "." are reserved: they are never listed and never resolved,
// which keeps the transcode cache and partial outputs out of reach.
package catalog
