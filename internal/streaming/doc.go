/*
Package streaming serves recording files over HTTP with byte-range support and
protection against stalled clients.

# Ranges

ParseRange accepts exactly one range per request:

	bytes=0-       whole file, answered as 206
	bytes=100-199  bytes 100 through 199
	bytes=-500     last 500 bytes

Multi-range requests, malformed headers and ranges starting at or beyond the
end of the file yield ErrUnsatisfiable, which ServeFile answers with 416 and
a Content-Range header carrying only the file size.

# Serving

	err := streaming.ServeFile(w, r, path, streaming.ServeOptions{Source: "cached"})

ServeFile sets Content-Type from the extension, Accept-Ranges, Content-Length
and, with Attachment, a Content-Disposition carrying the original file name.
HEAD requests receive headers only.

# Timeouts

Bodies are copied in DefaultChunkSize pieces through a TimeoutWriter bound to
the request context. Each chunk is flushed, each write is bounded by
WriteTimeout, and a stream with no progress for IdleTimeout is aborted. Seeking
in a video player cancels the previous request, so a client disconnect
(IsDisconnect) is logged at debug level and is not reported as an error.
*/
package streaming
