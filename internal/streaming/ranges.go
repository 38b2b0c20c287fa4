package streaming

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"recview/internal/filesystem"
	"recview/internal/logging"
	"recview/internal/mediatypes"
	"recview/internal/metrics"
)

// ErrUnsatisfiable is returned for Range headers that cannot be served:
// malformed, multi-range, or starting at or past the end of the file.
var ErrUnsatisfiable = errors.New("range not satisfiable")

// Range is an inclusive byte range.
type Range struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for a file of size bytes.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange parses a single "bytes=start-end" range against a file of size
// bytes. An empty end means end of file; an empty start means the last N bytes.
// The end is clamped to size-1.
func ParseRange(header string, size int64) (Range, error) {
	byteRange, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || strings.Contains(byteRange, ",") {
		return Range{}, ErrUnsatisfiable
	}

	startStr, endStr, ok := strings.Cut(byteRange, "-")
	if !ok {
		return Range{}, ErrUnsatisfiable
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 || size == 0 {
			return Range{}, ErrUnsatisfiable
		}
		n = min(n, size)
		return Range{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return Range{}, ErrUnsatisfiable
	}

	end := size - 1
	if endStr != "" {
		e, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || e < start {
			return Range{}, ErrUnsatisfiable
		}
		end = min(e, end)
	}

	return Range{Start: start, End: end}, nil
}

// ServeOptions controls how ServeFile presents a file.
type ServeOptions struct {
	// Attachment sets Content-Disposition so browsers save instead of play.
	Attachment bool
	// FileName is the download name; defaults to the base name of the path.
	FileName string
	// Source labels the stream bytes metric: "original", "cached" or "download".
	Source string
	// Writer overrides DefaultWriterConfig.
	Writer *WriterConfig
}

// ServeFile writes path to w, honoring a single Range header.
//
// It answers 200 without a Range header, 206 with a satisfiable one and 416
// otherwise. HEAD requests get headers only. A client that disconnects mid-body
// is not an error. The returned error is for logging; a response has always
// been written.
func ServeFile(w http.ResponseWriter, r *http.Request, path string, opts ServeOptions) error {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to open file", http.StatusInternalServerError)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "Failed to stat file", http.StatusInternalServerError)
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		http.Error(w, "Not found", http.StatusNotFound)
		return fmt.Errorf("%s is a directory", path)
	}
	size := info.Size()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", mediatypes.GetMimeType(mediatypes.Ext(path)))
	h.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	if opts.Attachment {
		name := opts.FileName
		if name == "" {
			name = filepath.Base(path)
		}
		h.Set("Content-Disposition", attachmentDisposition(name))
	}

	rng := Range{Start: 0, End: size - 1}
	status := http.StatusOK

	if header := r.Header.Get("Range"); header != "" {
		rng, err = ParseRange(header, size)
		if err != nil {
			h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			metrics.StreamResponsesTotal.WithLabelValues("416").Inc()
			return err
		}
		status = http.StatusPartialContent
		h.Set("Content-Range", rng.ContentRange(size))
	}

	length := max(rng.Length(), 0)
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)
	metrics.StreamResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()

	if r.Method == http.MethodHead || length == 0 {
		return nil
	}

	if rng.Start > 0 {
		if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
			return fmt.Errorf("seek %s: %w", path, err)
		}
	}

	config := DefaultWriterConfig()
	if opts.Writer != nil {
		config = *opts.Writer
	}
	tw := NewTimeoutWriter(r.Context(), w, config)
	defer tw.Close()

	chunk := config.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	_, err = io.CopyBuffer(tw, io.LimitReader(f, length), make([]byte, chunk))

	written, elapsed := tw.Stats()
	source := opts.Source
	if source == "" {
		source = "original"
	}
	metrics.StreamBytesTotal.WithLabelValues(source).Add(float64(written))

	if err != nil {
		if IsDisconnect(err) {
			metrics.StreamClientDisconnects.Inc()
			logging.Debug("Client left %s after %d/%d bytes in %v: %v", filepath.Base(path), written, length, elapsed, err)
			return nil
		}
		return fmt.Errorf("stream %s: %w", path, err)
	}

	logging.Debug("Streamed %s [%d-%d] %d bytes in %v", filepath.Base(path), rng.Start, rng.End, written, elapsed)
	return nil
}

func attachmentDisposition(name string) string {
	name = strings.NewReplacer(`"`, "_", `\`, "_", "\r", "", "\n", "").Replace(name)
	return fmt.Sprintf(`attachment; filename="%s"`, name)
}
