package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the smallest body that is compressed
	MinSize int
	// CompressibleTypes are the media types eligible for gzip
	CompressibleTypes []string
	// SkipPaths are prefixes never compressed; video bodies are range-served
	// and already compressed.
	SkipPaths []string
}

// DefaultCompressionConfig compresses the listing page and JSON responses.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:           1024,
		CompressibleTypes: []string{"text/html", "text/plain", "application/json"},
		SkipPaths:         []string{"/videos/"},
	}
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// gzipResponseWriter holds back the first MinSize bytes to decide whether the
// response is worth compressing.
type gzipResponseWriter struct {
	http.ResponseWriter
	config  CompressionConfig
	status  int
	buf     []byte
	decided bool
	gz      *gzip.Writer
}

func (g *gzipResponseWriter) WriteHeader(code int) {
	if !g.decided {
		g.status = code
	}
}

func (g *gzipResponseWriter) Write(p []byte) (int, error) {
	if g.decided {
		if g.gz != nil {
			return g.gz.Write(p)
		}
		return g.ResponseWriter.Write(p)
	}

	g.buf = append(g.buf, p...)
	if len(g.buf) >= g.config.MinSize {
		if err := g.decide(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (g *gzipResponseWriter) compressible() bool {
	h := g.Header()
	if h.Get("Content-Encoding") != "" || h.Get("Content-Range") != "" {
		return false
	}
	mediaType, _, _ := strings.Cut(h.Get("Content-Type"), ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, t := range g.config.CompressibleTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

// decide writes the header and any buffered bytes, compressed or not.
func (g *gzipResponseWriter) decide() error {
	g.decided = true

	if len(g.buf) >= g.config.MinSize && g.compressible() {
		h := g.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")

		g.gz = gzipWriterPool.Get().(*gzip.Writer)
		g.gz.Reset(g.ResponseWriter)
	}

	g.ResponseWriter.WriteHeader(g.status)

	var err error
	if len(g.buf) > 0 {
		if g.gz != nil {
			_, err = g.gz.Write(g.buf)
		} else {
			_, err = g.ResponseWriter.Write(g.buf)
		}
	}
	g.buf = nil
	return err
}

func (g *gzipResponseWriter) Close() error {
	if !g.decided {
		if err := g.decide(); err != nil {
			return err
		}
	}
	if g.gz == nil {
		return nil
	}
	err := g.gz.Close()
	gzipWriterPool.Put(g.gz)
	g.gz = nil
	return err
}

func (g *gzipResponseWriter) Flush() {
	if !g.decided {
		_ = g.decide()
	}
	if g.gz != nil {
		_ = g.gz.Flush()
	}
	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Compression returns middleware that gzips eligible responses for clients
// that accept it.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			for _, prefix := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			gzw := &gzipResponseWriter{ResponseWriter: w, config: config, status: http.StatusOK}
			defer gzw.Close()

			next.ServeHTTP(gzw, r)
		})
	}
}
