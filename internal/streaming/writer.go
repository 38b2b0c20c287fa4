package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"syscall"
	"time"

	"recview/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write, or the gap between writes,
	// exceeded the configured timeout. Usually a client reading too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the request context was canceled before
	// the body was fully written.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the writer was closed.
	ErrStreamCanceled = errors.New("stream canceled")
)

// WriterConfig configures a TimeoutWriter.
type WriterConfig struct {
	// WriteTimeout bounds a single chunk write.
	WriteTimeout time.Duration
	// IdleTimeout bounds the time between successful writes (0 disables).
	IdleTimeout time.Duration
	// ChunkSize splits large writes; each chunk is flushed (0 disables).
	ChunkSize int
}

// DefaultChunkSize is the body copy and flush unit for video responses.
const DefaultChunkSize = 256 * 1024

// DefaultWriterConfig returns the settings used for video responses.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    DefaultChunkSize,
	}
}

// TimeoutWriter wraps a response body writer so that a stalled or vanished
// client releases the handler goroutine instead of holding it forever.
type TimeoutWriter struct {
	w       io.Writer
	flusher http.Flusher
	ctx     context.Context
	cancel  context.CancelCauseFunc
	config  WriterConfig

	mu        sync.Mutex
	start     time.Time
	lastWrite time.Time
	written   int64
	closed    bool
}

// NewTimeoutWriter creates a writer bound to ctx, normally the request context.
func NewTimeoutWriter(ctx context.Context, w io.Writer, config WriterConfig) *TimeoutWriter {
	wctx, cancel := context.WithCancelCause(ctx)
	now := time.Now()

	tw := &TimeoutWriter{
		w:         w,
		ctx:       wctx,
		cancel:    cancel,
		config:    config,
		start:     now,
		lastWrite: now,
	}
	if f, ok := w.(http.Flusher); ok {
		tw.flusher = f
	}

	if config.IdleTimeout > 0 {
		go tw.watchIdle()
	}
	return tw
}

// Write implements io.Writer.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return 0, ErrStreamCanceled
	}

	size := tw.config.ChunkSize
	if size <= 0 {
		size = len(p)
	}

	total := 0
	for len(p) > 0 {
		if err := tw.ctx.Err(); err != nil {
			return total, tw.contextError()
		}

		n := min(size, len(p))
		written, err := tw.writeChunk(p[:n])
		total += written
		if err != nil {
			return total, err
		}
		p = p[n:]

		if tw.flusher != nil {
			tw.flusher.Flush()
		}
	}
	return total, nil
}

func (tw *TimeoutWriter) writeChunk(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)

	go func() {
		n, err := tw.w.Write(p)
		done <- result{n, err}
	}()

	timer := time.NewTimer(tw.writeTimeout())
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err == nil {
			tw.mu.Lock()
			tw.lastWrite = time.Now()
			tw.written += int64(res.n)
			tw.mu.Unlock()
		}
		return res.n, res.err
	case <-timer.C:
		tw.cancel(ErrWriteTimeout)
		return 0, ErrWriteTimeout
	case <-tw.ctx.Done():
		return 0, tw.contextError()
	}
}

func (tw *TimeoutWriter) writeTimeout() time.Duration {
	if tw.config.WriteTimeout > 0 {
		return tw.config.WriteTimeout
	}
	return DefaultWriterConfig().WriteTimeout
}

func (tw *TimeoutWriter) watchIdle() {
	ticker := time.NewTicker(max(tw.config.IdleTimeout/4, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tw.mu.Lock()
			idle := time.Since(tw.lastWrite)
			tw.mu.Unlock()

			if idle > tw.config.IdleTimeout {
				logging.Warn("Stream idle for %v, aborting", idle)
				tw.cancel(ErrWriteTimeout)
				return
			}
		case <-tw.ctx.Done():
			return
		}
	}
}

// contextError maps the cancel cause to one of the package sentinels.
func (tw *TimeoutWriter) contextError() error {
	cause := context.Cause(tw.ctx)
	switch {
	case errors.Is(cause, ErrWriteTimeout), errors.Is(cause, ErrStreamCanceled):
		return cause
	case errors.Is(cause, context.DeadlineExceeded):
		return ErrWriteTimeout
	default:
		return ErrClientGone
	}
}

// Close stops the idle watcher. Later writes fail with ErrStreamCanceled.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if !tw.closed {
		tw.closed = true
		tw.cancel(ErrStreamCanceled)
	}
	return nil
}

// Stats returns the bytes written and the time since the writer was created.
func (tw *TimeoutWriter) Stats() (int64, time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.written, time.Since(tw.start)
}

// IsDisconnect reports whether err means the client went away rather than a
// server-side failure.
func IsDisconnect(err error) bool {
	return errors.Is(err, ErrClientGone) ||
		errors.Is(err, ErrWriteTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
