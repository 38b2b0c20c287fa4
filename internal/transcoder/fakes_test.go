package transcoder

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeProber struct {
	codec    string
	duration time.Duration
}

func (p *fakeProber) Codec(context.Context, string) string { return p.codec }

func (p *fakeProber) Duration(context.Context, string) time.Duration { return p.duration }

// fakeEncoder writes a small artifact. When gate is set, Encode blocks until
// it is closed or the context ends.
type fakeEncoder struct {
	calls    atomic.Int32
	gate     chan struct{}
	fail     bool
	progress []float64

	mu   sync.Mutex
	dsts []string
}

func (e *fakeEncoder) Encode(ctx context.Context, _, dst string, _ time.Duration, progress func(float64)) error {
	e.calls.Add(1)
	e.mu.Lock()
	e.dsts = append(e.dsts, dst)
	e.mu.Unlock()

	if err := os.WriteFile(dst, []byte("partial"), 0o644); err != nil {
		return err
	}
	for _, p := range e.progress {
		progress(p)
	}

	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if e.fail {
		return errors.New("encoder exploded")
	}
	return os.WriteFile(dst, []byte("h264 artifact"), 0o644)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
