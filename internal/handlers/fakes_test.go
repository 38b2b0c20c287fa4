package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"recview/internal/transcoder"
)

// fakeProber labels files by base name; anything unlisted is H.264.
type fakeProber struct {
	codecs map[string]string
}

func (p *fakeProber) Codec(_ context.Context, path string) string {
	if codec, ok := p.codecs[filepath.Base(path)]; ok {
		return codec
	}
	return transcoder.CodecH264
}

func (p *fakeProber) Duration(context.Context, string) time.Duration { return 10 * time.Second }

// fakeEncoder writes a fixed artifact once gate is closed.
type fakeEncoder struct {
	calls atomic.Int32
	gate  chan struct{}
}

func (e *fakeEncoder) Encode(ctx context.Context, _, dst string, _ time.Duration, progress func(float64)) error {
	e.calls.Add(1)
	progress(40)
	select {
	case <-e.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	return os.WriteFile(dst, []byte(artifactBody), 0o644)
}

const (
	clipBody     = "0123456789"
	hevcBody     = "hevc source bytes"
	artifactBody = "h264 artifact"
)

type testEnv struct {
	root    string
	trans   *transcoder.Transcoder
	encoder *fakeEncoder
	h       *Handlers
	router  http.Handler
}

// newTestEnv builds a media root with:
//
//	cam1/clip.mp4   H.264
//	cam1/hevc.mkv   H.265
//	cam1/notes.txt  not a video
//	cam2/           empty
//	.cache/         transcode cache
//
// and a secret.mp4 outside the root.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "recordings")
	files := map[string]string{
		"cam1/clip.mp4":  clipBody,
		"cam1/hevc.mkv":  hevcBody,
		"cam1/notes.txt": "not a video",
	}
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "cam2"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "secret.mp4"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	cacheDir := filepath.Join(root, ".cache")
	if !transcoder.EnsureCacheDir(cacheDir) {
		t.Fatalf("cache dir %s not writable", cacheDir)
	}

	enc := &fakeEncoder{gate: make(chan struct{})}
	trans := transcoder.New(transcoder.Options{
		CacheDir:      cacheDir,
		Prober:        &fakeProber{codecs: map[string]string{"hevc.mkv": transcoder.CodecH265}},
		Encoder:       enc,
		MaxConcurrent: 2,
		Enabled:       true,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trans.Shutdown(ctx)
	})

	h := New(Config{MediaDir: root}, trans)
	return &testEnv{root: root, trans: trans, encoder: enc, h: h, router: h.Router()}
}

func (e *testEnv) do(t *testing.T, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
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

func httptestRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
