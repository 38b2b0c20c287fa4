package transcoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func setup(t *testing.T, codec string, enc *fakeEncoder) (*Transcoder, string) {
	t.Helper()
	root := t.TempDir()
	cacheDir := filepath.Join(root, ".cache")
	if !EnsureCacheDir(cacheDir) {
		t.Fatalf("cache dir %s not writable", cacheDir)
	}

	src := filepath.Join(root, "cam1", "2024-05-01_12-00.mkv")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("hevc source bytes"), 0o644); err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	tr := New(Options{
		CacheDir:      cacheDir,
		Prober:        &fakeProber{codec: codec, duration: 10 * time.Second},
		Encoder:       enc,
		MaxConcurrent: 2,
		Enabled:       true,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tr.Shutdown(ctx)
	})
	return tr, src
}

func artifacts(t *testing.T, dir string) (done, partial []string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", dir, err)
	}
	for _, e := range entries {
		if isTempName(e.Name()) {
			partial = append(partial, e.Name())
		} else {
			done = append(done, e.Name())
		}
	}
	return done, partial
}

func TestResolveCompatibleServesOriginal(t *testing.T) {
	enc := &fakeEncoder{}
	tr, src := setup(t, CodecH264, enc)

	d, err := tr.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if d.Kind != ServeOriginal {
		t.Errorf("Kind = %v, want original", d.Kind)
	}
	if d.Path != src {
		t.Errorf("Path = %q, want %q", d.Path, src)
	}
	if enc.calls.Load() != 0 {
		t.Errorf("encoder called %d times for a compatible file", enc.calls.Load())
	}
	if done, _ := artifacts(t, tr.CacheDir()); len(done) != 0 {
		t.Errorf("cache should stay empty, got %v", done)
	}
}

func TestResolveUnknownCodecServesOriginal(t *testing.T) {
	enc := &fakeEncoder{}
	tr, src := setup(t, CodecUnknown, enc)

	d, err := tr.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if d.Kind != ServeOriginal {
		t.Errorf("Kind = %v, want original for a probe failure", d.Kind)
	}
}

func TestResolveMissingSource(t *testing.T) {
	tr, src := setup(t, CodecH265, &fakeEncoder{})

	_, err := tr.Resolve(context.Background(), src+".gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	_, err = tr.Resolve(context.Background(), filepath.Dir(src))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("directory err = %v, want ErrNotFound", err)
	}

	if _, err := tr.Status(context.Background(), src+".gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Status err = %v, want ErrNotFound", err)
	}
}

func TestResolveDisabledServesOriginal(t *testing.T) {
	enc := &fakeEncoder{}
	root := t.TempDir()
	src := filepath.Join(root, "clip.mkv")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := New(Options{
		CacheDir: filepath.Join(root, ".cache"),
		Prober:   &fakeProber{codec: CodecH265},
		Encoder:  enc,
		Enabled:  false,
	})
	defer tr.Shutdown(context.Background())

	d, err := tr.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if d.Kind != ServeOriginal {
		t.Errorf("Kind = %v, want original when disabled", d.Kind)
	}
	if enc.calls.Load() != 0 {
		t.Error("encoder must not run when transcoding is disabled")
	}
}

func TestResolveSingleFlight(t *testing.T) {
	enc := &fakeEncoder{gate: make(chan struct{})}
	tr, src := setup(t, CodecH265, enc)

	const n = 32
	var wg sync.WaitGroup
	decisions := make([]Decision, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i], errs[i] = tr.Resolve(context.Background(), src)
		}(i)
	}
	wg.Wait()

	started := 0
	for i := range decisions {
		if errs[i] != nil {
			t.Fatalf("Resolve() error: %v", errs[i])
		}
		if decisions[i].Kind != Converting {
			t.Errorf("decision %d = %v, want converting", i, decisions[i].Kind)
		}
		if decisions[i].Started {
			started++
		}
	}
	if started != 1 {
		t.Errorf("jobs started = %d, want 1", started)
	}

	st, err := tr.Status(context.Background(), src)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if st.State != StatusConverting {
		t.Errorf("Status = %v, want converting", st.State)
	}

	close(enc.gate)
	waitFor(t, "completed status", func() bool {
		st, _ := tr.Status(context.Background(), src)
		return st.State == StatusCompleted
	})

	if got := enc.calls.Load(); got != 1 {
		t.Errorf("encoder calls = %d, want 1", got)
	}

	done, partial := artifacts(t, tr.CacheDir())
	if len(done) != 1 || len(partial) != 0 {
		t.Fatalf("artifacts = %v, partial = %v; want exactly one artifact", done, partial)
	}
	if !strings.HasSuffix(done[0], "_h264.mp4") || !strings.HasPrefix(done[0], "2024-05-01_12-00_") {
		t.Errorf("unexpected artifact name %q", done[0])
	}

	for i := 0; i < 4; i++ {
		d, err := tr.Resolve(context.Background(), src)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if d.Kind != ServeCached {
			t.Errorf("after completion Kind = %v, want cached", d.Kind)
		}
		if filepath.Base(d.Path) != done[0] {
			t.Errorf("cached path = %q, want %q", d.Path, done[0])
		}
	}

	st, _ = tr.Status(context.Background(), src)
	if st.Progress != 100 {
		t.Errorf("completed progress = %d, want 100", st.Progress)
	}
}

func TestResolveModTimeInvalidatesCache(t *testing.T) {
	enc := &fakeEncoder{}
	tr, src := setup(t, CodecH265, enc)

	if _, err := tr.Resolve(context.Background(), src); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	waitFor(t, "first transcode", func() bool {
		st, _ := tr.Status(context.Background(), src)
		return st.State == StatusCompleted
	})

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(src, later, later); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	st, err := tr.Status(context.Background(), src)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if st.State != StatusReady {
		t.Errorf("status after re-record = %v, want ready", st.State)
	}

	d, err := tr.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if d.Kind != Converting || !d.Started {
		t.Errorf("decision = %+v, want a freshly started job", d)
	}

	waitFor(t, "second transcode", func() bool {
		st, _ := tr.Status(context.Background(), src)
		return st.State == StatusCompleted
	})
	if got := enc.calls.Load(); got != 2 {
		t.Errorf("encoder calls = %d, want 2", got)
	}
	if done, _ := artifacts(t, tr.CacheDir()); len(done) != 2 {
		t.Errorf("artifacts = %v, want old and new version", done)
	}
}

func TestFailedTranscodeCleansUpAndRetries(t *testing.T) {
	enc := &fakeEncoder{fail: true}
	tr, src := setup(t, CodecH265, enc)

	d, err := tr.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !d.Started {
		t.Fatal("expected the first request to start a job")
	}

	waitFor(t, "job removal", func() bool {
		return len(tr.Jobs()) == 0
	})

	done, partial := artifacts(t, tr.CacheDir())
	if len(done) != 0 || len(partial) != 0 {
		t.Errorf("failed job left files: done=%v partial=%v", done, partial)
	}

	st, _ := tr.Status(context.Background(), src)
	if st.State != StatusReady || st.Progress != 0 {
		t.Errorf("status after failure = %+v, want ready/0", st)
	}

	enc.fail = false
	d, err = tr.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("retry Resolve() error: %v", err)
	}
	if d.Kind != Converting || !d.Started {
		t.Errorf("retry decision = %+v, want a new job", d)
	}
	waitFor(t, "retry completion", func() bool {
		st, _ := tr.Status(context.Background(), src)
		return st.State == StatusCompleted
	})
}

func TestProgressReportedAndCapped(t *testing.T) {
	enc := &fakeEncoder{gate: make(chan struct{}), progress: []float64{10, 55.5, 30, 100}}
	tr, src := setup(t, CodecH265, enc)

	if _, err := tr.Resolve(context.Background(), src); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	waitFor(t, "progress", func() bool {
		st, _ := tr.Status(context.Background(), src)
		return st.Progress == 99
	})

	d, err := tr.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if d.Kind != Converting || d.Progress != 99 || d.Started {
		t.Errorf("decision while running = %+v", d)
	}

	close(enc.gate)
	waitFor(t, "completion", func() bool {
		st, _ := tr.Status(context.Background(), src)
		return st.State == StatusCompleted && st.Progress == 100
	})
}

func TestResolveForgetsStaleCompletedMarker(t *testing.T) {
	enc := &fakeEncoder{}
	tr, src := setup(t, CodecH265, enc)

	if _, err := tr.Resolve(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "completion", func() bool {
		st, _ := tr.Status(context.Background(), src)
		return st.State == StatusCompleted
	})

	done, _ := artifacts(t, tr.CacheDir())
	if err := os.Remove(filepath.Join(tr.CacheDir(), done[0])); err != nil {
		t.Fatal(err)
	}

	d, err := tr.Resolve(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != Converting || !d.Started {
		t.Errorf("decision = %+v, want a restarted job", d)
	}
}

func TestShutdownCancelsRunningJobs(t *testing.T) {
	enc := &fakeEncoder{gate: make(chan struct{})}
	tr, src := setup(t, CodecH265, enc)

	if _, err := tr.Resolve(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "encoder start", func() bool { return enc.calls.Load() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	if jobs := tr.Jobs(); len(jobs) != 0 {
		t.Errorf("jobs after shutdown = %+v", jobs)
	}
	if done, partial := artifacts(t, tr.CacheDir()); len(done)+len(partial) != 0 {
		t.Errorf("files after shutdown: %v %v", done, partial)
	}
}

func TestDecisionKindString(t *testing.T) {
	tests := map[DecisionKind]string{
		ServeOriginal:   "original",
		ServeCached:     "cached",
		Converting:      "converting",
		DecisionKind(9): "DecisionKind(9)",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
