package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"recview/internal/filesystem"
	"recview/internal/logging"
	"recview/internal/metrics"
	"recview/internal/workers"
)

// ErrNotFound is returned when the source file does not exist or is not a
// regular file.
var ErrNotFound = errors.New("source not found")

// DecisionKind says how a playback request should be answered.
type DecisionKind int

const (
	// ServeOriginal streams the source file unchanged.
	ServeOriginal DecisionKind = iota
	// ServeCached streams the transcoded artifact.
	ServeCached
	// Converting means a transcode is running; the client should poll.
	Converting
)

func (k DecisionKind) String() string {
	switch k {
	case ServeOriginal:
		return "original"
	case ServeCached:
		return "cached"
	case Converting:
		return "converting"
	default:
		return fmt.Sprintf("DecisionKind(%d)", int(k))
	}
}

// Decision is the outcome of Resolve.
type Decision struct {
	Kind DecisionKind
	// Path is the file to stream for ServeOriginal and ServeCached.
	Path string
	// Codec is the probed label of the source.
	Codec string
	// Progress and JobID are set for Converting.
	Progress int
	JobID    string
	// Started is true when this call launched the job.
	Started bool
}

// StatusKind is the externally visible conversion state of a source.
type StatusKind string

const (
	StatusReady      StatusKind = "ready"
	StatusConverting StatusKind = "converting"
	StatusCompleted  StatusKind = "completed"
)

// Status is the answer to a progress poll.
type Status struct {
	State    StatusKind `json:"status"`
	Progress int        `json:"progress"`
}

// Options configures a Transcoder.
type Options struct {
	// CacheDir holds artifacts; it is created if missing.
	CacheDir string
	Prober   Prober
	Encoder  Encoder
	// MaxConcurrent bounds running encodes; see workers.ForTranscode.
	MaxConcurrent int
	// Enabled is false when CacheDir is not writable. Sources that need
	// conversion are then served as they are.
	Enabled bool
}

// Transcoder decides how each source is served and runs background
// transcodes with at most one job per source version.
type Transcoder struct {
	cacheDir string
	enabled  bool
	prober   Prober
	encoder  Encoder
	registry *registry
	sem      *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// cache size is recomputed at most every cacheSizeTTL
	cacheMu         sync.Mutex
	cachedSize      int64
	cachedCount     int
	lastCacheUpdate atomic.Int64
}

// New creates a Transcoder. Call Shutdown to stop running encodes.
func New(opts Options) *Transcoder {
	if opts.Prober == nil {
		opts.Prober = &FFprobe{}
	}
	if opts.Encoder == nil {
		opts.Encoder = &FFmpeg{}
	}
	limit := workers.ForTranscode(opts.MaxConcurrent)

	ctx, cancel := context.WithCancel(context.Background())
	return &Transcoder{
		cacheDir: opts.CacheDir,
		enabled:  opts.Enabled && opts.CacheDir != "",
		prober:   opts.Prober,
		encoder:  opts.Encoder,
		registry: newRegistry(),
		sem:      semaphore.NewWeighted(int64(limit)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// IsEnabled reports whether transcoding is available.
func (t *Transcoder) IsEnabled() bool {
	return t.enabled
}

// CacheDir returns the artifact directory.
func (t *Transcoder) CacheDir() string {
	return t.cacheDir
}

// Prober returns the codec inspector, shared with the listing.
func (t *Transcoder) Prober() Prober {
	return t.prober
}

func (t *Transcoder) statSource(src string) (string, os.FileInfo, error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	info, err := filesystem.StatWithRetry(abs, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, ErrNotFound
		}
		return "", nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, ErrNotFound
	}
	return abs, info, nil
}

func (t *Transcoder) artifactPath(abs string, modTime time.Time) (CacheKey, string) {
	key := KeyFor(abs, modTime)
	return key, filepath.Join(t.cacheDir, ArtifactName(abs, key))
}

func fileExists(path string) bool {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	return err == nil && info.Mode().IsRegular()
}

// Resolve decides how to answer a playback request for src, starting a
// background transcode when the source needs one and none is running.
func (t *Transcoder) Resolve(ctx context.Context, src string) (Decision, error) {
	abs, info, err := t.statSource(src)
	if err != nil {
		return Decision{}, err
	}

	codec := t.prober.Codec(ctx, abs)
	if !NeedsConversion(codec) {
		metrics.TranscoderDecisionsTotal.WithLabelValues("original").Inc()
		return Decision{Kind: ServeOriginal, Path: abs, Codec: codec}, nil
	}

	if !t.enabled {
		logging.Warn("%s is %s but transcoding is disabled, serving original", filepath.Base(abs), codec)
		metrics.TranscoderDecisionsTotal.WithLabelValues("original").Inc()
		return Decision{Kind: ServeOriginal, Path: abs, Codec: codec}, nil
	}

	key, output := t.artifactPath(abs, info.ModTime())
	if fileExists(output) {
		metrics.TranscoderDecisionsTotal.WithLabelValues("cached").Inc()
		return Decision{Kind: ServeCached, Path: output, Codec: codec}, nil
	}

	// a completed marker whose artifact vanished is dropped and retried once
	for attempt := 0; attempt < 2; attempt++ {
		snap, started := t.registry.GetOrStart(key.String(),
			func() *job {
				return &job{
					id:        uuid.NewString(),
					source:    abs,
					output:    output,
					startedAt: time.Now(),
				}
			},
			func(j *job) {
				t.wg.Add(1)
				go t.run(j)
			},
		)

		switch snap.State {
		case JobRunning:
			label := "converting"
			if started {
				label = "started"
				logging.Info("Transcode %s started for %s (%s)", snap.ID, filepath.Base(abs), codec)
			}
			metrics.TranscoderDecisionsTotal.WithLabelValues(label).Inc()
			return Decision{
				Kind:     Converting,
				Codec:    codec,
				Progress: snap.Progress,
				JobID:    snap.ID,
				Started:  started,
			}, nil
		case JobCompleted:
			if fileExists(output) {
				metrics.TranscoderDecisionsTotal.WithLabelValues("cached").Inc()
				return Decision{Kind: ServeCached, Path: output, Codec: codec}, nil
			}
			t.registry.Forget(key.String())
		}
	}

	logging.Warn("Artifact for %s keeps disappearing, serving original", filepath.Base(abs))
	metrics.TranscoderDecisionsTotal.WithLabelValues("original").Inc()
	return Decision{Kind: ServeOriginal, Path: abs, Codec: codec}, nil
}

// Status reports the conversion state of src without probing it or starting
// anything.
func (t *Transcoder) Status(_ context.Context, src string) (Status, error) {
	abs, info, err := t.statSource(src)
	if err != nil {
		return Status{}, err
	}

	key, output := t.artifactPath(abs, info.ModTime())
	if t.cacheDir != "" && fileExists(output) {
		return Status{State: StatusCompleted, Progress: 100}, nil
	}

	if snap, ok := t.registry.Lookup(key.String()); ok && snap.State == JobRunning {
		return Status{State: StatusConverting, Progress: snap.Progress}, nil
	}
	return Status{State: StatusReady, Progress: 0}, nil
}

// Jobs returns the jobs currently known to the registry.
func (t *Transcoder) Jobs() []JobSnapshot {
	return t.registry.Snapshot()
}

// run is the worker for one job. It waits for a concurrency slot, encodes into
// a temporary file and renames it into place.
func (t *Transcoder) run(j *job) {
	defer t.wg.Done()

	metrics.TranscoderJobsTotal.WithLabelValues("started").Inc()
	metrics.TranscoderJobsInProgress.Inc()
	defer metrics.TranscoderJobsInProgress.Dec()

	if err := t.sem.Acquire(t.ctx, 1); err != nil {
		t.fail(j, "", fmt.Errorf("waiting for worker slot: %w", err))
		return
	}
	defer t.sem.Release(1)

	start := time.Now()
	duration := t.prober.Duration(t.ctx, j.source)
	tmp := filepath.Join(t.cacheDir, tempPrefix+filepath.Base(j.output))

	logging.Debug("Transcode %s encoding %s (%v) to %s", j.id, j.source, duration, tmp)

	err := t.encoder.Encode(t.ctx, j.source, tmp, duration, func(percent float64) {
		t.registry.Update(j.key, int(percent))
	})
	if err == nil {
		err = os.Rename(tmp, j.output)
	}
	if err != nil {
		t.fail(j, tmp, err)
		return
	}

	t.registry.Complete(j.key)
	t.invalidateCacheSize()

	elapsed := time.Since(start)
	metrics.TranscoderJobsTotal.WithLabelValues("completed").Inc()
	metrics.TranscoderJobDuration.Observe(elapsed.Seconds())
	logging.Info("Transcode %s completed for %s in %v", j.id, filepath.Base(j.source), elapsed.Round(time.Millisecond))
}

func (t *Transcoder) fail(j *job, tmp string, err error) {
	if tmp != "" {
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.Warn("Failed to remove partial output %s: %v", tmp, rmErr)
		}
	}
	t.registry.Fail(j.key)
	metrics.TranscoderJobsTotal.WithLabelValues("failed").Inc()

	if t.ctx.Err() != nil {
		logging.Info("Transcode %s for %s abandoned on shutdown", j.id, filepath.Base(j.source))
		return
	}
	logging.Error("Transcode %s failed for %s: %v", j.id, filepath.Base(j.source), err)
}

// Shutdown cancels running encodes and waits for their workers to clean up,
// or for ctx to expire.
func (t *Transcoder) Shutdown(ctx context.Context) error {
	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for transcode workers: %w", ctx.Err())
	}
}
