package transcoder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"recview/internal/filesystem"
	"recview/internal/logging"
	"recview/internal/metrics"
)

// cacheSizeTTL bounds how often CacheSize walks the cache directory.
const cacheSizeTTL = 2 * time.Minute

// EnsureCacheDir creates dir and reports whether it is writable.
func EnsureCacheDir(dir string) bool {
	if dir == "" {
		return false
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logging.Warn("Cannot create cache directory %s: %v", dir, err)
		return false
	}

	probe, err := os.CreateTemp(dir, tempPrefix+"probe-*")
	if err != nil {
		logging.Warn("Cache directory %s is not writable: %v", dir, err)
		return false
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return true
}

func (t *Transcoder) readCacheDir() ([]os.DirEntry, error) {
	if t.cacheDir == "" {
		return nil, nil
	}
	entries, err := filesystem.ReadDirWithRetry(t.cacheDir, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read transcode cache directory: %w", err)
	}
	return entries, nil
}

// ClearCache deletes finished artifacts and forgets completed jobs. Outputs
// of running jobs are left in place. It returns the bytes freed.
func (t *Transcoder) ClearCache() (int64, error) {
	entries, err := t.readCacheDir()
	if err != nil {
		return 0, err
	}

	var freed int64
	for _, entry := range entries {
		if entry.IsDir() || isTempName(entry.Name()) {
			continue
		}

		path := filepath.Join(t.cacheDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			logging.Warn("Failed to get info for %s: %v", path, err)
			continue
		}
		if err := os.Remove(path); err != nil {
			logging.Warn("Failed to remove %s: %v", path, err)
			continue
		}
		freed += info.Size()
	}

	forgotten := t.registry.ForgetCompleted()
	t.invalidateCacheSize()

	logging.Info("Cleared transcode cache: freed %s, forgot %d completed jobs", humanize.IBytes(uint64(freed)), forgotten)
	return freed, nil
}

// CacheSize returns the total size and number of artifacts. The result is
// cached for a short time.
func (t *Transcoder) CacheSize() (int64, int, error) {
	last := t.lastCacheUpdate.Load()
	if last != 0 && time.Since(time.Unix(0, last)) < cacheSizeTTL {
		t.cacheMu.Lock()
		defer t.cacheMu.Unlock()
		return t.cachedSize, t.cachedCount, nil
	}

	entries, err := t.readCacheDir()
	if err != nil {
		return 0, 0, err
	}

	var size int64
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || isTempName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		size += info.Size()
		count++
	}

	t.cacheMu.Lock()
	t.cachedSize = size
	t.cachedCount = count
	t.cacheMu.Unlock()
	t.lastCacheUpdate.Store(time.Now().UnixNano())

	metrics.TranscodeCacheSize.Set(float64(size))
	metrics.TranscodeCacheCount.Set(float64(count))
	return size, count, nil
}

func (t *Transcoder) invalidateCacheSize() {
	t.lastCacheUpdate.Store(0)
}

// CleanupPartials removes temporary outputs left by an earlier process.
// Call it before serving requests.
func (t *Transcoder) CleanupPartials() (int, error) {
	entries, err := t.readCacheDir()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isTempName(entry.Name()) {
			continue
		}
		path := filepath.Join(t.cacheDir, entry.Name())
		if err := os.Remove(path); err != nil {
			logging.Warn("Failed to remove partial output %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logging.Info("Removed %d partial transcode outputs from %s", removed, t.cacheDir)
	}
	return removed, nil
}
