package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride is the environment variable that pins the transcode worker count.
const EnvOverride = "TRANSCODE_WORKERS"

// TranscodeLimit caps the automatic transcode worker count. Each ffmpeg
// process is itself multi-threaded, so a handful of concurrent encodes
// saturates most hosts.
const TranscodeLimit = 4

// Count returns the number of workers for a task with the given CPU multiplier.
// It respects container CPU limits via GOMAXPROCS.
//
// The limit parameter caps the worker count. Use 0 for no limit.
// A positive integer in TRANSCODE_WORKERS overrides the calculation.
func Count(multiplier float64, limit int) int {
	if count := envCount(); count > 0 {
		return capAt(count, limit)
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForTranscode returns the number of concurrent ffmpeg encodes to allow.
// A positive configured value wins; otherwise half the available CPUs are
// used, capped at TranscodeLimit.
func ForTranscode(configured int) int {
	if configured > 0 {
		return configured
	}
	return Count(0.5, TranscodeLimit)
}

func envCount() int {
	override := os.Getenv(EnvOverride)
	if override == "" {
		return 0
	}
	count, err := strconv.Atoi(override)
	if err != nil || count < 1 {
		return 0
	}
	return count
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}
