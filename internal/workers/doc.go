/*
Package workers sizes the transcode worker pool for the host it runs on.

runtime.NumCPU reports the host's CPU count even inside a container with a CPU
limit. GOMAXPROCS follows the cgroup limit, so the helpers here derive worker
counts from it instead:

	// Kubernetes pod limited to 2 CPUs on a 64-core node
	runtime.NumCPU()      // 64
	runtime.GOMAXPROCS(0) // 2

ForTranscode is what the transcoder uses. ffmpeg spreads one encode across
several threads, so the default is half the available CPUs, at least one and at
most TranscodeLimit:

	sem := semaphore.NewWeighted(int64(workers.ForTranscode(cfg.TranscodeWorkers)))

Operators can pin the count with the TRANSCODE_WORKERS environment variable.
*/
package workers
