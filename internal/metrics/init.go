package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, source := range []string{"original", "cached", "download"} {
		StreamBytesTotal.WithLabelValues(source)
	}
	for _, status := range []string{"200", "206", "416"} {
		StreamResponsesTotal.WithLabelValues(status)
	}

	for _, status := range []string{"started", "completed", "failed"} {
		TranscoderJobsTotal.WithLabelValues(status)
	}
	for _, decision := range []string{"original", "cached", "converting", "started"} {
		TranscoderDecisionsTotal.WithLabelValues(decision)
	}

	for _, kind := range []string{"codec", "duration"} {
		ProbeDuration.WithLabelValues(kind)
		ProbeFailuresTotal.WithLabelValues(kind)
	}

	for _, status := range []string{"success", "failure"} {
		AuthAttemptsTotal.WithLabelValues(status)
	}

	for _, vol := range []string{"media", "cache", "unknown"} {
		for _, op := range []string{"stat", "open", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}
}
