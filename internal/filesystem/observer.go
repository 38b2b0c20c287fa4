package filesystem

// Observer records filesystem operation metrics. The implementation lives in
// the metrics package so that filesystem does not import it.
type Observer interface {
	// ObserveOperation records duration and error status for an operation.
	// volume is the resolved label ("media", "cache"); operation is
	// "stat", "open" or "readdir".
	ObserveOperation(volume, operation string, durationSeconds float64, err error)
	ObserveRetryAttempt(operation, volume string)
	ObserveStaleError(operation, volume string)
}

// defaultObserver is nil until SetObserver is called; recording is skipped then.
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
