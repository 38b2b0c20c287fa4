/*
Package filesystem wraps os.Stat, os.Open and os.ReadDir with retry logic for
NFS stale file handle errors.

Camera recordings are often written to a NAS export and read back by recview
over NFS. When the server side rotates or replaces a segment, the client may
see ESTALE for a short window. Only ESTALE triggers a retry; every other error
is returned immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

The defaults are 3 retries with exponential backoff from 50ms capped at 500ms.

Operation latency, errors and retries are reported to the Observer registered
with SetObserver, labeled by the volume that VolumeResolver assigns to the path.
*/
package filesystem
