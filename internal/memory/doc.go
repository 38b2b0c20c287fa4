// Package memory sizes the Go runtime's soft memory limit for containers.
//
// In Kubernetes, expose the container limit through the Downward API:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// [ConfigureFromEnv] then sets GOMEMLIMIT to MEMORY_RATIO (default 0.85) of
// that value, leaving headroom for ffmpeg processes started by the
// transcoder. An explicit GOMEMLIMIT always wins.
package memory
