package transcoder

import (
	"sort"
	"sync"
	"time"
)

// JobState is the lifecycle state of a transcode job.
type JobState string

const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// maxRunningProgress is the ceiling for progress until the output is in place.
const maxRunningProgress = 99

// job is both the registry entry for a key and the unit of work its worker
// runs, so there is never more than one worker per key.
type job struct {
	id        string
	key       string
	source    string
	output    string
	state     JobState
	progress  int
	startedAt time.Time
}

// JobSnapshot is a copy of a job taken under the registry lock.
type JobSnapshot struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Source    string    `json:"source"`
	Output    string    `json:"output"`
	State     JobState  `json:"state"`
	Progress  int       `json:"progress"`
	StartedAt time.Time `json:"startedAt"`
}

func (j *job) snapshot() JobSnapshot {
	return JobSnapshot{
		ID:        j.id,
		Key:       j.key,
		Source:    j.source,
		Output:    j.output,
		State:     j.state,
		Progress:  j.progress,
		StartedAt: j.startedAt,
	}
}

// registry holds transcode jobs by cache key. Every method takes the one
// mutex and none of them do I/O while holding it.
type registry struct {
	mu   sync.Mutex
	jobs map[string]*job
}

func newRegistry() *registry {
	return &registry{jobs: make(map[string]*job)}
}

// GetOrStart returns the existing job for key. When there is none, it inserts
// the job built by create and calls start with it before releasing the lock.
// started reports whether this call created the job.
func (r *registry) GetOrStart(key string, create func() *job, start func(*job)) (snap JobSnapshot, started bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if j, ok := r.jobs[key]; ok {
		return j.snapshot(), false
	}

	j := create()
	j.key = key
	j.state = JobRunning
	j.progress = 0
	r.jobs[key] = j
	start(j)
	return j.snapshot(), true
}

// Update raises the progress of a running job. Progress never decreases and
// stays below 100 until Complete.
func (r *registry) Update(key string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[key]
	if !ok || j.state != JobRunning {
		return
	}
	progress = min(progress, maxRunningProgress)
	if progress > j.progress {
		j.progress = progress
	}
}

// Complete marks a job done. The entry stays as a marker until Forget.
func (r *registry) Complete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if j, ok := r.jobs[key]; ok {
		j.state = JobCompleted
		j.progress = 100
	}
}

// Fail removes the job so the next request starts over.
func (r *registry) Fail(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, key)
}

// Lookup returns a snapshot of the job for key.
func (r *registry) Lookup(key string) (JobSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[key]
	if !ok {
		return JobSnapshot{}, false
	}
	return j.snapshot(), true
}

// Forget drops a completed marker. Running jobs are left alone.
func (r *registry) Forget(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if j, ok := r.jobs[key]; ok && j.state == JobCompleted {
		delete(r.jobs, key)
		return true
	}
	return false
}

// ForgetCompleted drops every completed marker and returns how many went.
func (r *registry) ForgetCompleted() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, j := range r.jobs {
		if j.state == JobCompleted {
			delete(r.jobs, key)
			n++
		}
	}
	return n
}

// Snapshot returns all jobs ordered by start time.
func (r *registry) Snapshot() []JobSnapshot {
	r.mu.Lock()
	out := make([]JobSnapshot, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.snapshot())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, k int) bool {
		return out[i].StartedAt.Before(out[k].StartedAt)
	})
	return out
}
