package transcoder

import (
	"sync"
	"testing"
	"time"
)

func newTestJob() *job {
	return &job{id: "id", source: "/src", output: "/out", startedAt: time.Now()}
}

func TestRegistryGetOrStart(t *testing.T) {
	r := newRegistry()
	starts := 0

	snap, started := r.GetOrStart("k", newTestJob, func(*job) { starts++ })
	if !started || snap.State != JobRunning || snap.Progress != 0 {
		t.Errorf("first GetOrStart = %+v, %v", snap, started)
	}

	snap, started = r.GetOrStart("k", newTestJob, func(*job) { starts++ })
	if started {
		t.Error("second GetOrStart should not start a job")
	}
	if snap.Key != "k" {
		t.Errorf("Key = %q, want k", snap.Key)
	}
	if starts != 1 {
		t.Errorf("start called %d times, want 1", starts)
	}
}

func TestRegistryGetOrStartConcurrent(t *testing.T) {
	r := newRegistry()
	var mu sync.Mutex
	starts := 0

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.GetOrStart("same", newTestJob, func(*job) {
				mu.Lock()
				starts++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	if starts != 1 {
		t.Errorf("start called %d times, want 1", starts)
	}
}

func TestRegistryProgressMonotonicAndCapped(t *testing.T) {
	r := newRegistry()
	r.GetOrStart("k", newTestJob, func(*job) {})

	steps := []struct {
		update int
		want   int
	}{
		{10, 10},
		{5, 10},
		{42, 42},
		{42, 42},
		{100, 99},
		{250, 99},
		{-3, 99},
	}
	for _, s := range steps {
		r.Update("k", s.update)
		snap, _ := r.Lookup("k")
		if snap.Progress != s.want {
			t.Errorf("after Update(%d) progress = %d, want %d", s.update, snap.Progress, s.want)
		}
	}

	r.Complete("k")
	snap, ok := r.Lookup("k")
	if !ok || snap.State != JobCompleted || snap.Progress != 100 {
		t.Errorf("after Complete = %+v, %v", snap, ok)
	}

	r.Update("k", 5)
	if snap, _ := r.Lookup("k"); snap.Progress != 100 {
		t.Errorf("Update after Complete changed progress to %d", snap.Progress)
	}
}

func TestRegistryFailAndForget(t *testing.T) {
	r := newRegistry()
	r.GetOrStart("a", newTestJob, func(*job) {})
	r.GetOrStart("b", newTestJob, func(*job) {})
	r.GetOrStart("c", newTestJob, func(*job) {})

	r.Fail("a")
	if _, ok := r.Lookup("a"); ok {
		t.Error("failed job should be removed")
	}

	r.Complete("b")
	if r.Forget("c") {
		t.Error("Forget must not drop a running job")
	}
	if got := r.ForgetCompleted(); got != 1 {
		t.Errorf("ForgetCompleted() = %d, want 1", got)
	}

	jobs := r.Snapshot()
	if len(jobs) != 1 || jobs[0].Key != "c" {
		t.Errorf("Snapshot() = %+v, want only c", jobs)
	}

	// unknown keys are ignored
	r.Update("missing", 50)
	r.Complete("missing")
	r.Fail("missing")
}
