package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type countingJob struct {
	counter *atomic.Int64
	fail    bool
}

type countingResult struct {
	err error
}

func (r *countingResult) GetError() error { return r.err }

func (j *countingJob) Execute(ctx context.Context) Result {
	j.counter.Add(1)
	if j.fail {
		return &countingResult{err: errors.New("job failed")}
	}
	return &countingResult{}
}

// blockingJob signals when it starts, then holds until its context ends.
type blockingJob struct {
	started chan struct{}
}

func (j *blockingJob) Execute(ctx context.Context) Result {
	close(j.started)
	<-ctx.Done()
	return &countingResult{err: ctx.Err()}
}

func TestPool_RunsAllJobs(t *testing.T) {
	var counter atomic.Int64

	pool := NewPool(context.Background(), 3)
	pool.Start()

	// Well past the queue capacity: submission must never depend on the
	// caller draining results first.
	const jobs = 20
	for i := 0; i < jobs; i++ {
		pool.Submit(&countingJob{counter: &counter})
	}

	results := pool.Wait()
	if len(results) != jobs {
		t.Errorf("got %d results, want %d", len(results), jobs)
	}
	if counter.Load() != jobs {
		t.Errorf("executed %d jobs, want %d", counter.Load(), jobs)
	}
}

func TestPool_CollectsErrors(t *testing.T) {
	var counter atomic.Int64

	pool := NewPool(context.Background(), 2)
	pool.Start()

	pool.Submit(&countingJob{counter: &counter})
	pool.Submit(&countingJob{counter: &counter, fail: true})
	pool.Submit(&countingJob{counter: &counter, fail: true})

	failures := 0
	for _, result := range pool.Wait() {
		if result.GetError() != nil {
			failures++
		}
	}
	if failures != 2 {
		t.Errorf("got %d failures, want 2", failures)
	}
}

func TestPool_MinimumOneWorker(t *testing.T) {
	var counter atomic.Int64

	pool := NewPool(context.Background(), 0)
	pool.Start()
	pool.Submit(&countingJob{counter: &counter})

	if results := pool.Wait(); len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestPool_CallerContextReachesJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewPool(ctx, 1)
	pool.Start()

	job := &blockingJob{started: make(chan struct{})}
	pool.Submit(job)
	<-job.started
	cancel()

	results := pool.Wait()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !errors.Is(results[0].GetError(), context.Canceled) {
		t.Errorf("job error = %v, want context.Canceled", results[0].GetError())
	}
}

func TestPool_ShutdownStopsWorkers(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	// Submitting after shutdown must not block.
	var counter atomic.Int64
	pool.Submit(&countingJob{counter: &counter})
}
