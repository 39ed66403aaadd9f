// Package worker runs report annotation jobs concurrently. Reports are
// independent, so batch runs are embarrassingly parallel; the engine itself
// stays single-threaded per report.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job
type Result interface {
	GetError() error
}

// Pool executes jobs on a fixed number of worker goroutines. Results are
// collected into an internal slice as workers finish, so Submit only ever
// waits for queue space, never for the caller to start draining results.
type Pool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu        sync.Mutex
	results   []Result
	closeOnce sync.Once
}

// NewPool creates a pool with the given worker count (minimum one). Jobs run
// under a context derived from ctx, so cancelling it stops queued work and
// reaches every in-flight job.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, workers*2),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			p.mu.Lock()
			p.results = append(p.results, result)
			p.mu.Unlock()
		}
	}
}

// Submit queues a job for execution. Jobs submitted after cancellation are
// dropped.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobQueue <- job:
	}
}

// Wait closes the queue, waits for the workers to drain it, and returns all
// results. Result order is completion order, not submission order.
func (p *Pool) Wait() []Result {
	p.closeOnce.Do(func() { close(p.jobQueue) })
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}

// Shutdown cancels outstanding work immediately
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
