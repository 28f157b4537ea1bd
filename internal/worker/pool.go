package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Job represents a unit of work to be processed
type Job interface {
	Process(ctx context.Context) error
	ID() string
}

// Result contains the outcome of processing a job
type Result struct {
	JobID string
	Error error
}

// Func adapts a closure to the Job interface.
type Func struct {
	Name string
	Fn   func(ctx context.Context) error
}

func (f Func) Process(ctx context.Context) error { return f.Fn(ctx) }
func (f Func) ID() string                        { return f.Name }

// Pool manages a fixed set of worker goroutines
type Pool struct {
	workerCount int
	jobs        chan Job
	results     chan Result
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewPool creates a pool bound to ctx. workerCount <= 0 means one worker per CPU.
func NewPool(ctx context.Context, workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workerCount: workerCount,
		jobs:        make(chan Job, workerCount*2),
		results:     make(chan Result, workerCount*2),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing jobs
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop waits for queued jobs to drain and closes the results channel.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.cancel()
}

// Cancel asks workers to stop picking up new jobs.
func (p *Pool) Cancel() { p.cancel() }

// Submit adds a job to the processing queue
func (p *Pool) Submit(job Job) {
	select {
	case p.jobs <- job:
	case <-p.ctx.Done():
		p.results <- Result{JobID: job.ID(), Error: p.ctx.Err()}
	}
}

// Results returns the results channel
func (p *Pool) Results() <-chan Result {
	return p.results
}

// WorkerCount returns the number of workers in the pool
func (p *Pool) WorkerCount() int {
	return p.workerCount
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- Result{JobID: job.ID(), Error: job.Process(p.ctx)}
		case <-p.ctx.Done():
			return
		}
	}
}

// Run processes jobs on at most workerCount goroutines and blocks until every
// submitted job has reported. The first failure cancels the remaining work and
// is returned. A done ctx is reported even when no job failed, since some jobs
// may never have run.
func Run(ctx context.Context, workerCount int, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if workerCount > len(jobs) {
		workerCount = len(jobs)
	}

	p := NewPool(ctx, workerCount)
	p.Start()
	go func() {
		for _, j := range jobs {
			p.Submit(j)
		}
		p.Stop()
	}()

	var first error
	for r := range p.Results() {
		if r.Error != nil && first == nil {
			first = fmt.Errorf("%s: %w", r.JobID, r.Error)
			p.Cancel()
		}
	}
	if first == nil {
		return ctx.Err()
	}
	return first
}
