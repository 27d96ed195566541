package utils

import (
	"context"
	"sync"
)

// Job represents a task to be executed by a worker.
type Job struct {
	Task func()
}

// WorkerPool manages a pool of workers to execute jobs. Wait blocks until every job
// submitted so far has finished, so one pool can run several batches in turn.
type WorkerPool struct {
	workers   int
	jobQueue  chan Job
	waitGroup sync.WaitGroup
	pending   sync.WaitGroup
	closeOnce sync.Once
}

// NewWorkerPool creates a new WorkerPool with the specified number of workers.
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	pool := &WorkerPool{
		workers:  workers,
		jobQueue: make(chan Job, workers),
	}

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int {
	return wp.workers
}

// worker processes jobs from the jobQueue.
func (wp *WorkerPool) worker() {
	defer wp.waitGroup.Done()
	for job := range wp.jobQueue {
		job.Task()
		wp.pending.Done()
	}
}

// Submit adds a new job to the worker pool, blocking while all workers are busy and the
// queue is full. It returns ctx.Err() if ctx ends first; the task is then not run.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	wp.pending.Add(1)
	select {
	case wp.jobQueue <- Job{Task: task}:
		return nil
	case <-ctx.Done():
		wp.pending.Done()
		return ctx.Err()
	}
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.pending.Wait()
}

// Shutdown waits for all workers to finish and then closes the worker pool.
func (wp *WorkerPool) Shutdown() {
	wp.closeOnce.Do(func() { close(wp.jobQueue) })
	wp.waitGroup.Wait()
}
