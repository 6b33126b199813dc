// Package jobs provides a fixed-size worker pool shared by the physics world
// and any other subsystem that needs to fan work out across threads.
package jobs

import (
	"runtime"
	"sync"
)

// Queue is a fixed-size pool of worker goroutines fed from a FIFO job list.
// It is constructed explicitly and passed to whatever needs it.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  []func()
	inFlight int
	closed   bool

	workers int
	wg      sync.WaitGroup
}

// NewQueue starts a pool with the given number of workers.
// A non-positive count uses one worker per CPU.
func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	q := &Queue{workers: workers}
	q.cond = sync.NewCond(&q.mu)

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.run()
	}
	return q
}

// Workers returns the number of worker goroutines.
func (q *Queue) Workers() int {
	return q.workers
}

// QueueJob appends a job to the FIFO and reports whether it was accepted.
// Jobs queued after Close are rejected; the caller decides whether to run them.
func (q *Queue) QueueJob(job func()) bool {
	if job == nil {
		return false
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, job)
	q.mu.Unlock()
	q.cond.Signal()
	return true
}

// IsBusy reports whether any job is queued or running.
func (q *Queue) IsBusy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) > 0 || q.inFlight > 0
}

// Close stops accepting jobs, lets the workers drain the queue and waits for them to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
	q.wg.Wait()
}

func (q *Queue) run() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}

		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.inFlight++
		q.mu.Unlock()

		job()

		q.mu.Lock()
		q.inFlight--
		q.mu.Unlock()
	}
}
