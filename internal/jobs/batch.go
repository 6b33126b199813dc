package jobs

import (
	"log"
	"sync"
)

// Batch is a latch over a group of jobs submitted to one Queue.
// Wait blocks until every job added with Go has returned.
type Batch struct {
	queue *Queue
	wg    sync.WaitGroup
}

// NewBatch returns an empty batch bound to q.
func (q *Queue) NewBatch() *Batch {
	return &Batch{queue: q}
}

// Go submits fn to the queue as part of the batch. If the queue is closed
// fn runs on the calling goroutine instead.
func (b *Batch) Go(fn func()) {
	b.wg.Add(1)
	job := func() {
		defer b.wg.Done()
		fn()
	}
	if !b.queue.QueueJob(job) {
		log.Printf("Jobs: queue closed, running batch job inline")
		job()
	}
}

// Wait blocks until all jobs of the batch have finished.
func (b *Batch) Wait() {
	b.wg.Wait()
}
