package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Handler processes one dequeued job. A nil return completes the job; an
// error sends it back through the retry ladder until the attempt ceiling.
type Handler func(ctx context.Context, job *Job) error

// Runner drains the queue with a pool of concurrent workers, dispatching
// each job to the handler registered for its kind.
type Runner struct {
	queue        *BoltQueue
	handlers     map[JobKind]Handler
	concurrency  int
	pollInterval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRunner creates a runner over the given queue
func NewRunner(q *BoltQueue, concurrency int, pollInterval time.Duration) *Runner {
	if concurrency <= 0 {
		concurrency = 4
	}
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}

	return &Runner{
		queue:        q,
		handlers:     make(map[JobKind]Handler),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
	}
}

// Register sets the handler for a job kind. Must be called before Start.
func (r *Runner) Register(kind JobKind, handler Handler) {
	r.handlers[kind] = handler
}

// Start launches the worker pool
func (r *Runner) Start(ctx context.Context) {
	log.Printf("Runner starting with %d workers", r.concurrency)

	for i := 0; i < r.concurrency; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
}

// Stop stops the workers and waits for in-flight jobs to finish
func (r *Runner) Stop() {
	close(r.stopChan)
	r.wg.Wait()
	log.Println("Runner stopped")
}

// worker is the main processing loop
func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			// Drain everything currently due before sleeping again
			for r.processOne(ctx) {
				select {
				case <-ctx.Done():
					return
				case <-r.stopChan:
					return
				default:
				}
			}
		}
	}
}

// processOne handles a single job. Returns true when a job was processed.
func (r *Runner) processOne(ctx context.Context) bool {
	job, err := r.queue.Dequeue(ctx)
	if err != nil {
		log.Printf("ERROR: failed to dequeue job: %v", err)
		return false
	}
	if job == nil {
		return false
	}

	handler, ok := r.handlers[job.Kind]
	if !ok {
		log.Printf("ERROR: no handler registered for job kind %q", job.Kind)
		if err := r.queue.Fail(ctx, job, fmt.Sprintf("no handler for kind %q", job.Kind)); err != nil {
			log.Printf("ERROR: failed to mark job %s failed: %v", job.ID, err)
		}
		return true
	}

	if err := handler(ctx, job); err != nil {
		r.handleFailure(ctx, job, err)
		return true
	}

	if err := r.queue.Complete(ctx, job); err != nil {
		log.Printf("ERROR: failed to complete job %s: %v", job.ID, err)
	}
	return true
}

// handleFailure retries the job with backoff or fails it permanently once
// the attempt ceiling is reached.
func (r *Runner) handleFailure(ctx context.Context, job *Job, handlerErr error) {
	if job.Attempts+1 < job.MaxAttempts {
		if err := r.queue.Retry(ctx, job, handlerErr.Error()); err != nil {
			log.Printf("ERROR: failed to schedule retry for job %s: %v", job.ID, err)
			return
		}
		log.Printf("Job %s attempt %d failed, retrying at %s: %v",
			job.ID, job.Attempts, job.RunAt.Format(time.RFC3339), handlerErr)
		return
	}

	if err := r.queue.Fail(ctx, job, handlerErr.Error()); err != nil {
		log.Printf("ERROR: failed to mark job %s failed: %v", job.ID, err)
		return
	}
	log.Printf("Job %s failed permanently after %d attempts: %v", job.ID, job.Attempts, handlerErr)
}
