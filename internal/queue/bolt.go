package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketJobs    = []byte("jobs")
	bucketDelayed = []byte("delayed")
	bucketWaiting = []byte("waiting")
)

// BoltQueue is a durable delayed job queue on BoltDB. Jobs live in the jobs
// bucket keyed by id; the delayed and waiting buckets are time-sorted
// indexes (run-at timestamp + id) that Dequeue walks in order. Delivery is
// at-least-once: a job left in the active state by a crash is requeued by
// Recover at startup.
type BoltQueue struct {
	db *bolt.DB
}

// NewBoltQueue opens (or creates) the queue database at path
func NewBoltQueue(path string) (*BoltQueue, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketJobs, bucketDelayed, bucketWaiting} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltQueue{db: db}, nil
}

// Enqueue stores a new job, delayed by opts.Delay
func (q *BoltQueue) Enqueue(ctx context.Context, kind JobKind, payload interface{}, opts EnqueueOptions) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	now := time.Now().UTC()
	job := &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     body,
		State:       StateWaiting,
		RunAt:       now,
		MaxAttempts: maxAttempts,
		Backoff:     opts.Backoff,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if opts.Delay > 0 {
		job.State = StateDelayed
		job.RunAt = now.Add(opts.Delay)
	}

	err = q.db.Update(func(tx *bolt.Tx) error {
		if err := putJob(tx, job); err != nil {
			return err
		}
		return putIndex(tx, job)
	})
	if err != nil {
		return nil, err
	}

	return job, nil
}

// Dequeue returns the next due job, marking it active. Due delayed jobs are
// served before waiting ones so a backlog cannot starve the retry ladder.
// Returns nil, nil when nothing is due.
func (q *BoltQueue) Dequeue(ctx context.Context) (*Job, error) {
	var job *Job

	err := q.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		now := time.Now().UTC()

		for _, bucket := range [][]byte{bucketDelayed, bucketWaiting} {
			c := tx.Bucket(bucket).Cursor()

			for k, v := c.First(); k != nil; k, v = c.Next() {
				if string(bucket) == string(bucketDelayed) {
					if parseTimestampFromKey(k).After(now) {
						break // index is time-sorted, the rest are in the future
					}
				}

				data := jobs.Get(v)
				if data == nil {
					// Job was removed, drop the stale index entry
					c.Delete()
					continue
				}

				var j Job
				if err := json.Unmarshal(data, &j); err != nil {
					c.Delete()
					continue
				}

				j.State = StateActive
				j.UpdatedAt = now

				if err := putJob(tx, &j); err != nil {
					return err
				}
				if err := c.Delete(); err != nil {
					return err
				}

				job = &j
				return nil
			}
		}

		return nil
	})

	return job, err
}

// Complete removes a finished job
func (q *BoltQueue) Complete(ctx context.Context, job *Job) error {
	return q.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketJobs).Delete([]byte(job.ID))
	})
}

// Retry bumps the attempt count and reschedules the job with its backoff delay
func (q *BoltQueue) Retry(ctx context.Context, job *Job, lastError string) error {
	now := time.Now().UTC()

	job.Attempts++
	job.State = StateDelayed
	job.LastError = lastError
	job.RunAt = now.Add(job.NextBackoff())
	job.UpdatedAt = now

	return q.db.Update(func(tx *bolt.Tx) error {
		if err := putJob(tx, job); err != nil {
			return err
		}
		return putIndex(tx, job)
	})
}

// Fail marks the job permanently failed. Failed jobs stay in the jobs
// bucket for inspection but are never indexed for execution again.
func (q *BoltQueue) Fail(ctx context.Context, job *Job, lastError string) error {
	job.Attempts++
	job.State = StateFailed
	job.LastError = lastError
	job.UpdatedAt = time.Now().UTC()

	return q.db.Update(func(tx *bolt.Tx) error {
		return putJob(tx, job)
	})
}

// List returns jobs in any of the given states
func (q *BoltQueue) List(ctx context.Context, states ...JobState) ([]*Job, error) {
	want := make(map[JobState]bool, len(states))
	for _, s := range states {
		want[s] = true
	}

	var result []*Job
	err := q.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketJobs).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var j Job
			if err := json.Unmarshal(v, &j); err != nil {
				continue
			}
			if len(want) == 0 || want[j.State] {
				job := j
				result = append(result, &job)
			}
		}
		return nil
	})

	return result, err
}

// Remove deletes a not-yet-run job and its index entry
func (q *BoltQueue) Remove(ctx context.Context, id string) error {
	return q.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)

		data := jobs.Get([]byte(id))
		if data == nil {
			return nil
		}

		var j Job
		if err := json.Unmarshal(data, &j); err == nil {
			key := makeIndexKey(j.RunAt, j.ID)
			tx.Bucket(bucketDelayed).Delete(key)
			tx.Bucket(bucketWaiting).Delete(key)
		}

		return jobs.Delete([]byte(id))
	})
}

// Recover requeues jobs a previous process left active. Called once at
// startup, before the runner starts; the redelivery it causes is the
// at-least-once contract handlers are written for.
func (q *BoltQueue) Recover(ctx context.Context) (int, error) {
	recovered := 0

	err := q.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		c := jobs.Cursor()
		now := time.Now().UTC()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var j Job
			if err := json.Unmarshal(v, &j); err != nil {
				continue
			}
			if j.State != StateActive {
				continue
			}

			j.State = StateWaiting
			j.RunAt = now
			j.UpdatedAt = now

			if err := putJob(tx, &j); err != nil {
				return err
			}
			if err := putIndex(tx, &j); err != nil {
				return err
			}
			recovered++
		}

		return nil
	})

	return recovered, err
}

// Close closes the queue database
func (q *BoltQueue) Close() error {
	return q.db.Close()
}

func putJob(tx *bolt.Tx, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := tx.Bucket(bucketJobs).Put([]byte(job.ID), data); err != nil {
		return fmt.Errorf("failed to store job: %w", err)
	}
	return nil
}

func putIndex(tx *bolt.Tx, job *Job) error {
	bucket := bucketWaiting
	if job.State == StateDelayed {
		bucket = bucketDelayed
	}
	if err := tx.Bucket(bucket).Put(makeIndexKey(job.RunAt, job.ID), []byte(job.ID)); err != nil {
		return fmt.Errorf("failed to index job: %w", err)
	}
	return nil
}

// timeKeyLayout is fixed-width (nanoseconds zero-padded) so that byte
// order of index keys matches chronological order.
const timeKeyLayout = "2006-01-02T15:04:05.000000000"

// makeIndexKey creates a sortable key from run-at time and job id
func makeIndexKey(t time.Time, id string) []byte {
	return []byte(t.UTC().Format(timeKeyLayout) + ":" + id)
}

// parseTimestampFromKey extracts the run-at time from an index key
func parseTimestampFromKey(key []byte) time.Time {
	s := string(key)
	if len(s) < len(timeKeyLayout) {
		return time.Time{}
	}
	ts, err := time.Parse(timeKeyLayout, s[:len(timeKeyLayout)])
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
