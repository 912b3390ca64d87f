package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sendwave/internal/models"
)

// JobState represents where a job sits in its lifecycle
type JobState string

const (
	StateDelayed JobState = "delayed"
	StateWaiting JobState = "waiting"
	StateActive  JobState = "active"
	StateFailed  JobState = "failed"
)

// JobKind tags the payload type carried by a job
type JobKind string

const (
	KindScheduleTrigger JobKind = "schedule_trigger"
	KindSend            JobKind = "send"
)

// BackoffType represents the retry delay growth strategy
type BackoffType string

const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"
)

// Backoff describes the retry delay policy for a job
type Backoff struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// Job is one durable unit of deferred work
type Job struct {
	ID          string          `json:"id"`
	Kind        JobKind         `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	State       JobState        `json:"state"`
	RunAt       time.Time       `json:"run_at"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Backoff     Backoff         `json:"backoff"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DecodePayload unmarshals the job payload into v
func (j *Job) DecodePayload(v interface{}) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", j.Kind, err)
	}
	return nil
}

// CampaignID extracts the campaign id every payload kind carries. Used for
// predicate-based purges without decoding the full payload.
func (j *Job) CampaignID() (int, error) {
	var p struct {
		CampaignID int `json:"campaign_id"`
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return 0, fmt.Errorf("failed to decode campaign id: %w", err)
	}
	return p.CampaignID, nil
}

// NextBackoff computes the retry delay for the job's current attempt count.
// Exponential backoff doubles per finished attempt, capped at one hour.
func (j *Job) NextBackoff() time.Duration {
	delay := j.Backoff.Delay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	if j.Backoff.Type == BackoffExponential && j.Attempts > 1 {
		shift := j.Attempts - 1
		if shift > 12 {
			shift = 12
		}
		delay = delay << shift
	}

	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

// ScheduleTrigger is the payload of a delayed campaign-start job
type ScheduleTrigger struct {
	CampaignID int `json:"campaign_id"`
}

// SendJob is the payload of one per-recipient dispatch job
type SendJob struct {
	CampaignID  int           `json:"campaign_id"`
	RecordID    int           `json:"record_id"`
	RecipientID int           `json:"recipient_id"`
	ChannelID   int           `json:"channel_id"`
	VariantID   int           `json:"variant_id"`
	Phone       string        `json:"phone"`
	Body        string        `json:"body"`
	Media       *models.Media `json:"media,omitempty"`
}

// EnqueueOptions controls delay and retry behavior for a new job
type EnqueueOptions struct {
	Delay       time.Duration
	MaxAttempts int
	Backoff     Backoff
}

// Queue is the producer-side contract the engine depends on: enqueue with a
// delay, list not-yet-run jobs, and remove them by id. The runner side
// (Dequeue and friends) stays on the concrete storage.
type Queue interface {
	Enqueue(ctx context.Context, kind JobKind, payload interface{}, opts EnqueueOptions) (*Job, error)
	List(ctx context.Context, states ...JobState) ([]*Job, error)
	Remove(ctx context.Context, id string) error
}
