package engine

import (
	"context"
	"time"
)

// EventType tags an engine event
type EventType string

const (
	EventCampaignStarted   EventType = "campaign.started"
	EventCampaignPaused    EventType = "campaign.paused"
	EventCampaignResumed   EventType = "campaign.resumed"
	EventCampaignCancelled EventType = "campaign.cancelled"
	EventCampaignCompleted EventType = "campaign.completed"
	EventSendSucceeded     EventType = "send.sent"
	EventSendFailed        EventType = "send.failed"
)

// Event is a lifecycle or delivery notification emitted for the
// surrounding system (webhook dispatch, audit trail).
type Event struct {
	Type       EventType `json:"type"`
	CampaignID int       `json:"campaign_id"`
	RecordID   int       `json:"record_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventSink receives engine events. Publishing is best-effort: the engine
// logs failures but never fails an operation over a lost event.
type EventSink interface {
	Publish(ctx context.Context, evt Event) error
}

// NopSink discards events
type NopSink struct{}

// Publish implements EventSink
func (NopSink) Publish(ctx context.Context, evt Event) error { return nil }
