package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sendwave/internal/models"
	"sendwave/internal/queue"
	"sendwave/internal/repository"
)

// Lifecycle applies user-driven pause, resume and cancel actions.
// Cancellation is two layered and best-effort: queued jobs are purged by
// campaign predicate, and anything already dequeued is neutralized by the
// worker's status re-check.
type Lifecycle struct {
	stores  Stores
	planner *Planner
	queue   queue.Queue
	sink    EventSink
	now     func() time.Time
}

// NewLifecycle creates a lifecycle controller
func NewLifecycle(stores Stores, planner *Planner, q queue.Queue, sink EventSink) *Lifecycle {
	if sink == nil {
		sink = NopSink{}
	}

	return &Lifecycle{
		stores:  stores,
		planner: planner,
		queue:   q,
		sink:    sink,
		now:     time.Now,
	}
}

// Pause halts a running campaign and purges its queued send jobs
func (l *Lifecycle) Pause(ctx context.Context, campaignID int) error {
	campaign, err := l.load(ctx, campaignID)
	if err != nil {
		return err
	}

	if !campaign.CanPause() {
		return &BusinessLogicError{
			Message: fmt.Sprintf("campaign cannot be paused: status is %s", campaign.Status),
		}
	}

	paused, err := l.stores.Campaigns.Transition(ctx, campaignID,
		[]models.CampaignStatus{models.CampaignStatusRunning}, models.CampaignStatusPaused)
	if err != nil {
		return fmt.Errorf("failed to pause campaign: %w", err)
	}
	if !paused {
		return &ConflictError{Resource: "campaign", Message: "status changed concurrently"}
	}

	removed, err := purgeCampaignJobs(ctx, l.queue, campaignID, queue.KindSend)
	if err != nil {
		return err
	}

	log.Printf("Campaign %d paused, %d queued job(s) removed", campaignID, removed)
	l.publish(ctx, Event{
		Type:       EventCampaignPaused,
		CampaignID: campaignID,
		OccurredAt: l.now().UTC(),
	})

	return nil
}

// Resume restarts a paused campaign. The pause purge removed its queued
// jobs, so the still-pending ledger records are re-enqueued with a fresh
// jitter ladder; no new records are created.
func (l *Lifecycle) Resume(ctx context.Context, campaignID int) error {
	campaign, err := l.load(ctx, campaignID)
	if err != nil {
		return err
	}

	if !campaign.CanResume() {
		return &BusinessLogicError{
			Message: fmt.Sprintf("campaign cannot be resumed: status is %s", campaign.Status),
		}
	}

	resumed, err := l.stores.Campaigns.Transition(ctx, campaignID,
		[]models.CampaignStatus{models.CampaignStatusPaused}, models.CampaignStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to resume campaign: %w", err)
	}
	if !resumed {
		return &ConflictError{Resource: "campaign", Message: "status changed concurrently"}
	}

	enqueued, err := l.planner.EnqueuePending(ctx, campaign)
	if err != nil {
		return err
	}

	log.Printf("Campaign %d resumed, %d job(s) re-enqueued", campaignID, enqueued)
	l.publish(ctx, Event{
		Type:       EventCampaignResumed,
		CampaignID: campaignID,
		OccurredAt: l.now().UTC(),
	})

	return nil
}

// Cancel terminates the campaign and purges every queued job belonging to
// it, trigger and send jobs alike
func (l *Lifecycle) Cancel(ctx context.Context, campaignID int) error {
	campaign, err := l.load(ctx, campaignID)
	if err != nil {
		return err
	}

	if !campaign.CanCancel() {
		return &BusinessLogicError{
			Message: fmt.Sprintf("campaign cannot be cancelled: status is %s", campaign.Status),
		}
	}

	cancelled, err := l.stores.Campaigns.MarkCancelled(ctx, campaignID, l.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to cancel campaign: %w", err)
	}
	if !cancelled {
		return &ConflictError{Resource: "campaign", Message: "status changed concurrently"}
	}

	removed, err := purgeCampaignJobs(ctx, l.queue, campaignID,
		queue.KindSend, queue.KindScheduleTrigger)
	if err != nil {
		return err
	}

	log.Printf("Campaign %d cancelled, %d queued job(s) removed", campaignID, removed)
	l.publish(ctx, Event{
		Type:       EventCampaignCancelled,
		CampaignID: campaignID,
		OccurredAt: l.now().UTC(),
	})

	return nil
}

func (l *Lifecycle) load(ctx context.Context, campaignID int) (*models.Campaign, error) {
	campaign, err := l.stores.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "campaign", ID: campaignID}
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	return campaign, nil
}

func (l *Lifecycle) publish(ctx context.Context, evt Event) {
	if err := l.sink.Publish(ctx, evt); err != nil {
		log.Printf("WARNING: failed to publish %s event for campaign %d: %v", evt.Type, evt.CampaignID, err)
	}
}
