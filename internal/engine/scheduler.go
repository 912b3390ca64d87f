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

// Scheduler decides when the planner runs: immediately for due campaigns,
// via a delayed trigger job for future ones, and through the startup
// recovery sweep for scheduled starts the queue may have lost.
type Scheduler struct {
	stores  Stores
	planner *Planner
	queue   queue.Queue
	now     func() time.Time
}

// NewScheduler creates a campaign scheduler
func NewScheduler(stores Stores, planner *Planner, q queue.Queue) *Scheduler {
	return &Scheduler{
		stores:  stores,
		planner: planner,
		queue:   q,
		now:     time.Now,
	}
}

// Schedule starts the campaign at whenUTC. A start time at or before now
// runs the planner synchronously; a future one persists the scheduled
// status and defers to a delayed trigger job carrying only the campaign id.
func (s *Scheduler) Schedule(ctx context.Context, campaignID int, whenUTC time.Time) error {
	campaign, err := s.stores.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "campaign", ID: campaignID}
		}
		return fmt.Errorf("failed to load campaign: %w", err)
	}

	if !campaign.CanSchedule() {
		return &BusinessLogicError{
			Message: fmt.Sprintf("campaign cannot be scheduled: status is %s", campaign.Status),
		}
	}

	now := s.now().UTC()
	if !whenUTC.After(now) {
		return s.planner.Plan(ctx, campaignID)
	}

	if err := s.stores.Campaigns.MarkScheduled(ctx, campaignID, whenUTC); err != nil {
		return fmt.Errorf("failed to mark campaign scheduled: %w", err)
	}

	_, err = s.queue.Enqueue(ctx, queue.KindScheduleTrigger,
		queue.ScheduleTrigger{CampaignID: campaignID},
		queue.EnqueueOptions{Delay: whenUTC.Sub(now), MaxAttempts: 1},
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue schedule trigger: %w", err)
	}

	log.Printf("Campaign %d scheduled for %s", campaignID, whenUTC.Format(time.RFC3339))
	return nil
}

// CancelScheduled removes the pending trigger job and returns the campaign
// to draft. Idempotent: calling it on a campaign with no outstanding
// trigger is a no-op.
func (s *Scheduler) CancelScheduled(ctx context.Context, campaignID int) error {
	removed, err := purgeCampaignJobs(ctx, s.queue, campaignID, queue.KindScheduleTrigger)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Printf("Removed %d pending trigger job(s) for campaign %d", removed, campaignID)
	}

	if err := s.stores.Campaigns.ResetToDraft(ctx, campaignID); err != nil {
		return err
	}

	return nil
}

// RecoverDue is the startup reconciliation sweep: campaigns still marked
// scheduled whose start time has elapsed get planned now. Compensates for
// trigger jobs lost between enqueue and queue persistence, or for a queue
// that was down at the scheduled moment. Safe to call repeatedly.
func (s *Scheduler) RecoverDue(ctx context.Context) (int, error) {
	due, err := s.stores.Campaigns.ListDueScheduled(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list due campaigns: %w", err)
	}

	planned := 0
	for _, campaign := range due {
		if err := s.planner.Plan(ctx, campaign.ID); err != nil {
			log.Printf("ERROR: recovery planning failed for campaign %d: %v", campaign.ID, err)
			continue
		}
		planned++
	}

	if planned > 0 {
		log.Printf("Recovery sweep planned %d overdue campaign(s)", planned)
	}
	return planned, nil
}

// HandleTrigger is the queue handler for schedule trigger jobs. The status
// re-check is the guard against triggers that outlived a cancel or an
// earlier start through another path; a vanished campaign is a no-op since
// it may have been legitimately deleted.
func (s *Scheduler) HandleTrigger(ctx context.Context, job *queue.Job) error {
	var trigger queue.ScheduleTrigger
	if err := job.DecodePayload(&trigger); err != nil {
		return err
	}

	campaign, err := s.stores.Campaigns.GetByID(ctx, trigger.CampaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("Campaign %d no longer exists, trigger dropped", trigger.CampaignID)
			return nil
		}
		return fmt.Errorf("failed to load campaign: %w", err)
	}

	if campaign.Status != models.CampaignStatusScheduled {
		log.Printf("Campaign %d has status %s, trigger dropped", campaign.ID, campaign.Status)
		return nil
	}

	return s.planner.Plan(ctx, campaign.ID)
}

// purgeCampaignJobs removes every not-yet-run job of the given kinds whose
// payload belongs to the campaign. Best effort: a job that already left
// the queue is caught by the worker's status re-check instead.
func purgeCampaignJobs(ctx context.Context, q queue.Queue, campaignID int, kinds ...queue.JobKind) (int, error) {
	jobs, err := q.List(ctx, queue.StateDelayed, queue.StateWaiting)
	if err != nil {
		return 0, fmt.Errorf("failed to list queued jobs: %w", err)
	}

	match := make(map[queue.JobKind]bool, len(kinds))
	for _, k := range kinds {
		match[k] = true
	}

	removed := 0
	for _, job := range jobs {
		if !match[job.Kind] {
			continue
		}
		id, err := job.CampaignID()
		if err != nil || id != campaignID {
			continue
		}
		if err := q.Remove(ctx, job.ID); err != nil {
			return removed, fmt.Errorf("failed to remove job %s: %w", job.ID, err)
		}
		removed++
	}

	return removed, nil
}
