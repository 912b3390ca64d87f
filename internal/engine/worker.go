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

// Worker executes one send job at a time (many run concurrently through
// the queue runner). Every handler invocation re-reads campaign status and
// the send record before acting, so redelivered and stale jobs degrade to
// no-ops instead of duplicate sends.
type Worker struct {
	stores Stores
	sender Sender
	sink   EventSink
	now    func() time.Time
}

// NewWorker creates a dispatch worker
func NewWorker(stores Stores, sender Sender, sink EventSink) *Worker {
	if sink == nil {
		sink = NopSink{}
	}

	return &Worker{
		stores: stores,
		sender: sender,
		sink:   sink,
		now:    time.Now,
	}
}

// HandleSend is the queue handler for send jobs.
//
// A capability result with Success=false is terminal for the job: recorded
// as failed, counted, not retried. A capability error is transient and
// returned to the runner for backoff retry; on the final attempt the
// failure is written to the ledger before the job is surrendered.
func (w *Worker) HandleSend(ctx context.Context, job *queue.Job) error {
	var payload queue.SendJob
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	campaign, err := w.stores.Campaigns.GetByID(ctx, payload.CampaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("Campaign %d no longer exists, send job dropped", payload.CampaignID)
			return nil
		}
		return fmt.Errorf("failed to load campaign: %w", err)
	}

	// Pause and cancel take effect here for jobs that escaped the purge
	if campaign.Status != models.CampaignStatusRunning {
		log.Printf("Campaign %d has status %s, send to %s skipped",
			campaign.ID, campaign.Status, payload.Phone)
		return nil
	}

	record, err := w.stores.Records.GetByID(ctx, payload.RecordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("Send record %d no longer exists, job dropped", payload.RecordID)
			return nil
		}
		return fmt.Errorf("failed to load send record: %w", err)
	}

	// Redelivered job whose first execution already landed. The earlier
	// delivery may have died between the terminal write and the completion
	// check, so settle the campaign before dropping the job.
	if record.IsTerminal() {
		log.Printf("Send record %d already %s, job dropped", record.ID, record.Status)
		return w.checkCompletion(ctx, payload.CampaignID)
	}

	result, err := w.sender.Send(ctx, SendRequest{
		ChannelID: payload.ChannelID,
		Phone:     payload.Phone,
		Body:      payload.Body,
		Media:     payload.Media,
	})
	if err != nil {
		if job.Attempts+1 >= job.MaxAttempts {
			// Last attempt: the ledger must reflect the loss before the
			// runner buries the job
			if recErr := w.recordFailure(ctx, &payload, fmt.Sprintf("send capability error: %v", err)); recErr != nil {
				log.Printf("ERROR: final failure for record %d not recorded: %v", payload.RecordID, recErr)
			}
		}
		return fmt.Errorf("send capability error: %w", err)
	}

	if result.Success {
		return w.recordSuccess(ctx, &payload)
	}
	return w.recordFailure(ctx, &payload, result.Error)
}

// recordSuccess and recordFailure return ledger write errors to the runner
// so the job is redelivered; the conditional updates make the re-execution
// harmless. Counter increments stay best effort because a redelivery after
// the terminal write never reaches them again.
func (w *Worker) recordSuccess(ctx context.Context, payload *queue.SendJob) error {
	updated, err := w.stores.Records.MarkSent(ctx, payload.RecordID, w.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark send record %d sent: %w", payload.RecordID, err)
	}
	if !updated {
		// Concurrent redelivery already counted this send
		return nil
	}

	if err := w.stores.Campaigns.IncrementTotalSent(ctx, payload.CampaignID); err != nil {
		log.Printf("ERROR: failed to increment total_sent for campaign %d: %v", payload.CampaignID, err)
	}
	if err := w.stores.Channels.IncrementMessagesSent(ctx, payload.CampaignID, payload.ChannelID); err != nil {
		log.Printf("ERROR: failed to increment messages_sent for channel %d: %v", payload.ChannelID, err)
	}
	if err := w.stores.Variants.IncrementTimesUsed(ctx, payload.VariantID); err != nil {
		log.Printf("ERROR: failed to increment times_used for variant %d: %v", payload.VariantID, err)
	}

	w.publish(ctx, Event{
		Type:       EventSendSucceeded,
		CampaignID: payload.CampaignID,
		RecordID:   payload.RecordID,
		OccurredAt: w.now().UTC(),
	})

	return w.checkCompletion(ctx, payload.CampaignID)
}

func (w *Worker) recordFailure(ctx context.Context, payload *queue.SendJob, errMsg string) error {
	updated, err := w.stores.Records.MarkFailed(ctx, payload.RecordID, w.now().UTC(), errMsg)
	if err != nil {
		return fmt.Errorf("failed to mark send record %d failed: %w", payload.RecordID, err)
	}
	if !updated {
		return nil
	}

	if err := w.stores.Campaigns.IncrementTotalFailed(ctx, payload.CampaignID); err != nil {
		log.Printf("ERROR: failed to increment total_failed for campaign %d: %v", payload.CampaignID, err)
	}

	w.publish(ctx, Event{
		Type:       EventSendFailed,
		CampaignID: payload.CampaignID,
		RecordID:   payload.RecordID,
		Detail:     errMsg,
		OccurredAt: w.now().UTC(),
	})

	return w.checkCompletion(ctx, payload.CampaignID)
}

// checkCompletion runs after every terminal record update. Whichever job
// drains the last pending record performs the transition; the conditional
// UPDATE in MarkCompleted keeps a duplicate trigger harmless. A store error
// propagates so the runner redelivers the job and the check runs again.
func (w *Worker) checkCompletion(ctx context.Context, campaignID int) error {
	pending, err := w.stores.Records.CountPending(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to count pending records for campaign %d: %w", campaignID, err)
	}
	if pending > 0 {
		return nil
	}

	completed, err := w.stores.Campaigns.MarkCompleted(ctx, campaignID, w.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark campaign %d completed: %w", campaignID, err)
	}
	if !completed {
		return nil
	}

	log.Printf("Campaign %d completed", campaignID)
	w.publish(ctx, Event{
		Type:       EventCampaignCompleted,
		CampaignID: campaignID,
		OccurredAt: w.now().UTC(),
	})
	return nil
}

func (w *Worker) publish(ctx context.Context, evt Event) {
	if err := w.sink.Publish(ctx, evt); err != nil {
		log.Printf("WARNING: failed to publish %s event for campaign %d: %v", evt.Type, evt.CampaignID, err)
	}
}
