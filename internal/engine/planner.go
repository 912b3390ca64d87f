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

// RetryPolicy controls the queue-level retry behavior of send jobs
type RetryPolicy struct {
	MaxAttempts  int
	BackoffDelay time.Duration
}

// DefaultRetryPolicy returns the standard send retry policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		BackoffDelay: 5 * time.Second,
	}
}

// Planner expands a campaign into its per-recipient send jobs. Planning is
// a one-shot operation: it creates the send record ledger, transitions the
// campaign to running, and enqueues one delayed job per recipient.
type Planner struct {
	stores Stores
	queue  queue.Queue
	jitter Jitter
	retry  RetryPolicy
	sink   EventSink
	now    func() time.Time
}

// NewPlanner creates a campaign planner
func NewPlanner(stores Stores, q queue.Queue, jitter Jitter, retry RetryPolicy, sink EventSink) *Planner {
	if jitter == nil {
		jitter = NewDefaultJitter()
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	if sink == nil {
		sink = NopSink{}
	}

	return &Planner{
		stores: stores,
		queue:  q,
		jitter: jitter,
		retry:  retry,
		sink:   sink,
		now:    time.Now,
	}
}

// Plan expands the campaign into send jobs and transitions it to running.
//
// Re-invoking Plan on a campaign that already left draft/scheduled is a
// no-op, which makes the recovery sweep and redelivered trigger jobs safe.
// Configuration errors (no variants, no connected channels, no recipients)
// are reported as ValidationError and leave the campaign untouched.
func (p *Planner) Plan(ctx context.Context, campaignID int) error {
	campaign, err := p.stores.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "campaign", ID: campaignID}
		}
		return fmt.Errorf("failed to load campaign: %w", err)
	}

	if !campaign.CanSchedule() {
		log.Printf("Campaign %d has status %s, planning skipped", campaignID, campaign.Status)
		return nil
	}

	variants, err := p.stores.Variants.ListByCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to load variants: %w", err)
	}
	if len(variants) == 0 {
		return &ValidationError{Message: "campaign has no message variants"}
	}

	channels, err := p.stores.Channels.ListConnectedByCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to load channels: %w", err)
	}
	if len(channels) == 0 {
		return &ValidationError{Message: "campaign has no connected channels"}
	}

	recipients, err := p.stores.Recipients.ListByCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to load recipients: %w", err)
	}
	if len(recipients) == 0 {
		return &ValidationError{Message: "campaign has no recipients"}
	}

	// One pending record per recipient, with variant and channel assigned
	// round-robin by recipient index
	records := make([]*models.SendRecord, 0, len(recipients))
	bodies := make([]string, 0, len(recipients))
	for i, recipient := range recipients {
		variant := variants[i%len(variants)]
		channel := channels[i%len(channels)]

		records = append(records, &models.SendRecord{
			CampaignID:  campaignID,
			RecipientID: recipient.ID,
			VariantID:   variant.ID,
			ChannelID:   channel.ID,
			Status:      models.SendRecordStatusPending,
		})
		bodies = append(bodies, Render(variant.Body, recipient))
	}

	if err := p.stores.Records.CreateBatch(ctx, records); err != nil {
		return fmt.Errorf("failed to create send records: %w", err)
	}

	// The first job may carry zero delay, so the campaign must be running
	// before anything can be dequeued or the worker would skip it.
	if err := p.stores.Campaigns.MarkRunning(ctx, campaignID, p.now().UTC()); err != nil {
		return fmt.Errorf("failed to mark campaign running: %w", err)
	}

	delay := time.Duration(0)
	for i, recipient := range recipients {
		if i > 0 {
			delay += p.jitter.Between(campaign.MinIntervalSeconds, campaign.MaxIntervalSeconds)
		}

		variant := variants[i%len(variants)]
		if err := p.enqueueSend(ctx, records[i], recipient, variant, bodies[i], delay); err != nil {
			return err
		}
	}

	log.Printf("Planned campaign %d: %d jobs across %d variants and %d channels",
		campaignID, len(recipients), len(variants), len(channels))

	p.publish(ctx, Event{
		Type:       EventCampaignStarted,
		CampaignID: campaignID,
		OccurredAt: p.now().UTC(),
	})

	return nil
}

// EnqueuePending rebuilds the dispatch ladder for records still pending,
// with a fresh cumulative jitter sequence. Used by resume: the pause purge
// removed the original jobs but the ledger still knows what is owed.
func (p *Planner) EnqueuePending(ctx context.Context, campaign *models.Campaign) (int, error) {
	records, err := p.stores.Records.ListPendingByCampaign(ctx, campaign.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending send records: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	recipients, err := p.stores.Recipients.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load recipients: %w", err)
	}
	recipientByID := make(map[int]*models.Recipient, len(recipients))
	for _, r := range recipients {
		recipientByID[r.ID] = r
	}

	variants, err := p.stores.Variants.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load variants: %w", err)
	}
	variantByID := make(map[int]*models.MessageVariant, len(variants))
	for _, v := range variants {
		variantByID[v.ID] = v
	}

	enqueued := 0
	delay := time.Duration(0)
	for _, record := range records {
		recipient, ok := recipientByID[record.RecipientID]
		if !ok {
			log.Printf("Recipient %d missing for send record %d, skipping", record.RecipientID, record.ID)
			continue
		}
		variant, ok := variantByID[record.VariantID]
		if !ok {
			log.Printf("Variant %d missing for send record %d, skipping", record.VariantID, record.ID)
			continue
		}

		if enqueued > 0 {
			delay += p.jitter.Between(campaign.MinIntervalSeconds, campaign.MaxIntervalSeconds)
		}

		body := Render(variant.Body, recipient)
		if err := p.enqueueSend(ctx, record, recipient, variant, body, delay); err != nil {
			return enqueued, err
		}
		enqueued++
	}

	return enqueued, nil
}

func (p *Planner) enqueueSend(ctx context.Context, record *models.SendRecord, recipient *models.Recipient, variant *models.MessageVariant, body string, delay time.Duration) error {
	payload := queue.SendJob{
		CampaignID:  record.CampaignID,
		RecordID:    record.ID,
		RecipientID: recipient.ID,
		ChannelID:   record.ChannelID,
		VariantID:   variant.ID,
		Phone:       recipient.Phone,
		Body:        body,
		Media:       variant.Media,
	}

	_, err := p.queue.Enqueue(ctx, queue.KindSend, payload, queue.EnqueueOptions{
		Delay:       delay,
		MaxAttempts: p.retry.MaxAttempts,
		Backoff: queue.Backoff{
			Type:  queue.BackoffExponential,
			Delay: p.retry.BackoffDelay,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue send job for record %d: %w", record.ID, err)
	}

	return nil
}

func (p *Planner) publish(ctx context.Context, evt Event) {
	if err := p.sink.Publish(ctx, evt); err != nil {
		log.Printf("WARNING: failed to publish %s event for campaign %d: %v", evt.Type, evt.CampaignID, err)
	}
}
