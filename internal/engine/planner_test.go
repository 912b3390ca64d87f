package engine

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"sendwave/internal/models"
	"sendwave/internal/queue"
	"sendwave/internal/repository"
)

func TestPlanner_Plan_DeterministicLadder(t *testing.T) {
	ctx := context.Background()
	stores := newMockStores()
	q := NewTestQueue(t)
	sink := &recordingSink{}

	// 3 recipients, 2 variants, 1 channel, fixed 30s interval
	campaign := NewTestCampaign(1, models.CampaignStatusDraft)
	stores.Campaigns.GetByIDFunc = func(ctx context.Context, id int) (*models.Campaign, error) {
		return campaign, nil
	}

	planner := NewPlanner(stores.Stores(), q, fixedJitter{}, DefaultRetryPolicy(), sink)
	AssertNoError(t, planner.Plan(ctx, 1))

	AssertEqual(t, stores.Records.Calls["CreateBatch"], 1)
	AssertEqual(t, stores.Campaigns.Calls["MarkRunning"], 1)

	jobs, err := q.List(ctx, queue.StateDelayed, queue.StateWaiting)
	AssertNoError(t, err)
	AssertEqual(t, len(jobs), 3)

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].RunAt.Before(jobs[j].RunAt) })

	base := jobs[0].RunAt
	for i, job := range jobs {
		AssertEqual(t, job.Kind, queue.KindSend)
		AssertEqual(t, job.MaxAttempts, 3)

		got := job.RunAt.Sub(base)
		want := time.Duration(i) * 30 * time.Second
		if diff := got - want; diff < -time.Second || diff > time.Second {
			t.Errorf("Job %d: expected delay %v from first job but got %v", i, want, got)
		}
	}

	// Variant rotation is [0, 1, 0] and the single channel serves every job
	var payloads []queue.SendJob
	for _, job := range jobs {
		var p queue.SendJob
		AssertNoError(t, job.DecodePayload(&p))
		payloads = append(payloads, p)
	}
	AssertEqual(t, payloads[0].VariantID, 200)
	AssertEqual(t, payloads[1].VariantID, 201)
	AssertEqual(t, payloads[2].VariantID, 200)
	for i, p := range payloads {
		AssertEqual(t, p.ChannelID, 300)
		AssertEqual(t, p.CampaignID, 1)
		if p.RecordID == 0 {
			t.Errorf("Job %d: payload carries no record id", i)
		}
	}

	// Bodies are rendered at planning time
	AssertEqual(t, payloads[0].Body, "Hello Recipient A")
	AssertEqual(t, payloads[1].Body, "Hello Recipient B")
	AssertEqual(t, payloads[2].Body, "Hello Recipient C")

	types := sink.Types()
	AssertEqual(t, len(types), 1)
	AssertEqual(t, types[0], EventCampaignStarted)
}

func TestPlanner_Plan_RoundRobinPeriod(t *testing.T) {
	ctx := context.Background()
	stores := newMockStores()
	q := NewTestQueue(t)

	stores.Recipients.ListByCampaignFunc = func(ctx context.Context, campaignID int) ([]*models.Recipient, error) {
		return NewTestRecipients(campaignID, 5), nil
	}
	stores.Channels.ListConnectedByCampaignFunc = func(ctx context.Context, campaignID int) ([]*models.Channel, error) {
		return NewTestChannels(3), nil
	}

	var created []*models.SendRecord
	stores.Records.CreateBatchFunc = func(ctx context.Context, records []*models.SendRecord) error {
		created = records
		for i, r := range records {
			r.ID = 1000 + i
		}
		return nil
	}

	planner := NewPlanner(stores.Stores(), q, fixedJitter{}, DefaultRetryPolicy(), nil)
	AssertNoError(t, planner.Plan(ctx, 1))

	AssertEqual(t, len(created), 5)
	wantVariants := []int{200, 201, 200, 201, 200}
	wantChannels := []int{300, 301, 302, 300, 301}
	for i, record := range created {
		AssertEqual(t, record.VariantID, wantVariants[i])
		AssertEqual(t, record.ChannelID, wantChannels[i])
		AssertEqual(t, record.Status, models.SendRecordStatusPending)
	}
}

func TestPlanner_Plan_RunsBeforeFirstJobIsVisible(t *testing.T) {
	ctx := context.Background()
	stores := newMockStores()
	q := NewTestQueue(t)

	// The first job can be due immediately, so the running transition must
	// land before anything reaches the queue
	stores.Campaigns.MarkRunningFunc = func(ctx context.Context, id int, at time.Time) error {
		jobs, err := q.List(ctx)
		AssertNoError(t, err)
		AssertEqual(t, len(jobs), 0)
		return nil
	}

	planner := NewPlanner(stores.Stores(), q, fixedJitter{}, DefaultRetryPolicy(), nil)
	AssertNoError(t, planner.Plan(ctx, 1))
	AssertEqual(t, stores.Campaigns.Calls["MarkRunning"], 1)
}

func TestPlanner_Plan_MissingConfiguration(t *testing.T) {
	cases := []struct {
		name  string
		setup func(stores *mockStores)
	}{
		{
			name: "no variants",
			setup: func(stores *mockStores) {
				stores.Variants.ListByCampaignFunc = func(ctx context.Context, campaignID int) ([]*models.MessageVariant, error) {
					return nil, nil
				}
			},
		},
		{
			name: "no connected channels",
			setup: func(stores *mockStores) {
				stores.Channels.ListConnectedByCampaignFunc = func(ctx context.Context, campaignID int) ([]*models.Channel, error) {
					return nil, nil
				}
			},
		},
		{
			name: "no recipients",
			setup: func(stores *mockStores) {
				stores.Recipients.ListByCampaignFunc = func(ctx context.Context, campaignID int) ([]*models.Recipient, error) {
					return nil, nil
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			stores := newMockStores()
			tc.setup(stores)
			q := NewTestQueue(t)

			planner := NewPlanner(stores.Stores(), q, fixedJitter{}, DefaultRetryPolicy(), nil)
			err := planner.Plan(ctx, 1)

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected ValidationError but got %v", err)
			}

			// Nothing persisted, nothing enqueued
			AssertEqual(t, stores.Records.Calls["CreateBatch"], 0)
			AssertEqual(t, stores.Campaigns.Calls["MarkRunning"], 0)
			jobs, listErr := q.List(ctx)
			AssertNoError(t, listErr)
			AssertEqual(t, len(jobs), 0)
		})
	}
}

func TestPlanner_Plan_SkipsNonSchedulableStatus(t *testing.T) {
	for _, status := range []models.CampaignStatus{
		models.CampaignStatusRunning,
		models.CampaignStatusPaused,
		models.CampaignStatusCompleted,
		models.CampaignStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			stores := newMockStores()
			stores.Campaigns.GetByIDFunc = func(ctx context.Context, id int) (*models.Campaign, error) {
				return NewTestCampaign(id, status), nil
			}
			q := NewTestQueue(t)

			planner := NewPlanner(stores.Stores(), q, fixedJitter{}, DefaultRetryPolicy(), nil)
			AssertNoError(t, planner.Plan(ctx, 1))

			AssertEqual(t, stores.Records.Calls["CreateBatch"], 0)
			jobs, err := q.List(ctx)
			AssertNoError(t, err)
			AssertEqual(t, len(jobs), 0)
		})
	}
}

func TestPlanner_Plan_CampaignNotFound(t *testing.T) {
	ctx := context.Background()
	stores := newMockStores()
	stores.Campaigns.GetByIDFunc = func(ctx context.Context, id int) (*models.Campaign, error) {
		return nil, repository.ErrNotFound
	}

	planner := NewPlanner(stores.Stores(), NewTestQueue(t), fixedJitter{}, DefaultRetryPolicy(), nil)
	err := planner.Plan(ctx, 42)

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError but got %v", err)
	}
	AssertEqual(t, notFound.ID, 42)
}

func TestPlanner_EnqueuePending(t *testing.T) {
	ctx := context.Background()
	stores := newMockStores()
	q := NewTestQueue(t)

	campaign := NewTestCampaign(1, models.CampaignStatusRunning)
	recipients := NewTestRecipients(1, 3)
	variants := NewTestVariants(1, 2)

	// Two of three records still pending after a pause purge
	pending := []*models.SendRecord{
		{ID: 1001, CampaignID: 1, RecipientID: recipients[1].ID, VariantID: variants[1].ID, ChannelID: 300, Status: models.SendRecordStatusPending},
		{ID: 1002, CampaignID: 1, RecipientID: recipients[2].ID, VariantID: variants[0].ID, ChannelID: 300, Status: models.SendRecordStatusPending},
	}
	stores.Records.ListPendingByCampaignFunc = func(ctx context.Context, campaignID int) ([]*models.SendRecord, error) {
		return pending, nil
	}

	planner := NewPlanner(stores.Stores(), q, fixedJitter{}, DefaultRetryPolicy(), nil)
	enqueued, err := planner.EnqueuePending(ctx, campaign)
	AssertNoError(t, err)
	AssertEqual(t, enqueued, 2)

	jobs, err := q.List(ctx, queue.StateDelayed, queue.StateWaiting)
	AssertNoError(t, err)
	AssertEqual(t, len(jobs), 2)

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].RunAt.Before(jobs[j].RunAt) })

	// Fresh ladder: first job immediate, second spaced by the interval
	gap := jobs[1].RunAt.Sub(jobs[0].RunAt)
	if diff := gap - 30*time.Second; diff < -time.Second || diff > time.Second {
		t.Errorf("Expected 30s gap between re-enqueued jobs but got %v", gap)
	}

	var first queue.SendJob
	AssertNoError(t, jobs[0].DecodePayload(&first))
	AssertEqual(t, first.RecordID, 1001)
	AssertEqual(t, first.Body, "Hello Recipient B")
}

func TestPlanner_EnqueuePending_SkipsOrphanedRecords(t *testing.T) {
	ctx := context.Background()
	stores := newMockStores()
	q := NewTestQueue(t)

	campaign := NewTestCampaign(1, models.CampaignStatusRunning)
	stores.Records.ListPendingByCampaignFunc = func(ctx context.Context, campaignID int) ([]*models.SendRecord, error) {
		return []*models.SendRecord{
			{ID: 1001, CampaignID: 1, RecipientID: 999, VariantID: 200, ChannelID: 300, Status: models.SendRecordStatusPending},
			{ID: 1002, CampaignID: 1, RecipientID: 100, VariantID: 200, ChannelID: 300, Status: models.SendRecordStatusPending},
		}, nil
	}

	planner := NewPlanner(stores.Stores(), q, fixedJitter{}, DefaultRetryPolicy(), nil)
	enqueued, err := planner.EnqueuePending(ctx, campaign)
	AssertNoError(t, err)
	AssertEqual(t, enqueued, 1)
}

func TestPlanner_EnqueuePending_NothingOwed(t *testing.T) {
	ctx := context.Background()
	stores := newMockStores()
	q := NewTestQueue(t)

	planner := NewPlanner(stores.Stores(), q, fixedJitter{}, DefaultRetryPolicy(), nil)
	enqueued, err := planner.EnqueuePending(ctx, NewTestCampaign(1, models.CampaignStatusRunning))
	AssertNoError(t, err)
	AssertEqual(t, enqueued, 0)

	// No recipient or variant loads when the ledger is already settled
	AssertEqual(t, stores.Recipients.Calls["ListByCampaign"], 0)
}
