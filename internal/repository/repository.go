package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sendwave/internal/models"
)

// ErrNotFound is returned when a requested row does not exist. Callers that
// must distinguish "legitimately deleted" from transient store failures
// (the dispatch worker, the trigger handler) test for it with errors.Is.
var ErrNotFound = errors.New("not found")

// CampaignRepository defines campaign data access operations.
//
// Every status transition is expressed as a conditional UPDATE so that
// concurrent workers and at-least-once job redelivery cannot double-apply
// a transition, and every counter mutation is an in-database increment.
type CampaignRepository interface {
	GetByID(ctx context.Context, id int) (*models.Campaign, error)
	GetWithProgress(ctx context.Context, id int) (*models.CampaignWithProgress, error)
	// MarkScheduled sets status=scheduled and scheduled_at, from draft or scheduled.
	MarkScheduled(ctx context.Context, id int, at time.Time) error
	// ResetToDraft clears scheduled_at and returns the campaign to draft.
	// Safe to call on a campaign that is not scheduled (no-op).
	ResetToDraft(ctx context.Context, id int) error
	// MarkRunning sets status=running and started_at, from draft or scheduled.
	MarkRunning(ctx context.Context, id int, at time.Time) error
	// MarkCompleted sets status=completed and completed_at, only from running.
	// Returns true when this call performed the transition.
	MarkCompleted(ctx context.Context, id int, at time.Time) (bool, error)
	// Transition moves the campaign from any of the given statuses to the
	// target status. Returns true when a row was updated.
	Transition(ctx context.Context, id int, from []models.CampaignStatus, to models.CampaignStatus) (bool, error)
	// MarkCancelled sets status=cancelled and completed_at from any
	// cancellable status. Returns true when this call performed the transition.
	MarkCancelled(ctx context.Context, id int, at time.Time) (bool, error)
	IncrementTotalSent(ctx context.Context, id int) error
	IncrementTotalFailed(ctx context.Context, id int) error
	// ListDueScheduled returns campaigns with status=scheduled whose
	// scheduled_at is at or before the given time.
	ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Campaign, error)
}

// RecipientRepository defines recipient data access operations
type RecipientRepository interface {
	// ListByCampaign returns the campaign's recipients in list order.
	ListByCampaign(ctx context.Context, campaignID int) ([]*models.Recipient, error)
	GetByID(ctx context.Context, id int) (*models.Recipient, error)
}

// VariantRepository defines message variant data access operations
type VariantRepository interface {
	// ListByCampaign returns the campaign's variants in position order.
	ListByCampaign(ctx context.Context, campaignID int) ([]*models.MessageVariant, error)
	IncrementTimesUsed(ctx context.Context, id int) error
}

// ChannelRepository defines outbound channel data access operations
type ChannelRepository interface {
	// ListConnectedByCampaign returns the campaign's channels filtered to
	// the connected state, in association order.
	ListConnectedByCampaign(ctx context.Context, campaignID int) ([]*models.Channel, error)
	IncrementMessagesSent(ctx context.Context, campaignID, channelID int) error
}

// SendRecordRepository defines send record ledger operations
type SendRecordRepository interface {
	CreateBatch(ctx context.Context, records []*models.SendRecord) error
	GetByID(ctx context.Context, id int) (*models.SendRecord, error)
	// MarkSent transitions the record from pending to sent. Returns false
	// when the record was already terminal (redelivered job).
	MarkSent(ctx context.Context, id int, at time.Time) (bool, error)
	// MarkFailed transitions the record from pending to failed. Returns
	// false when the record was already terminal.
	MarkFailed(ctx context.Context, id int, at time.Time, errMsg string) (bool, error)
	CountPending(ctx context.Context, campaignID int) (int, error)
	// ListPendingByCampaign returns the campaign's pending records in
	// creation order (used by resume to rebuild the dispatch ladder).
	ListPendingByCampaign(ctx context.Context, campaignID int) ([]*models.SendRecord, error)
}

// DB is a wrapper around *sql.DB to allow passing in a transaction
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
