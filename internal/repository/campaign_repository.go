package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"sendwave/internal/models"
)

type campaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

const campaignColumns = `
	id, org_id, name, status, scheduled_at, started_at, completed_at,
	min_interval_seconds, max_interval_seconds, total_sent, total_failed,
	created_at, updated_at
`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	err := row.Scan(
		&campaign.ID,
		&campaign.OrgID,
		&campaign.Name,
		&campaign.Status,
		&campaign.ScheduledAt,
		&campaign.StartedAt,
		&campaign.CompletedAt,
		&campaign.MinIntervalSeconds,
		&campaign.MaxIntervalSeconds,
		&campaign.TotalSent,
		&campaign.TotalFailed,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return campaign, nil
}

// GetByID retrieves a campaign by ID
func (r *campaignRepository) GetByID(ctx context.Context, id int) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	campaign, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("campaign: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return campaign, nil
}

// GetWithProgress retrieves a campaign with its dispatch progress
func (r *campaignRepository) GetWithProgress(ctx context.Context, id int) (*models.CampaignWithProgress, error) {
	campaign, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	progressQuery := `
		SELECT
			COUNT(*) as total,
			COUNT(*) FILTER (WHERE status = 'pending') as pending,
			COUNT(*) FILTER (WHERE status = 'sent') as sent,
			COUNT(*) FILTER (WHERE status = 'failed') as failed
		FROM send_records
		WHERE campaign_id = $1
	`

	progress := models.CampaignProgress{}
	err = r.db.QueryRowContext(ctx, progressQuery, id).Scan(
		&progress.Total,
		&progress.Pending,
		&progress.Sent,
		&progress.Failed,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get campaign progress: %w", err)
	}

	return &models.CampaignWithProgress{
		Campaign: *campaign,
		Progress: progress,
	}, nil
}

// MarkScheduled sets the campaign as scheduled for a future start
func (r *campaignRepository) MarkScheduled(ctx context.Context, id int, at time.Time) error {
	query := `
		UPDATE campaigns
		SET status = 'scheduled', scheduled_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ('draft', 'scheduled')
	`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark campaign scheduled: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("campaign not schedulable")
	}

	return nil
}

// ResetToDraft returns a scheduled campaign to draft and clears its start time
func (r *campaignRepository) ResetToDraft(ctx context.Context, id int) error {
	query := `
		UPDATE campaigns
		SET status = 'draft', scheduled_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'scheduled'
	`

	// Zero rows affected is fine: the campaign was never scheduled, or the
	// reset already happened.
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to reset campaign to draft: %w", err)
	}

	return nil
}

// MarkRunning transitions the campaign to running and stamps started_at
func (r *campaignRepository) MarkRunning(ctx context.Context, id int, at time.Time) error {
	query := `
		UPDATE campaigns
		SET status = 'running', started_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ('draft', 'scheduled')
	`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark campaign running: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("campaign not startable")
	}

	return nil
}

// MarkCompleted transitions the campaign to completed. The conditional WHERE
// makes a duplicate trigger from at-least-once redelivery a harmless no-op.
func (r *campaignRepository) MarkCompleted(ctx context.Context, id int, at time.Time) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = 'completed', completed_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'running'
	`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark campaign completed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// Transition moves the campaign between statuses with a guarded source set
func (r *campaignRepository) Transition(ctx context.Context, id int, from []models.CampaignStatus, to models.CampaignStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	query := `
		UPDATE campaigns
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = ANY($3)
	`

	result, err := r.db.ExecContext(ctx, query, id, to, pq.Array(statuses))
	if err != nil {
		return false, fmt.Errorf("failed to transition campaign: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// MarkCancelled transitions the campaign to cancelled and stamps completed_at
func (r *campaignRepository) MarkCancelled(ctx context.Context, id int, at time.Time) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = 'cancelled', completed_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ('scheduled', 'running', 'paused')
	`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark campaign cancelled: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// IncrementTotalSent atomically bumps the sent counter
func (r *campaignRepository) IncrementTotalSent(ctx context.Context, id int) error {
	query := `
		UPDATE campaigns
		SET total_sent = total_sent + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment total_sent: %w", err)
	}

	return nil
}

// IncrementTotalFailed atomically bumps the failed counter
func (r *campaignRepository) IncrementTotalFailed(ctx context.Context, id int) error {
	query := `
		UPDATE campaigns
		SET total_failed = total_failed + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment total_failed: %w", err)
	}

	return nil
}

// ListDueScheduled returns scheduled campaigns whose start time has elapsed
func (r *campaignRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due scheduled campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}

	return campaigns, rows.Err()
}
