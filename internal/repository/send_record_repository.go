package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sendwave/internal/models"
)

type sendRecordRepository struct {
	db *sql.DB
}

// NewSendRecordRepository creates a new send record repository
func NewSendRecordRepository(db *sql.DB) SendRecordRepository {
	return &sendRecordRepository{db: db}
}

// CreateBatch inserts the planned records in one statement and fills their IDs
func (r *sendRecordRepository) CreateBatch(ctx context.Context, records []*models.SendRecord) error {
	if len(records) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(records))
	valueArgs := make([]interface{}, 0, len(records)*5)

	for i, record := range records {
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d)",
			i*5+1, i*5+2, i*5+3, i*5+4, i*5+5,
		))
		valueArgs = append(valueArgs,
			record.CampaignID,
			record.RecipientID,
			record.VariantID,
			record.ChannelID,
			record.Status,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO send_records (campaign_id, recipient_id, variant_id, channel_id, status)
		VALUES %s
		RETURNING id, created_at, updated_at
	`, strings.Join(valueStrings, ", "))

	rows, err := r.db.QueryContext(ctx, query, valueArgs...)
	if err != nil {
		return fmt.Errorf("failed to create send records: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(records) {
			break
		}
		if err := rows.Scan(&records[i].ID, &records[i].CreatedAt, &records[i].UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan send record id: %w", err)
		}
		i++
	}

	return rows.Err()
}

// GetByID retrieves a send record by ID
func (r *sendRecordRepository) GetByID(ctx context.Context, id int) (*models.SendRecord, error) {
	query := `
		SELECT id, campaign_id, recipient_id, variant_id, channel_id,
			status, sent_at, error_message, created_at, updated_at
		FROM send_records
		WHERE id = $1
	`

	record := &models.SendRecord{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.CampaignID,
		&record.RecipientID,
		&record.VariantID,
		&record.ChannelID,
		&record.Status,
		&record.SentAt,
		&record.ErrorMessage,
		&record.CreatedAt,
		&record.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("send record: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get send record: %w", err)
	}

	return record, nil
}

// MarkSent transitions the record from pending to sent. The status guard in
// the WHERE clause is the idempotency key for redelivered jobs: a record
// that already reached a terminal status reports false and stays untouched.
func (r *sendRecordRepository) MarkSent(ctx context.Context, id int, at time.Time) (bool, error) {
	query := `
		UPDATE send_records
		SET status = 'sent', sent_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark send record sent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// MarkFailed transitions the record from pending to failed with the error text
func (r *sendRecordRepository) MarkFailed(ctx context.Context, id int, at time.Time, errMsg string) (bool, error) {
	query := `
		UPDATE send_records
		SET status = 'failed', sent_at = $2, error_message = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, at, errMsg)
	if err != nil {
		return false, fmt.Errorf("failed to mark send record failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// CountPending counts the campaign's records still awaiting dispatch
func (r *sendRecordRepository) CountPending(ctx context.Context, campaignID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM send_records
		WHERE campaign_id = $1 AND status = 'pending'
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, campaignID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending send records: %w", err)
	}

	return count, nil
}

// ListPendingByCampaign retrieves the campaign's pending records in creation order
func (r *sendRecordRepository) ListPendingByCampaign(ctx context.Context, campaignID int) ([]*models.SendRecord, error) {
	query := `
		SELECT id, campaign_id, recipient_id, variant_id, channel_id,
			status, sent_at, error_message, created_at, updated_at
		FROM send_records
		WHERE campaign_id = $1 AND status = 'pending'
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending send records: %w", err)
	}
	defer rows.Close()

	records := []*models.SendRecord{}
	for rows.Next() {
		record := &models.SendRecord{}
		err := rows.Scan(
			&record.ID,
			&record.CampaignID,
			&record.RecipientID,
			&record.VariantID,
			&record.ChannelID,
			&record.Status,
			&record.SentAt,
			&record.ErrorMessage,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan send record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
