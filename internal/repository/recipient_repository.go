package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sendwave/internal/models"
)

type recipientRepository struct {
	db *sql.DB
}

// NewRecipientRepository creates a new recipient repository
func NewRecipientRepository(db *sql.DB) RecipientRepository {
	return &recipientRepository{db: db}
}

// ListByCampaign retrieves the campaign's recipients in list order
func (r *recipientRepository) ListByCampaign(ctx context.Context, campaignID int) ([]*models.Recipient, error) {
	query := `
		SELECT id, campaign_id, phone, name, attributes, created_at
		FROM recipients
		WHERE campaign_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	recipients := []*models.Recipient{}
	for rows.Next() {
		recipient, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, recipient)
	}

	return recipients, rows.Err()
}

// GetByID retrieves a recipient by ID
func (r *recipientRepository) GetByID(ctx context.Context, id int) (*models.Recipient, error) {
	query := `
		SELECT id, campaign_id, phone, name, attributes, created_at
		FROM recipients
		WHERE id = $1
	`

	recipient, err := scanRecipient(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("recipient: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	return recipient, nil
}

func scanRecipient(row interface{ Scan(...interface{}) error }) (*models.Recipient, error) {
	recipient := &models.Recipient{}
	var attrs []byte

	err := row.Scan(
		&recipient.ID,
		&recipient.CampaignID,
		&recipient.Phone,
		&recipient.Name,
		&attrs,
		&recipient.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	// attributes is a JSONB column; NULL means no substitution data
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &recipient.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode recipient attributes: %w", err)
		}
	}

	return recipient, nil
}
