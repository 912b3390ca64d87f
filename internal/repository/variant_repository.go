package repository

import (
	"context"
	"database/sql"
	"fmt"

	"sendwave/internal/models"
)

type variantRepository struct {
	db *sql.DB
}

// NewVariantRepository creates a new message variant repository
func NewVariantRepository(db *sql.DB) VariantRepository {
	return &variantRepository{db: db}
}

// ListByCampaign retrieves the campaign's variants in position order
func (r *variantRepository) ListByCampaign(ctx context.Context, campaignID int) ([]*models.MessageVariant, error) {
	query := `
		SELECT id, campaign_id, position, body, media_type, media_url, times_used, created_at
		FROM message_variants
		WHERE campaign_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	variants := []*models.MessageVariant{}
	for rows.Next() {
		variant := &models.MessageVariant{}
		var mediaType, mediaURL sql.NullString

		err := rows.Scan(
			&variant.ID,
			&variant.CampaignID,
			&variant.Position,
			&variant.Body,
			&mediaType,
			&mediaURL,
			&variant.TimesUsed,
			&variant.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}

		if mediaType.Valid && mediaURL.Valid {
			variant.Media = &models.Media{
				Type: models.MediaType(mediaType.String),
				URL:  mediaURL.String,
			}
		}

		variants = append(variants, variant)
	}

	return variants, rows.Err()
}

// IncrementTimesUsed atomically bumps the variant usage counter
func (r *variantRepository) IncrementTimesUsed(ctx context.Context, id int) error {
	query := `
		UPDATE message_variants
		SET times_used = times_used + 1
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment times_used: %w", err)
	}

	return nil
}
