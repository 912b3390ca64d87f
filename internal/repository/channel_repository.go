package repository

import (
	"context"
	"database/sql"
	"fmt"

	"sendwave/internal/models"
)

type channelRepository struct {
	db *sql.DB
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *sql.DB) ChannelRepository {
	return &channelRepository{db: db}
}

// ListConnectedByCampaign retrieves the campaign's channels filtered to the
// connected state, in association order
func (r *channelRepository) ListConnectedByCampaign(ctx context.Context, campaignID int) ([]*models.Channel, error) {
	query := `
		SELECT ch.id, ch.org_id, ch.number, ch.state, ch.created_at
		FROM channels ch
		JOIN campaign_channels cc ON cc.channel_id = ch.id
		WHERE cc.campaign_id = $1 AND ch.state = 'connected'
		ORDER BY ch.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected channels: %w", err)
	}
	defer rows.Close()

	channels := []*models.Channel{}
	for rows.Next() {
		channel := &models.Channel{}
		err := rows.Scan(
			&channel.ID,
			&channel.OrgID,
			&channel.Number,
			&channel.State,
			&channel.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, channel)
	}

	return channels, rows.Err()
}

// IncrementMessagesSent atomically bumps the association's delivery counter
func (r *channelRepository) IncrementMessagesSent(ctx context.Context, campaignID, channelID int) error {
	query := `
		UPDATE campaign_channels
		SET messages_sent = messages_sent + 1
		WHERE campaign_id = $1 AND channel_id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, campaignID, channelID); err != nil {
		return fmt.Errorf("failed to increment messages_sent: %w", err)
	}

	return nil
}
