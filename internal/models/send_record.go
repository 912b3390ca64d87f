package models

import "time"

// SendRecordStatus represents valid send record statuses
type SendRecordStatus string

const (
	SendRecordStatusPending SendRecordStatus = "pending"
	SendRecordStatusSent    SendRecordStatus = "sent"
	SendRecordStatusFailed  SendRecordStatus = "failed"
)

// SendRecord is the per-recipient ledger row for one planned send. Exactly
// one record exists per recipient per campaign, created at planning time;
// the count of pending records is the sole source of truth for completion.
type SendRecord struct {
	ID           int              `json:"id" db:"id"`
	CampaignID   int              `json:"campaign_id" db:"campaign_id"`
	RecipientID  int              `json:"recipient_id" db:"recipient_id"`
	VariantID    int              `json:"variant_id" db:"variant_id"`
	ChannelID    int              `json:"channel_id" db:"channel_id"`
	Status       SendRecordStatus `json:"status" db:"status"`
	SentAt       *time.Time       `json:"sent_at,omitempty" db:"sent_at"`
	ErrorMessage *string          `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// IsTerminal checks if the record has reached a final status
func (s *SendRecord) IsTerminal() bool {
	return s.Status == SendRecordStatusSent || s.Status == SendRecordStatusFailed
}
