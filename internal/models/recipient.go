package models

import "time"

// Recipient represents one contact a campaign delivers to
type Recipient struct {
	ID         int               `json:"id" db:"id"`
	CampaignID int               `json:"campaign_id" db:"campaign_id"`
	Phone      string            `json:"phone" db:"phone"`
	Name       string            `json:"name" db:"name"`
	Attributes map[string]string `json:"attributes,omitempty" db:"attributes"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// DisplayName returns the name used for template substitution
func (r *Recipient) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Phone
}
