package models

import (
	"fmt"
	"time"
)

// MediaType represents valid media attachment types
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
)

// Media represents an optional media attachment on a variant
type Media struct {
	Type MediaType `json:"type" db:"media_type"`
	URL  string    `json:"url" db:"media_url"`
}

// Validate checks if the media reference is valid
func (m *Media) Validate() error {
	if m.Type != MediaTypeImage && m.Type != MediaTypeAudio && m.Type != MediaTypeVideo {
		return fmt.Errorf("invalid media type: must be 'image', 'audio' or 'video'")
	}
	if m.URL == "" {
		return fmt.Errorf("media url is required")
	}
	return nil
}

// MessageVariant represents one candidate message template rotated across
// recipients. Variants are position-ordered within a campaign and are never
// removed while the campaign runs.
type MessageVariant struct {
	ID         int       `json:"id" db:"id"`
	CampaignID int       `json:"campaign_id" db:"campaign_id"`
	Position   int       `json:"position" db:"position"`
	Body       string    `json:"body" db:"body"`
	Media      *Media    `json:"media,omitempty"`
	TimesUsed  int       `json:"times_used" db:"times_used"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
