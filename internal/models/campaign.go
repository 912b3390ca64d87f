package models

import "time"

// CampaignStatus represents valid campaign statuses
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

// Campaign represents one configured bulk-send operation. It is created by
// the surrounding CRUD layer; from that point on only the engine advances
// its status, timestamps and counters.
type Campaign struct {
	ID                 int            `json:"id" db:"id"`
	OrgID              int            `json:"org_id" db:"org_id"`
	Name               string         `json:"name" db:"name"`
	Status             CampaignStatus `json:"status" db:"status"`
	ScheduledAt        *time.Time     `json:"scheduled_at,omitempty" db:"scheduled_at"`
	StartedAt          *time.Time     `json:"started_at,omitempty" db:"started_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	MinIntervalSeconds int            `json:"min_interval_seconds" db:"min_interval_seconds"`
	MaxIntervalSeconds int            `json:"max_interval_seconds" db:"max_interval_seconds"`
	TotalSent          int            `json:"total_sent" db:"total_sent"`
	TotalFailed        int            `json:"total_failed" db:"total_failed"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// CanSchedule checks if the campaign can be scheduled or started
func (c *Campaign) CanSchedule() bool {
	return c.Status == CampaignStatusDraft || c.Status == CampaignStatusScheduled
}

// CanPause checks if the campaign can be paused
func (c *Campaign) CanPause() bool {
	return c.Status == CampaignStatusRunning
}

// CanResume checks if the campaign can be resumed
func (c *Campaign) CanResume() bool {
	return c.Status == CampaignStatusPaused
}

// CanCancel checks if the campaign can be cancelled
func (c *Campaign) CanCancel() bool {
	switch c.Status {
	case CampaignStatusScheduled, CampaignStatusRunning, CampaignStatusPaused:
		return true
	}
	return false
}

// IsTerminal checks if the campaign has reached a final status
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignStatusCompleted || c.Status == CampaignStatusCancelled
}

// CampaignProgress represents dispatch progress for a campaign
type CampaignProgress struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// CampaignWithProgress represents a campaign with its dispatch progress
type CampaignWithProgress struct {
	Campaign
	Progress CampaignProgress `json:"progress"`
}
