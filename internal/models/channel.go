package models

import "time"

// ChannelState represents the connection state of an outbound channel
type ChannelState string

const (
	ChannelStateConnected    ChannelState = "connected"
	ChannelStateDisconnected ChannelState = "disconnected"
	ChannelStateBanned       ChannelState = "banned"
)

// Channel represents an outbound sending identity (a connected number).
// Only channels in the connected state participate in rotation.
type Channel struct {
	ID        int          `json:"id" db:"id"`
	OrgID     int          `json:"org_id" db:"org_id"`
	Number    string       `json:"number" db:"number"`
	State     ChannelState `json:"state" db:"state"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// IsConnected checks if the channel can send
func (c *Channel) IsConnected() bool {
	return c.State == ChannelStateConnected
}

// CampaignChannel represents the association between a campaign and one of
// its channels, carrying per-channel delivery counters.
type CampaignChannel struct {
	CampaignID      int `json:"campaign_id" db:"campaign_id"`
	ChannelID       int `json:"channel_id" db:"channel_id"`
	MessagesSent    int `json:"messages_sent" db:"messages_sent"`
	RepliesReceived int `json:"replies_received" db:"replies_received"`
}
