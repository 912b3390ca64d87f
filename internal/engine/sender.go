package engine

import (
	"context"

	"sendwave/internal/models"
)

// SendRequest carries one delivery attempt to the send capability
type SendRequest struct {
	ChannelID int
	Phone     string
	Body      string
	Media     *models.Media
}

// SendResult is the capability's verdict on one attempt. Success=false is a
// terminal, already-classified failure; transient transport problems are
// reported through the error return instead.
type SendResult struct {
	Success bool
	Error   string
}

// Sender is the send capability boundary. The real implementation lives
// outside the engine and is injected.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}
