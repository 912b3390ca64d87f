package engine

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sendwave/internal/models"
	"sendwave/internal/queue"
)

// AssertNoError checks that no error occurred
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("Expected no error but got: %v", err)
	}
}

// AssertEqual checks if two values are equal
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("Expected %v but got %v", want, got)
	}
}

// AssertContains checks if string contains substring
func AssertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("Expected %q to contain %q", haystack, needle)
	}
}

// NewTestCampaign creates a campaign fixture in the given status
func NewTestCampaign(id int, status models.CampaignStatus) *models.Campaign {
	return &models.Campaign{
		ID:                 id,
		OrgID:              1,
		Name:               "Test Campaign",
		Status:             status,
		MinIntervalSeconds: 30,
		MaxIntervalSeconds: 30,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
}

// NewTestRecipients creates n recipient fixtures for the campaign
func NewTestRecipients(campaignID, n int) []*models.Recipient {
	recipients := make([]*models.Recipient, n)
	for i := 0; i < n; i++ {
		recipients[i] = &models.Recipient{
			ID:         100 + i,
			CampaignID: campaignID,
			Phone:      "+25470000000" + string(rune('1'+i)),
			Name:       "Recipient " + string(rune('A'+i)),
		}
	}
	return recipients
}

// NewTestVariants creates n variant fixtures for the campaign
func NewTestVariants(campaignID, n int) []*models.MessageVariant {
	variants := make([]*models.MessageVariant, n)
	for i := 0; i < n; i++ {
		variants[i] = &models.MessageVariant{
			ID:         200 + i,
			CampaignID: campaignID,
			Position:   i,
			Body:       "Hello {name}",
		}
	}
	return variants
}

// NewTestChannels creates n connected channel fixtures
func NewTestChannels(n int) []*models.Channel {
	channels := make([]*models.Channel, n)
	for i := 0; i < n; i++ {
		channels[i] = &models.Channel{
			ID:     300 + i,
			OrgID:  1,
			Number: "+25471111111" + string(rune('1'+i)),
			State:  models.ChannelStateConnected,
		}
	}
	return channels
}

// NewTestQueue creates a real bolt-backed queue in a temp directory
func NewTestQueue(t *testing.T) *queue.BoltQueue {
	t.Helper()
	q, err := queue.NewBoltQueue(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Failed to open test queue: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

// fixedJitter always returns the minimum, for deterministic delay ladders
type fixedJitter struct{}

func (fixedJitter) Between(minSeconds, maxSeconds int) time.Duration {
	return time.Duration(minSeconds) * time.Second
}

// stubSender delegates to a func field; default is unconditional success
type stubSender struct {
	SendFunc func(ctx context.Context, req SendRequest) (*SendResult, error)
	mu       sync.Mutex
	Requests []SendRequest
}

func (s *stubSender) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	s.mu.Lock()
	s.Requests = append(s.Requests, req)
	s.mu.Unlock()
	if s.SendFunc != nil {
		return s.SendFunc(ctx, req)
	}
	return &SendResult{Success: true}, nil
}

// recordingSink captures published events for assertions
type recordingSink struct {
	mu     sync.Mutex
	Events []Event
}

func (s *recordingSink) Publish(ctx context.Context, evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, evt)
	return nil
}

func (s *recordingSink) Types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]EventType, len(s.Events))
	for i, evt := range s.Events {
		types[i] = evt.Type
	}
	return types
}
