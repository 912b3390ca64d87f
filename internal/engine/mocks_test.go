package engine

import (
	"context"
	"time"

	"sendwave/internal/models"
	"sendwave/internal/repository"
)

// MockCampaignRepository mocks CampaignRepository
type MockCampaignRepository struct {
	GetByIDFunc              func(ctx context.Context, id int) (*models.Campaign, error)
	GetWithProgressFunc      func(ctx context.Context, id int) (*models.CampaignWithProgress, error)
	MarkScheduledFunc        func(ctx context.Context, id int, at time.Time) error
	ResetToDraftFunc         func(ctx context.Context, id int) error
	MarkRunningFunc          func(ctx context.Context, id int, at time.Time) error
	MarkCompletedFunc        func(ctx context.Context, id int, at time.Time) (bool, error)
	TransitionFunc           func(ctx context.Context, id int, from []models.CampaignStatus, to models.CampaignStatus) (bool, error)
	MarkCancelledFunc        func(ctx context.Context, id int, at time.Time) (bool, error)
	IncrementTotalSentFunc   func(ctx context.Context, id int) error
	IncrementTotalFailedFunc func(ctx context.Context, id int) error
	ListDueScheduledFunc     func(ctx context.Context, now time.Time) ([]*models.Campaign, error)

	Calls map[string]int // Track method calls
}

func NewMockCampaignRepository() *MockCampaignRepository {
	return &MockCampaignRepository{
		Calls: make(map[string]int),
	}
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id int) (*models.Campaign, error) {
	m.Calls["GetByID"]++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return NewTestCampaign(id, models.CampaignStatusDraft), nil
}

func (m *MockCampaignRepository) GetWithProgress(ctx context.Context, id int) (*models.CampaignWithProgress, error) {
	m.Calls["GetWithProgress"]++
	if m.GetWithProgressFunc != nil {
		return m.GetWithProgressFunc(ctx, id)
	}
	return &models.CampaignWithProgress{
		Campaign: *NewTestCampaign(id, models.CampaignStatusRunning),
	}, nil
}

func (m *MockCampaignRepository) MarkScheduled(ctx context.Context, id int, at time.Time) error {
	m.Calls["MarkScheduled"]++
	if m.MarkScheduledFunc != nil {
		return m.MarkScheduledFunc(ctx, id, at)
	}
	return nil
}

func (m *MockCampaignRepository) ResetToDraft(ctx context.Context, id int) error {
	m.Calls["ResetToDraft"]++
	if m.ResetToDraftFunc != nil {
		return m.ResetToDraftFunc(ctx, id)
	}
	return nil
}

func (m *MockCampaignRepository) MarkRunning(ctx context.Context, id int, at time.Time) error {
	m.Calls["MarkRunning"]++
	if m.MarkRunningFunc != nil {
		return m.MarkRunningFunc(ctx, id, at)
	}
	return nil
}

func (m *MockCampaignRepository) MarkCompleted(ctx context.Context, id int, at time.Time) (bool, error) {
	m.Calls["MarkCompleted"]++
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, id, at)
	}
	return true, nil
}

func (m *MockCampaignRepository) Transition(ctx context.Context, id int, from []models.CampaignStatus, to models.CampaignStatus) (bool, error) {
	m.Calls["Transition"]++
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, id, from, to)
	}
	return true, nil
}

func (m *MockCampaignRepository) MarkCancelled(ctx context.Context, id int, at time.Time) (bool, error) {
	m.Calls["MarkCancelled"]++
	if m.MarkCancelledFunc != nil {
		return m.MarkCancelledFunc(ctx, id, at)
	}
	return true, nil
}

func (m *MockCampaignRepository) IncrementTotalSent(ctx context.Context, id int) error {
	m.Calls["IncrementTotalSent"]++
	if m.IncrementTotalSentFunc != nil {
		return m.IncrementTotalSentFunc(ctx, id)
	}
	return nil
}

func (m *MockCampaignRepository) IncrementTotalFailed(ctx context.Context, id int) error {
	m.Calls["IncrementTotalFailed"]++
	if m.IncrementTotalFailedFunc != nil {
		return m.IncrementTotalFailedFunc(ctx, id)
	}
	return nil
}

func (m *MockCampaignRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	m.Calls["ListDueScheduled"]++
	if m.ListDueScheduledFunc != nil {
		return m.ListDueScheduledFunc(ctx, now)
	}
	return nil, nil
}

// MockRecipientRepository mocks RecipientRepository
type MockRecipientRepository struct {
	ListByCampaignFunc func(ctx context.Context, campaignID int) ([]*models.Recipient, error)
	GetByIDFunc        func(ctx context.Context, id int) (*models.Recipient, error)

	Calls map[string]int
}

func NewMockRecipientRepository() *MockRecipientRepository {
	return &MockRecipientRepository{
		Calls: make(map[string]int),
	}
}

func (m *MockRecipientRepository) ListByCampaign(ctx context.Context, campaignID int) ([]*models.Recipient, error) {
	m.Calls["ListByCampaign"]++
	if m.ListByCampaignFunc != nil {
		return m.ListByCampaignFunc(ctx, campaignID)
	}
	return NewTestRecipients(campaignID, 3), nil
}

func (m *MockRecipientRepository) GetByID(ctx context.Context, id int) (*models.Recipient, error) {
	m.Calls["GetByID"]++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}

// MockVariantRepository mocks VariantRepository
type MockVariantRepository struct {
	ListByCampaignFunc     func(ctx context.Context, campaignID int) ([]*models.MessageVariant, error)
	IncrementTimesUsedFunc func(ctx context.Context, id int) error

	Calls map[string]int
}

func NewMockVariantRepository() *MockVariantRepository {
	return &MockVariantRepository{
		Calls: make(map[string]int),
	}
}

func (m *MockVariantRepository) ListByCampaign(ctx context.Context, campaignID int) ([]*models.MessageVariant, error) {
	m.Calls["ListByCampaign"]++
	if m.ListByCampaignFunc != nil {
		return m.ListByCampaignFunc(ctx, campaignID)
	}
	return NewTestVariants(campaignID, 2), nil
}

func (m *MockVariantRepository) IncrementTimesUsed(ctx context.Context, id int) error {
	m.Calls["IncrementTimesUsed"]++
	if m.IncrementTimesUsedFunc != nil {
		return m.IncrementTimesUsedFunc(ctx, id)
	}
	return nil
}

// MockChannelRepository mocks ChannelRepository
type MockChannelRepository struct {
	ListConnectedByCampaignFunc func(ctx context.Context, campaignID int) ([]*models.Channel, error)
	IncrementMessagesSentFunc   func(ctx context.Context, campaignID, channelID int) error

	Calls map[string]int
}

func NewMockChannelRepository() *MockChannelRepository {
	return &MockChannelRepository{
		Calls: make(map[string]int),
	}
}

func (m *MockChannelRepository) ListConnectedByCampaign(ctx context.Context, campaignID int) ([]*models.Channel, error) {
	m.Calls["ListConnectedByCampaign"]++
	if m.ListConnectedByCampaignFunc != nil {
		return m.ListConnectedByCampaignFunc(ctx, campaignID)
	}
	return NewTestChannels(1), nil
}

func (m *MockChannelRepository) IncrementMessagesSent(ctx context.Context, campaignID, channelID int) error {
	m.Calls["IncrementMessagesSent"]++
	if m.IncrementMessagesSentFunc != nil {
		return m.IncrementMessagesSentFunc(ctx, campaignID, channelID)
	}
	return nil
}

// MockSendRecordRepository mocks SendRecordRepository
type MockSendRecordRepository struct {
	CreateBatchFunc           func(ctx context.Context, records []*models.SendRecord) error
	GetByIDFunc               func(ctx context.Context, id int) (*models.SendRecord, error)
	MarkSentFunc              func(ctx context.Context, id int, at time.Time) (bool, error)
	MarkFailedFunc            func(ctx context.Context, id int, at time.Time, errMsg string) (bool, error)
	CountPendingFunc          func(ctx context.Context, campaignID int) (int, error)
	ListPendingByCampaignFunc func(ctx context.Context, campaignID int) ([]*models.SendRecord, error)

	Calls map[string]int
}

func NewMockSendRecordRepository() *MockSendRecordRepository {
	return &MockSendRecordRepository{
		Calls: make(map[string]int),
	}
}

func (m *MockSendRecordRepository) CreateBatch(ctx context.Context, records []*models.SendRecord) error {
	m.Calls["CreateBatch"]++
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, records)
	}
	for i, record := range records {
		record.ID = 1000 + i
		record.CreatedAt = time.Now()
		record.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MockSendRecordRepository) GetByID(ctx context.Context, id int) (*models.SendRecord, error) {
	m.Calls["GetByID"]++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &models.SendRecord{ID: id, Status: models.SendRecordStatusPending}, nil
}

func (m *MockSendRecordRepository) MarkSent(ctx context.Context, id int, at time.Time) (bool, error) {
	m.Calls["MarkSent"]++
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, id, at)
	}
	return true, nil
}

func (m *MockSendRecordRepository) MarkFailed(ctx context.Context, id int, at time.Time, errMsg string) (bool, error) {
	m.Calls["MarkFailed"]++
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, at, errMsg)
	}
	return true, nil
}

func (m *MockSendRecordRepository) CountPending(ctx context.Context, campaignID int) (int, error) {
	m.Calls["CountPending"]++
	if m.CountPendingFunc != nil {
		return m.CountPendingFunc(ctx, campaignID)
	}
	return 0, nil
}

func (m *MockSendRecordRepository) ListPendingByCampaign(ctx context.Context, campaignID int) ([]*models.SendRecord, error) {
	m.Calls["ListPendingByCampaign"]++
	if m.ListPendingByCampaignFunc != nil {
		return m.ListPendingByCampaignFunc(ctx, campaignID)
	}
	return nil, nil
}

// mockStores bundles fresh mocks behind a Stores value for engine tests
type mockStores struct {
	Campaigns  *MockCampaignRepository
	Recipients *MockRecipientRepository
	Variants   *MockVariantRepository
	Channels   *MockChannelRepository
	Records    *MockSendRecordRepository
}

func newMockStores() *mockStores {
	return &mockStores{
		Campaigns:  NewMockCampaignRepository(),
		Recipients: NewMockRecipientRepository(),
		Variants:   NewMockVariantRepository(),
		Channels:   NewMockChannelRepository(),
		Records:    NewMockSendRecordRepository(),
	}
}

func (m *mockStores) Stores() Stores {
	return Stores{
		Campaigns:  m.Campaigns,
		Recipients: m.Recipients,
		Variants:   m.Variants,
		Channels:   m.Channels,
		Records:    m.Records,
	}
}
