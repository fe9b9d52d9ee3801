package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/queue"
)

type MockActivitySource struct {
	mock.Mock
}

func (m *MockActivitySource) ListCampaigns(ctx context.Context, status string) ([]entity.Campaign, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Campaign), args.Error(1)
}

func (m *MockActivitySource) ListActivities(ctx context.Context, q entity.ActivityQuery) (*entity.ActivityFeed, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ActivityFeed), args.Error(1)
}

func (m *MockActivitySource) GetLeadDetails(ctx context.Context, email string) (*entity.LeadDetails, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LeadDetails), args.Error(1)
}

type MockCRM struct {
	mock.Mock
}

func (m *MockCRM) BatchReadContacts(ctx context.Context, ids []string, properties []string) (map[string]entity.CRMContact, error) {
	args := m.Called(ctx, ids, properties)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]entity.CRMContact), args.Error(1)
}

func (m *MockCRM) GetContact(ctx context.Context, id string, properties []string) (*entity.CRMContact, error) {
	args := m.Called(ctx, id, properties)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CRMContact), args.Error(1)
}

func (m *MockCRM) BatchUpdateContacts(ctx context.Context, updates []entity.ContactUpdate) (*entity.BatchUpdateResult, error) {
	args := m.Called(ctx, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.BatchUpdateResult), args.Error(1)
}

func (m *MockCRM) UpdateContact(ctx context.Context, id string, properties map[string]string) error {
	return m.Called(ctx, id, properties).Error(0)
}

type MockNotes struct {
	mock.Mock
}

func (m *MockNotes) NotesForContact(ctx context.Context, contactID string) ([]entity.CRMNote, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CRMNote), args.Error(1)
}

func (m *MockNotes) BatchArchiveNotes(ctx context.Context, ids []string) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) UpsertCampaign(ctx context.Context, c *entity.Campaign) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCampaignRepository) GetCampaign(ctx context.Context, id string) (*entity.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) UpsertLeads(ctx context.Context, leads []entity.Lead) error {
	return m.Called(ctx, leads).Error(0)
}

func (m *MockLeadRepository) UpdateLeadDetails(ctx context.Context, campaignID, leadID string, d entity.LeadDetails) error {
	return m.Called(ctx, campaignID, leadID, d).Error(0)
}

func (m *MockLeadRepository) UpdateLeadClassification(ctx context.Context, campaignID, leadID, jobLevel, department string) error {
	return m.Called(ctx, campaignID, leadID, jobLevel, department).Error(0)
}

func (m *MockLeadRepository) LeadsByCampaign(ctx context.Context, campaignID string) ([]entity.Lead, error) {
	return m.leads(m.Called(ctx, campaignID))
}

func (m *MockLeadRepository) LeadsNeedingEnrichment(ctx context.Context, campaignID string) ([]entity.Lead, error) {
	return m.leads(m.Called(ctx, campaignID))
}

func (m *MockLeadRepository) LeadsWithCRMID(ctx context.Context, campaignID string) ([]entity.Lead, error) {
	return m.leads(m.Called(ctx, campaignID))
}

func (m *MockLeadRepository) leads(args mock.Arguments) ([]entity.Lead, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) UpsertActivities(ctx context.Context, activities []entity.Activity) (*entity.ActivityUpsertResult, error) {
	args := m.Called(ctx, activities)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ActivityUpsertResult), args.Error(1)
}

func (m *MockActivityRepository) LatestActivityTimestamp(ctx context.Context, campaignID string) (time.Time, bool, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockActivityRepository) ActivitiesByLeadEmail(ctx context.Context, email string) ([]entity.Activity, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Activity), args.Error(1)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) PublishCampaignSynced(ctx context.Context, event queue.CampaignSyncedEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockReports struct {
	mock.Mock
}

func (m *MockReports) SendSyncReport(report entity.SyncReport) error {
	return m.Called(report).Error(0)
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}
