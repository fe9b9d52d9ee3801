package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
)

type syncFixture struct {
	source     *MockActivitySource
	campaigns  *MockCampaignRepository
	leads      *MockLeadRepository
	activities *MockActivityRepository
	uc         *SyncCampaignUseCase
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		source:     new(MockActivitySource),
		campaigns:  new(MockCampaignRepository),
		leads:      new(MockLeadRepository),
		activities: new(MockActivityRepository),
	}
	f.uc = NewSyncCampaignUseCase(f.source, f.campaigns, f.leads, f.activities, nil)
	f.uc.Now = func() time.Time { return fixedNow }
	return f
}

func (f *syncFixture) assertExpectations(t *testing.T) {
	f.source.AssertExpectations(t)
	f.campaigns.AssertExpectations(t)
	f.leads.AssertExpectations(t)
	f.activities.AssertExpectations(t)
}

func sampleFeed() *entity.ActivityFeed {
	return &entity.ActivityFeed{
		Activities: []entity.Activity{
			{ID: "a1", CampaignID: "cam_1", LeadID: "l1", LeadEmail: "a@x.io", Type: entity.TypeEmailsSent},
			{ID: "a2", CampaignID: "cam_1", LeadID: "l1", LeadEmail: "a@x.io", Type: entity.TypeHasEmailAddress},
			{ID: "a3", CampaignID: "cam_1", LeadID: "l1", LeadEmail: "a@x.io", Type: entity.TypeEmailsOpened, TemplateID: "t", SequenceStep: "1"},
			{ID: "a4", CampaignID: "cam_1", LeadID: "l1", LeadEmail: "a@x.io", Type: entity.TypeEmailsOpened, TemplateID: "t", SequenceStep: "1"},
		},
		Leads: []entity.Lead{{ID: "l1", CampaignID: "cam_1", Email: "a@x.io"}},
	}
}

func TestSyncCampaign_FirstLoadFetchesEverything(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()

	f.campaigns.On("GetCampaign", ctx, "cam_1").Return(nil, nil)
	f.source.On("ListActivities", ctx, entity.ActivityQuery{CampaignID: "cam_1"}).Return(sampleFeed(), nil)
	f.campaigns.On("UpsertCampaign", ctx, mock.MatchedBy(func(c *entity.Campaign) bool {
		return c.Name == "Campaign cam_1" && c.Status == entity.CampaignUnknown && c.LastSyncedAt.Equal(fixedNow)
	})).Return(nil)
	f.leads.On("UpsertLeads", ctx, sampleFeed().Leads).Return(nil)
	f.activities.On("UpsertActivities", ctx, mock.MatchedBy(func(a []entity.Activity) bool {
		return len(a) == 2 && a[0].ID == "a1" && a[1].ID == "a3"
	})).Return(&entity.ActivityUpsertResult{Inserted: 2}, nil)

	out, err := f.uc.Execute(ctx, SyncCampaignInput{CampaignID: "cam_1"})

	require.NoError(t, err)
	assert.Equal(t, entity.SyncFull, out.Mode)
	assert.Nil(t, out.Since)
	assert.Equal(t, 4, out.Fetched)
	assert.Equal(t, 2, out.Normalized)
	assert.Equal(t, 2, out.Inserted)
	f.activities.AssertNotCalled(t, "LatestActivityTimestamp", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestSyncCampaign_IncrementalUsesLatestTimestamp(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()
	latest := time.Date(2025, 5, 30, 8, 0, 0, 0, time.UTC)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	f.campaigns.On("GetCampaign", ctx, "cam_1").Return(&entity.Campaign{
		ID: "cam_1", Name: "Q2 outreach", Status: entity.CampaignRunning, CreatedAt: created,
	}, nil)
	f.activities.On("LatestActivityTimestamp", ctx, "cam_1").Return(latest, true, nil)
	f.source.On("ListActivities", ctx, entity.ActivityQuery{CampaignID: "cam_1", Since: latest}).
		Return(&entity.ActivityFeed{}, nil)
	f.campaigns.On("UpsertCampaign", ctx, mock.MatchedBy(func(c *entity.Campaign) bool {
		return c.Name == "Q2 outreach" && c.Status == entity.CampaignRunning && c.CreatedAt.Equal(created)
	})).Return(nil)
	f.leads.On("UpsertLeads", ctx, []entity.Lead(nil)).Return(nil)
	f.activities.On("UpsertActivities", ctx, []entity.Activity{}).Return(&entity.ActivityUpsertResult{}, nil)

	out, err := f.uc.Execute(ctx, SyncCampaignInput{CampaignID: "cam_1"})

	require.NoError(t, err)
	assert.Equal(t, entity.SyncIncremental, out.Mode)
	require.NotNil(t, out.Since)
	assert.Equal(t, latest, *out.Since)
	assert.Equal(t, "Q2 outreach", out.CampaignName)
	f.assertExpectations(t)
}

func TestSyncCampaign_ForceFullAndCallerMetadata(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()

	f.campaigns.On("GetCampaign", ctx, "cam_1").Return(&entity.Campaign{ID: "cam_1", Name: "Old"}, nil)
	f.source.On("ListActivities", ctx, entity.ActivityQuery{CampaignID: "cam_1"}).Return(&entity.ActivityFeed{}, nil)
	f.campaigns.On("UpsertCampaign", ctx, mock.MatchedBy(func(c *entity.Campaign) bool {
		return c.Name == "New name" && c.Status == entity.CampaignPaused
	})).Return(nil)
	f.leads.On("UpsertLeads", ctx, mock.Anything).Return(nil)
	f.activities.On("UpsertActivities", ctx, mock.Anything).Return(&entity.ActivityUpsertResult{}, nil)

	out, err := f.uc.Execute(ctx, SyncCampaignInput{
		CampaignID: "cam_1", CampaignName: "New name", CampaignStatus: "PAUSED", ForceFull: true,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.SyncFull, out.Mode)
	f.assertExpectations(t)
}

func TestSyncCampaign_SourceErrorStoresNothing(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()
	apiErr := &httpclient.APIError{Provider: "lemlist", Kind: httpclient.KindUnauthorized, StatusCode: 401}

	f.campaigns.On("GetCampaign", ctx, "cam_1").Return(nil, nil)
	f.source.On("ListActivities", ctx, mock.Anything).Return(nil, apiErr)

	_, err := f.uc.Execute(ctx, SyncCampaignInput{CampaignID: "cam_1"})

	assert.True(t, errors.Is(err, httpclient.ErrUnauthorized))
	f.campaigns.AssertNotCalled(t, "UpsertCampaign", mock.Anything, mock.Anything)
	f.leads.AssertNotCalled(t, "UpsertLeads", mock.Anything, mock.Anything)
	f.activities.AssertNotCalled(t, "UpsertActivities", mock.Anything, mock.Anything)
}

func TestSyncCampaign_ReportsRejected(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()

	f.campaigns.On("GetCampaign", ctx, "cam_1").Return(nil, nil)
	f.source.On("ListActivities", ctx, mock.Anything).Return(sampleFeed(), nil)
	f.campaigns.On("UpsertCampaign", ctx, mock.Anything).Return(nil)
	f.leads.On("UpsertLeads", ctx, mock.Anything).Return(nil)
	f.activities.On("UpsertActivities", ctx, mock.Anything).Return(&entity.ActivityUpsertResult{
		Inserted: 1,
		Rejected: []entity.RejectedActivity{{Activity: entity.Activity{ID: "a3"}, Err: entity.ErrDataIntegrity}},
	}, nil)

	out, err := f.uc.Execute(ctx, SyncCampaignInput{CampaignID: "cam_1"})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Inserted)
	assert.Equal(t, 1, out.Rejected)
}

func TestSyncCampaign_RequiresCampaign(t *testing.T) {
	f := newSyncFixture()

	_, err := f.uc.Execute(context.Background(), SyncCampaignInput{})

	assert.ErrorIs(t, err, ErrCampaignRequired)
	f.source.AssertNotCalled(t, "ListActivities", mock.Anything, mock.Anything)
}
