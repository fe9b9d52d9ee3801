package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/leadsync/internal/enrichment"
	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
)

func TestPlanContactUpdates_NonOverwrite(t *testing.T) {
	fields := DefaultClassificationFields()
	leads := []LeadMetrics{
		{Lead: entity.Lead{CRMID: "1", JobLevel: "VP", Department: "Sales"}},
		{Lead: entity.Lead{CRMID: "2", JobLevel: "Manager", Department: "Marketing"}},
		{Lead: entity.Lead{CRMID: "3", JobLevel: "Senior"}},
	}
	remote := map[string]entity.CRMContact{
		"1": {ID: "1", Properties: map[string]string{"job_level": "Director", "department": ""}},
		"2": {ID: "2", Properties: map[string]string{"job_level": "Manager", "department": "Marketing"}},
	}

	updates, skipped := PlanContactUpdates(leads, remote, fields)

	require.Len(t, updates, 1)
	assert.Equal(t, "1", updates[0].ID)
	assert.Equal(t, map[string]string{"department": "Sales"}, updates[0].Properties)
	assert.Equal(t, 2, skipped, "populated remote fields and unread contacts are never written")
}

func TestPlanContactUpdates_MetricsAlwaysWritten(t *testing.T) {
	engine := enrichment.NewEngine(nil, enrichment.DefaultThresholds())
	m, ok := engine.Compute([]entity.Activity{
		{Type: entity.TypeEmailsSent, CreatedAt: fixedNow.Add(-48 * time.Hour)},
	}, fixedNow)
	require.True(t, ok)

	updates, skipped := PlanContactUpdates(
		[]LeadMetrics{{Lead: entity.Lead{CRMID: "9", JobLevel: "VP"}, Metrics: m, HasMetrics: true}},
		map[string]entity.CRMContact{"9": {ID: "9", Properties: map[string]string{"job_level": "C-Level"}}},
		DefaultClassificationFields(),
	)

	require.Len(t, updates, 1)
	assert.Zero(t, skipped)
	props := updates[0].Properties
	assert.Equal(t, "1", props[enrichment.PropEmailsSent])
	assert.NotContains(t, props, "job_level")
}

type crmFixture struct {
	leads      *MockLeadRepository
	activities *MockActivityRepository
	crm        *MockCRM
	sleeper    *recordingSleeper
	uc         *SyncCRMUseCase
}

func newCRMFixture(batchSize int) *crmFixture {
	f := &crmFixture{
		leads:      new(MockLeadRepository),
		activities: new(MockActivityRepository),
		crm:        new(MockCRM),
		sleeper:    &recordingSleeper{},
	}
	f.uc = NewSyncCRMUseCase(f.leads, f.activities, f.crm, nil, nil)
	f.uc.BatchSize = batchSize
	f.uc.Sleep = f.sleeper.Sleep
	f.uc.Now = func() time.Time { return fixedNow }
	return f
}

func crmLeads() []entity.Lead {
	return []entity.Lead{
		{ID: "l1", CampaignID: "cam_1", Email: "a@x.io", CRMID: "101"},
		{ID: "l2", CampaignID: "cam_1", Email: "b@x.io", CRMID: "102"},
		{ID: "l3", CampaignID: "cam_1", Email: "c@x.io", CRMID: "103"},
		{ID: "l4", CampaignID: "cam_1", Email: "d@x.io"},
	}
}

func (f *crmFixture) withActivity(ctx context.Context) {
	sent := []entity.Activity{{Type: entity.TypeEmailsSent, CampaignID: "cam_1", CreatedAt: fixedNow.Add(-time.Hour)}}
	f.activities.On("ActivitiesByLeadEmail", ctx, mock.Anything).Return(sent, nil)
	f.crm.On("BatchReadContacts", ctx, []string{"101", "102", "103"}, []string{"job_level", "department"}).
		Return(map[string]entity.CRMContact{}, nil)
}

func TestSyncCRM_BatchesWithDelay(t *testing.T) {
	ctx := context.Background()
	f := newCRMFixture(2)
	f.leads.On("LeadsByCampaign", ctx, "cam_1").Return(crmLeads(), nil)
	f.withActivity(ctx)
	f.crm.On("BatchUpdateContacts", ctx, mock.MatchedBy(func(u []entity.ContactUpdate) bool { return len(u) == 2 })).
		Return(&entity.BatchUpdateResult{Updated: 2}, nil).Once()
	f.crm.On("BatchUpdateContacts", ctx, mock.MatchedBy(func(u []entity.ContactUpdate) bool { return len(u) == 1 })).
		Return(&entity.BatchUpdateResult{Updated: 1}, nil).Once()

	var progress []int
	res, err := f.uc.Execute(ctx, SyncCRMInput{CampaignID: "cam_1", Progress: func(c, total int) { progress = append(progress, c) }})

	require.NoError(t, err)
	assert.Equal(t, &entity.CRMSyncResult{Processed: 4, Succeeded: 3, Skipped: 1}, res)
	assert.Equal(t, []time.Duration{DefaultCRMBatchDelay}, f.sleeper.delays)
	assert.Equal(t, []int{2, 3}, progress)
	f.crm.AssertExpectations(t)
}

func TestSyncCRM_BatchFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	f := newCRMFixture(2)
	f.leads.On("LeadsByCampaign", ctx, "cam_1").Return(crmLeads(), nil)
	f.withActivity(ctx)
	f.crm.On("BatchUpdateContacts", ctx, mock.MatchedBy(func(u []entity.ContactUpdate) bool { return len(u) == 2 })).
		Return(nil, &httpclient.APIError{Provider: "hubspot", Kind: httpclient.KindTransient}).Once()
	f.crm.On("BatchUpdateContacts", ctx, mock.MatchedBy(func(u []entity.ContactUpdate) bool { return len(u) == 1 })).
		Return(&entity.BatchUpdateResult{Updated: 1}, nil).Once()

	res, err := f.uc.Execute(ctx, SyncCRMInput{CampaignID: "cam_1"})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.BatchErrors, 1)
	assert.Contains(t, res.BatchErrors[0], "batch 1")
}

func TestSyncCRM_NotFoundFallsBackToSingleUpdates(t *testing.T) {
	ctx := context.Background()
	f := newCRMFixture(50)
	f.leads.On("LeadsByCampaign", ctx, "cam_1").Return(crmLeads(), nil)
	f.withActivity(ctx)
	f.crm.On("BatchUpdateContacts", ctx, mock.Anything).
		Return(nil, &httpclient.APIError{Provider: "hubspot", Kind: httpclient.KindNotFound, StatusCode: 404})
	f.crm.On("UpdateContact", ctx, "101", mock.Anything).Return(nil)
	f.crm.On("UpdateContact", ctx, "102", mock.Anything).Return(&httpclient.APIError{Kind: httpclient.KindNotFound})
	f.crm.On("UpdateContact", ctx, "103", mock.Anything).Return(nil)

	res, err := f.uc.Execute(ctx, SyncCRMInput{CampaignID: "cam_1"})

	require.NoError(t, err)
	assert.Equal(t, &entity.CRMSyncResult{Processed: 4, Succeeded: 2, Failed: 1, Skipped: 1}, res)
	assert.Empty(t, f.sleeper.delays)
}

func TestSyncCRM_UnauthorizedAborts(t *testing.T) {
	ctx := context.Background()
	f := newCRMFixture(2)
	f.leads.On("LeadsByCampaign", ctx, "cam_1").Return(crmLeads(), nil)
	f.withActivity(ctx)
	f.crm.On("BatchUpdateContacts", ctx, mock.Anything).
		Return(nil, &httpclient.APIError{Provider: "hubspot", Kind: httpclient.KindUnauthorized, StatusCode: 401}).Once()

	res, err := f.uc.Execute(ctx, SyncCRMInput{CampaignID: "cam_1"})

	assert.True(t, errors.Is(err, httpclient.ErrUnauthorized))
	assert.Equal(t, 2, res.Failed)
	f.crm.AssertNumberOfCalls(t, "BatchUpdateContacts", 1)
}

func TestSyncCRM_ClassificationReadFailureKeepsMetrics(t *testing.T) {
	ctx := context.Background()
	f := newCRMFixture(50)
	f.leads.On("LeadsByCampaign", ctx, "cam_1").Return([]entity.Lead{
		{ID: "l1", CampaignID: "cam_1", Email: "a@x.io", CRMID: "101", JobLevel: "VP"},
	}, nil)
	f.activities.On("ActivitiesByLeadEmail", ctx, "a@x.io").Return([]entity.Activity{
		{Type: entity.TypeEmailsReplied, CreatedAt: fixedNow},
	}, nil)
	f.crm.On("BatchReadContacts", ctx, mock.Anything, mock.Anything).
		Return(nil, &httpclient.APIError{Kind: httpclient.KindTransient})
	f.crm.On("GetContact", ctx, "101", mock.Anything).
		Return(nil, &httpclient.APIError{Kind: httpclient.KindTransient})
	f.crm.On("BatchUpdateContacts", ctx, mock.MatchedBy(func(u []entity.ContactUpdate) bool {
		_, hasLevel := u[0].Properties["job_level"]
		return len(u) == 1 && !hasLevel && u[0].Properties[enrichment.PropLeadStatus] == string(enrichment.StatusReplied)
	})).Return(&entity.BatchUpdateResult{Updated: 1}, nil)

	res, err := f.uc.Execute(ctx, SyncCRMInput{CampaignID: "cam_1"})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	f.crm.AssertExpectations(t)
}

func TestSyncCRM_RefusedBatchReadFallsBackToSingleReads(t *testing.T) {
	ctx := context.Background()
	f := newCRMFixture(50)
	f.leads.On("LeadsByCampaign", ctx, "cam_1").Return([]entity.Lead{
		{ID: "l1", CampaignID: "cam_1", Email: "a@x.io", CRMID: "101", JobLevel: "VP"},
		{ID: "l2", CampaignID: "cam_1", Email: "b@x.io", CRMID: "102", JobLevel: "Manager"},
		{ID: "l3", CampaignID: "cam_1", Email: "c@x.io", CRMID: "103", JobLevel: "Director"},
	}, nil)
	f.activities.On("ActivitiesByLeadEmail", ctx, mock.Anything).Return([]entity.Activity{}, nil)
	f.crm.On("BatchReadContacts", ctx, mock.Anything, mock.Anything).
		Return(nil, &httpclient.APIError{Kind: httpclient.KindMalformed, StatusCode: 400})
	f.crm.On("GetContact", ctx, "101", []string{"job_level", "department"}).
		Return(&entity.CRMContact{ID: "101", Properties: map[string]string{}}, nil)
	f.crm.On("GetContact", ctx, "102", mock.Anything).
		Return(&entity.CRMContact{ID: "102", Properties: map[string]string{"job_level": "C-Level"}}, nil)
	f.crm.On("GetContact", ctx, "103", mock.Anything).Return(nil, nil)

	var written []entity.ContactUpdate
	f.crm.On("BatchUpdateContacts", ctx, mock.Anything).Run(func(args mock.Arguments) {
		written = args.Get(1).([]entity.ContactUpdate)
	}).Return(&entity.BatchUpdateResult{Updated: 1}, nil)

	res, err := f.uc.Execute(ctx, SyncCRMInput{CampaignID: "cam_1"})

	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, "101", written[0].ID)
	assert.Equal(t, "VP", written[0].Properties["job_level"])
	assert.Equal(t, 2, res.Skipped)
	f.crm.AssertNumberOfCalls(t, "GetContact", 3)
}

func TestSyncCRM_NoCRMIDsMeansNoCalls(t *testing.T) {
	ctx := context.Background()
	f := newCRMFixture(50)
	f.leads.On("LeadsByCampaign", ctx, "cam_1").Return([]entity.Lead{{ID: "l1", Email: "a@x.io"}}, nil)

	res, err := f.uc.Execute(ctx, SyncCRMInput{CampaignID: "cam_1"})

	require.NoError(t, err)
	assert.Equal(t, &entity.CRMSyncResult{Processed: 1, Skipped: 1}, res)
	f.crm.AssertNotCalled(t, "BatchReadContacts", mock.Anything, mock.Anything, mock.Anything)
}
