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

func newDetailsUseCase(source *MockActivitySource, leads *MockLeadRepository, sleeper *recordingSleeper) *FetchLeadDetailsUseCase {
	uc := NewFetchLeadDetailsUseCase(source, leads, nil)
	uc.GroupSize = 2
	uc.Sleep = sleeper.Sleep
	return uc
}

func TestFetchLeadDetails_PacesAndCounts(t *testing.T) {
	ctx := context.Background()
	source := new(MockActivitySource)
	leads := new(MockLeadRepository)
	sleeper := &recordingSleeper{}

	leads.On("LeadsNeedingEnrichment", ctx, "cam_1").Return([]entity.Lead{
		{ID: "l1", CampaignID: "cam_1", Email: "a@x.io"},
		{ID: "l2", CampaignID: "cam_1", Email: "b@x.io"},
		{ID: "l3", CampaignID: "cam_1", Email: "c@x.io"},
	}, nil)
	found := &entity.LeadDetails{Email: "a@x.io", CRMID: "901", LinkedInURL: "https://linkedin.com/in/a"}
	source.On("GetLeadDetails", ctx, "a@x.io").Return(found, nil)
	source.On("GetLeadDetails", ctx, "b@x.io").Return(nil, nil)
	source.On("GetLeadDetails", ctx, "c@x.io").Return(nil, &httpclient.APIError{Kind: httpclient.KindTransient})
	leads.On("UpdateLeadDetails", ctx, "cam_1", "l1", *found).Return(nil)

	var progress [][2]int
	out, err := newDetailsUseCase(source, leads, sleeper).Execute(ctx, FetchLeadDetailsInput{
		CampaignID: "cam_1",
		Progress:   func(current, total int) { progress = append(progress, [2]int{current, total}) },
	})

	require.NoError(t, err)
	assert.Equal(t, &entity.DetailsResult{Processed: 3, Succeeded: 1, Failed: 1}, out)
	assert.Equal(t, []time.Duration{DefaultDetailDelay, DefaultDetailPause}, sleeper.delays)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
	leads.AssertExpectations(t)
	source.AssertExpectations(t)
}

func TestFetchLeadDetails_AbortsOnUnauthorized(t *testing.T) {
	ctx := context.Background()
	source := new(MockActivitySource)
	leads := new(MockLeadRepository)

	leads.On("LeadsNeedingEnrichment", ctx, "cam_1").Return([]entity.Lead{
		{ID: "l1", CampaignID: "cam_1", Email: "a@x.io"},
		{ID: "l2", CampaignID: "cam_1", Email: "b@x.io"},
	}, nil)
	source.On("GetLeadDetails", ctx, "a@x.io").Return(nil, &httpclient.APIError{Kind: httpclient.KindUnauthorized, StatusCode: 401})

	out, err := newDetailsUseCase(source, leads, &recordingSleeper{}).Execute(ctx, FetchLeadDetailsInput{CampaignID: "cam_1"})

	assert.True(t, errors.Is(err, httpclient.ErrUnauthorized))
	assert.Equal(t, 1, out.Processed)
	source.AssertNotCalled(t, "GetLeadDetails", ctx, "b@x.io")
}

func TestFetchLeadDetails_NothingToDo(t *testing.T) {
	ctx := context.Background()
	leads := new(MockLeadRepository)
	sleeper := &recordingSleeper{}
	leads.On("LeadsNeedingEnrichment", ctx, "cam_1").Return([]entity.Lead{}, nil)

	out, err := newDetailsUseCase(new(MockActivitySource), leads, sleeper).Execute(ctx, FetchLeadDetailsInput{CampaignID: "cam_1"})

	require.NoError(t, err)
	assert.Zero(t, out.Processed)
	assert.Empty(t, sleeper.delays)
}

func TestFetchLeadDetails_StoreErrorStops(t *testing.T) {
	ctx := context.Background()
	source := new(MockActivitySource)
	leads := new(MockLeadRepository)

	leads.On("LeadsNeedingEnrichment", ctx, "cam_1").Return([]entity.Lead{{ID: "l1", CampaignID: "cam_1", Email: "a@x.io"}}, nil)
	source.On("GetLeadDetails", ctx, "a@x.io").Return(&entity.LeadDetails{CRMID: "1"}, nil)
	leads.On("UpdateLeadDetails", ctx, "cam_1", "l1", mock.Anything).Return(errors.New("database is locked"))

	out, err := newDetailsUseCase(source, leads, &recordingSleeper{}).Execute(ctx, FetchLeadDetailsInput{CampaignID: "cam_1"})

	assert.ErrorContains(t, err, "database is locked")
	assert.Equal(t, 0, out.Succeeded)
}
