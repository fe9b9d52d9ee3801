package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
	"github.com/xavierca1/leadsync/internal/infra/queue"
	"github.com/xavierca1/leadsync/internal/usecase"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListCachedCampaigns(ctx context.Context) ([]entity.Campaign, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Campaign), args.Error(1)
}

func (m *MockStore) GetCampaign(ctx context.Context, id string) (*entity.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockStore) JoinedActivities(ctx context.Context, campaignID string) ([]entity.JoinedActivity, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.JoinedActivity), args.Error(1)
}

func (m *MockStore) CampaignStats(ctx context.Context, campaignID string) (*entity.CampaignStats, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CampaignStats), args.Error(1)
}

type MockClearer struct {
	mock.Mock
}

func (m *MockClearer) Clear(ctx context.Context, campaignID string) error {
	return m.Called(ctx, campaignID).Error(0)
}

func (m *MockStore) LeadsNeedingEnrichment(ctx context.Context, campaignID string) ([]entity.Lead, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) ListCampaigns(ctx context.Context, status string) ([]entity.Campaign, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Campaign), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishSyncRequest(ctx context.Context, req queue.SyncRequest) (queue.SyncRequest, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(queue.SyncRequest), args.Error(1)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) TryExecute(ctx context.Context, in usecase.PipelineInput) (*entity.SyncReport, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SyncReport), args.Error(1)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newRouter(store *MockStore, remote RemoteCampaigns, sync *SyncHandler) http.Handler {
	return newRouterWithClearer(store, new(MockClearer), remote, sync)
}

func newRouterWithClearer(store *MockStore, clearer CampaignClearer, remote RemoteCampaigns, sync *SyncHandler) http.Handler {
	campaigns := NewCampaignHandler(store, clearer, nil)
	if remote != nil {
		campaigns.Remote = remote
	}
	leads := NewLeadHandler(store, nil)

	r := chi.NewRouter()
	r.Get("/campaigns", campaigns.HandleList)
	r.Get("/campaigns/remote", campaigns.HandleListRemote)
	r.Get("/campaigns/{campaignId}/activities", campaigns.HandleActivities)
	r.Get("/campaigns/{campaignId}/leads/review", leads.HandleNeedingReview)
	r.Get("/campaigns/{campaignId}/stats", campaigns.HandleStats)
	r.Delete("/campaigns/{campaignId}", campaigns.HandleClear)
	if sync != nil {
		r.Post("/campaigns/{campaignId}/sync", sync.Handle)
	}
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCampaignHandler_JoinedActivities(t *testing.T) {
	store := new(MockStore)
	store.On("JoinedActivities", mock.Anything, "cam_1").Return([]entity.JoinedActivity{
		{Activity: entity.Activity{ID: "a1", CampaignID: "cam_1", Type: entity.TypeEmailsSent}, LeadFirstName: "Ada"},
	}, nil)

	rec := do(t, newRouter(store, nil, nil), http.MethodGet, "/campaigns/cam_1/activities", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []entity.JoinedActivity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Ada", got[0].LeadFirstName)
}

func TestCampaignHandler_EmptyListsAreArrays(t *testing.T) {
	store := new(MockStore)
	store.On("ListCachedCampaigns", mock.Anything).Return(nil, nil)
	store.On("LeadsNeedingEnrichment", mock.Anything, "cam_1").Return(nil, nil)
	router := newRouter(store, nil, nil)

	assert.JSONEq(t, `[]`, do(t, router, http.MethodGet, "/campaigns", "").Body.String())
	assert.JSONEq(t, `[]`, do(t, router, http.MethodGet, "/campaigns/cam_1/leads/review", "").Body.String())
}

func TestCampaignHandler_Stats(t *testing.T) {
	store := new(MockStore)
	store.On("GetCampaign", mock.Anything, "cam_1").Return(&entity.Campaign{ID: "cam_1"}, nil)
	store.On("GetCampaign", mock.Anything, "nope").Return(nil, nil)
	store.On("CampaignStats", mock.Anything, "cam_1").Return(&entity.CampaignStats{CampaignID: "cam_1", Leads: 3, Activities: 12}, nil)
	router := newRouter(store, nil, nil)

	rec := do(t, router, http.MethodGet, "/campaigns/cam_1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activities":12`)

	rec = do(t, router, http.MethodGet, "/campaigns/nope/stats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	store.AssertNotCalled(t, "CampaignStats", mock.Anything, "nope")
}

func TestCampaignHandler_Clear(t *testing.T) {
	clearer := new(MockClearer)
	clearer.On("Clear", mock.Anything, "cam_1").Return(nil)

	rec := do(t, newRouterWithClearer(new(MockStore), clearer, nil, nil), http.MethodDelete, "/campaigns/cam_1", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	clearer.AssertExpectations(t)
}

func TestCampaignHandler_ClearDuringSync(t *testing.T) {
	clearer := new(MockClearer)
	clearer.On("Clear", mock.Anything, "cam_1").Return(usecase.ErrSyncInProgress)

	rec := do(t, newRouterWithClearer(new(MockStore), clearer, nil, nil), http.MethodDelete, "/campaigns/cam_1", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"SYNC_IN_PROGRESS"`)
}

func TestCampaignHandler_RemoteErrors(t *testing.T) {
	store := new(MockStore)
	remote := new(MockRemote)
	remote.On("ListCampaigns", mock.Anything, "running").
		Return(nil, &httpclient.APIError{Provider: "lemlist", Kind: httpclient.KindUnauthorized, StatusCode: 401})

	rec := do(t, newRouter(store, remote, nil), http.MethodGet, "/campaigns/remote?status=running", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), usecase.MsgCredentials)

	rec = do(t, newRouter(store, nil, nil), http.MethodGet, "/campaigns/remote", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{usecase.ErrSyncInProgress, http.StatusConflict},
		{usecase.ErrCampaignRequired, http.StatusBadRequest},
		{&httpclient.APIError{Kind: httpclient.KindUnauthorized}, http.StatusBadGateway},
		{&httpclient.APIError{Kind: httpclient.KindNotFound}, http.StatusNotFound},
		{&httpclient.APIError{Kind: httpclient.KindRateLimited}, http.StatusServiceUnavailable},
		{&httpclient.APIError{Kind: httpclient.KindTransient}, http.StatusServiceUnavailable},
		{&httpclient.APIError{Kind: httpclient.KindMalformed}, http.StatusBadGateway},
		{&usecase.TechnicalError{Code: "CACHE", Message: "store leads", Err: errors.New("locked")}, http.StatusInternalServerError},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestSyncHandler_Queued(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishSyncRequest", mock.Anything, mock.MatchedBy(func(r queue.SyncRequest) bool {
		return r.CampaignID == "cam_1" && r.PushCRM && r.Origin == "api"
	})).Return(queue.SyncRequest{RunID: "run-1", CampaignID: "cam_1"}, nil)

	h := NewSyncHandler(10, nil)
	h.Publisher = pub

	rec := do(t, newRouter(new(MockStore), nil, h), http.MethodPost, "/campaigns/cam_1/sync", `{"push_crm":true}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"run_id":"run-1","campaign_id":"cam_1","status":"queued"}`, rec.Body.String())
}

func TestSyncHandler_InlineConflict(t *testing.T) {
	runner := new(MockRunner)
	runner.On("TryExecute", mock.Anything, mock.Anything).Return(nil, usecase.ErrSyncInProgress)

	h := NewSyncHandler(10, nil)
	h.Runner = runner

	rec := do(t, newRouter(new(MockStore), nil, h), http.MethodPost, "/campaigns/cam_1/sync", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "SYNC_IN_PROGRESS")
}

func TestSyncHandler_InlineReport(t *testing.T) {
	runner := new(MockRunner)
	runner.On("TryExecute", mock.Anything, mock.MatchedBy(func(in usecase.PipelineInput) bool {
		return in.CampaignID == "cam_1" && in.ForceFull
	})).Return(&entity.SyncReport{RunID: "r", CampaignID: "cam_1", Inserted: 4}, nil)

	h := NewSyncHandler(10, nil)
	h.Runner = runner

	rec := do(t, newRouter(new(MockStore), nil, h), http.MethodPost, "/campaigns/cam_1/sync", `{"force_full":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var report entity.SyncReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 4, report.Inserted)
}

func TestSyncHandler_BadJSONAndRateLimit(t *testing.T) {
	h := NewSyncHandler(1, nil)
	h.Runner = new(MockRunner)
	router := newRouter(new(MockStore), nil, h)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/campaigns/cam_1/sync", `{`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, router, http.MethodPost, "/campaigns/cam_1/sync", `{}`).Code)
}

func TestSyncHandler_NotConfigured(t *testing.T) {
	rec := do(t, newRouter(new(MockStore), nil, NewSyncHandler(10, nil)), http.MethodPost, "/campaigns/cam_1/sync", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimiter_WindowAndPrune(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))

	now = now.Add(3 * time.Minute)
	assert.Equal(t, 2, rl.prune())
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(r))
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(fakePinger{}, nil, true, false)
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "configured", resp.Dependencies["lemlist"])
	assert.Equal(t, "not configured", resp.Dependencies["hubspot"])
	assert.Equal(t, "not configured", resp.Dependencies["rabbitmq"])

	h = NewHealthHandler(fakePinger{err: errors.New("database is locked")}, nil, true, true)
	rec = httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}
