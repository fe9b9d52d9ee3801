package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/usecase"
)

// CampaignReader is the read side of the cache served over HTTP.
type CampaignReader interface {
	ListCachedCampaigns(ctx context.Context) ([]entity.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*entity.Campaign, error)
	JoinedActivities(ctx context.Context, campaignID string) ([]entity.JoinedActivity, error)
	CampaignStats(ctx context.Context, campaignID string) (*entity.CampaignStats, error)
}

// CampaignClearer drops a campaign from the cache under the sync writer lock.
type CampaignClearer interface {
	Clear(ctx context.Context, campaignID string) error
}

// RemoteCampaigns lists campaigns at the source.
type RemoteCampaigns interface {
	ListCampaigns(ctx context.Context, status string) ([]entity.Campaign, error)
}

var errUnknownCampaign = &usecase.DomainError{Code: "UNKNOWN_CAMPAIGN", Message: "campaign is not cached, run a sync first"}

type CampaignHandler struct {
	Store   CampaignReader
	Clearer CampaignClearer
	Remote  RemoteCampaigns
	Logger  *zap.Logger
}

func NewCampaignHandler(store CampaignReader, clearer CampaignClearer, logger *zap.Logger) *CampaignHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignHandler{Store: store, Clearer: clearer, Logger: logger}
}

func (h *CampaignHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Store.ListCachedCampaigns(r.Context())
	if err != nil {
		h.fail(w, "list cached campaigns", err)
		return
	}
	if campaigns == nil {
		campaigns = []entity.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (h *CampaignHandler) HandleListRemote(w http.ResponseWriter, r *http.Request) {
	if h.Remote == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Lemlist API key is not configured."})
		return
	}
	campaigns, err := h.Remote.ListCampaigns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, "list remote campaigns", err)
		return
	}
	if campaigns == nil {
		campaigns = []entity.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (h *CampaignHandler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")
	activities, err := h.Store.JoinedActivities(r.Context(), campaignID)
	if err != nil {
		h.fail(w, "load joined activities", err)
		return
	}
	if activities == nil {
		activities = []entity.JoinedActivity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

func (h *CampaignHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")
	campaign, err := h.Store.GetCampaign(r.Context(), campaignID)
	if err != nil {
		h.fail(w, "load campaign", err)
		return
	}
	if campaign == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: errUnknownCampaign.Message, Code: errUnknownCampaign.Code})
		return
	}

	stats, err := h.Store.CampaignStats(r.Context(), campaignID)
	if err != nil {
		h.fail(w, "campaign stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *CampaignHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")
	if err := h.Clearer.Clear(r.Context(), campaignID); err != nil {
		h.fail(w, "clear campaign", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandler) fail(w http.ResponseWriter, op string, err error) {
	h.Logger.Error("❌ "+op, zap.Error(err))
	writeError(w, err)
}
