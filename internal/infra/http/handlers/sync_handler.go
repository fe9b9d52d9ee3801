package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/queue"
	"github.com/xavierca1/leadsync/internal/usecase"
)

type SyncPublisher interface {
	PublishSyncRequest(ctx context.Context, req queue.SyncRequest) (queue.SyncRequest, error)
}

type InlineSyncRunner interface {
	TryExecute(ctx context.Context, in usecase.PipelineInput) (*entity.SyncReport, error)
}

type SyncTriggerRequest struct {
	CampaignName   string `json:"campaign_name,omitempty"`
	CampaignStatus string `json:"campaign_status,omitempty"`
	ForceFull      bool   `json:"force_full"`
	FetchDetails   bool   `json:"fetch_details"`
	PushCRM        bool   `json:"push_crm"`
}

type SyncQueuedResponse struct {
	RunID      string `json:"run_id"`
	CampaignID string `json:"campaign_id"`
	Status     string `json:"status"`
}

// SyncHandler starts a sync. With a queue the run is enqueued and answered
// with 202; otherwise it runs inline and a concurrent request gets 409.
type SyncHandler struct {
	Publisher   SyncPublisher
	Runner      InlineSyncRunner
	rateLimiter *RateLimiter
	Logger      *zap.Logger
}

func NewSyncHandler(rateLimit int, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{
		rateLimiter: NewRateLimiter(rateLimit, time.Minute),
		Logger:      logger,
	}
}

func (h *SyncHandler) RateLimiter() *RateLimiter {
	return h.rateLimiter
}

func (h *SyncHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID := chi.URLParam(r, "campaignId")

	if !h.rateLimiter.Allow(getClientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests. Please try again later."})
		return
	}

	var req SyncTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	if h.Publisher != nil {
		queued, err := h.Publisher.PublishSyncRequest(ctx, queue.SyncRequest{
			CampaignID:     campaignID,
			CampaignName:   req.CampaignName,
			CampaignStatus: req.CampaignStatus,
			ForceFull:      req.ForceFull,
			FetchDetails:   req.FetchDetails,
			PushCRM:        req.PushCRM,
			Origin:         "api",
		})
		if err != nil {
			h.Logger.Error("❌ could not enqueue sync", zap.String("campaign_id", campaignID), zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: usecase.MsgUnavailable})
			return
		}
		h.Logger.Info("📨 sync queued", zap.String("campaign_id", campaignID), zap.String("run_id", queued.RunID))
		writeJSON(w, http.StatusAccepted, SyncQueuedResponse{RunID: queued.RunID, CampaignID: campaignID, Status: "queued"})
		return
	}

	if h.Runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Sync is not configured."})
		return
	}

	report, err := h.Runner.TryExecute(ctx, usecase.PipelineInput{
		SyncCampaignInput: usecase.SyncCampaignInput{
			CampaignID:     campaignID,
			CampaignName:   req.CampaignName,
			CampaignStatus: req.CampaignStatus,
			ForceFull:      req.ForceFull,
		},
		FetchDetails: req.FetchDetails,
		PushCRM:      req.PushCRM,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
