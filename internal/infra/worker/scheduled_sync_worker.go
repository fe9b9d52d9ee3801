package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/infra/queue"
	"github.com/xavierca1/leadsync/internal/usecase"
)

// Dispatcher hands a sync request to whoever runs it: the queue producer
// or the pipeline inline.
type Dispatcher interface {
	Dispatch(ctx context.Context, req queue.SyncRequest) error
}

type DispatchFunc func(ctx context.Context, req queue.SyncRequest) error

func (f DispatchFunc) Dispatch(ctx context.Context, req queue.SyncRequest) error {
	return f(ctx, req)
}

// ScheduledSyncWorker requests an incremental sync of each configured
// campaign on every tick.
type ScheduledSyncWorker struct {
	dispatcher   Dispatcher
	campaignIDs  []string
	tickInterval time.Duration
	fetchDetails bool
	pushCRM      bool
	logger       *zap.Logger
}

func NewScheduledSyncWorker(dispatcher Dispatcher, campaignIDs []string, interval time.Duration, pushCRM bool, logger *zap.Logger) *ScheduledSyncWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduledSyncWorker{
		dispatcher:   dispatcher,
		campaignIDs:  campaignIDs,
		tickInterval: interval,
		fetchDetails: true,
		pushCRM:      pushCRM,
		logger:       logger,
	}
}

func (w *ScheduledSyncWorker) Start(ctx context.Context) {
	if w.tickInterval <= 0 || len(w.campaignIDs) == 0 {
		w.logger.Info("scheduled sync disabled")
		return
	}
	w.logger.Info("🕒 scheduled sync worker started",
		zap.Duration("interval", w.tickInterval), zap.Strings("campaigns", w.campaignIDs))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("⚠️ scheduled sync worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce dispatches one request per campaign. Failures are logged and do
// not stop the remaining campaigns.
func (w *ScheduledSyncWorker) RunOnce(ctx context.Context) int {
	dispatched := 0
	for _, id := range w.campaignIDs {
		if ctx.Err() != nil {
			return dispatched
		}
		req := queue.SyncRequest{
			CampaignID:   id,
			FetchDetails: w.fetchDetails,
			PushCRM:      w.pushCRM,
			Origin:       "schedule",
			RequestedAt:  time.Now().UTC(),
		}

		err := w.dispatcher.Dispatch(ctx, req)
		switch {
		case errors.Is(err, usecase.ErrSyncInProgress):
			w.logger.Info("⏭️ sync already running, skipping tick", zap.String("campaign_id", id))
		case err != nil:
			w.logger.Error("❌ scheduled sync failed", zap.String("campaign_id", id), zap.Error(err))
		default:
			dispatched++
		}
	}
	return dispatched
}
