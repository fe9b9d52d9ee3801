package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/metrics"
)

type SyncCampaignUseCase struct {
	Source     ActivitySource
	Campaigns  CampaignRepositoryInterface
	Leads      LeadRepositoryInterface
	Activities ActivityRepositoryInterface
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewSyncCampaignUseCase(
	source ActivitySource,
	campaigns CampaignRepositoryInterface,
	leads LeadRepositoryInterface,
	activities ActivityRepositoryInterface,
	logger *zap.Logger,
) *SyncCampaignUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncCampaignUseCase{
		Source:     source,
		Campaigns:  campaigns,
		Leads:      leads,
		Activities: activities,
		Logger:     logger,
		Now:        time.Now,
	}
}

// Execute loads the campaign's activity stream into the cache. A campaign
// that was never cached (or ForceFull) gets its full history; otherwise only
// activities newer than the latest cached one are fetched.
func (uc *SyncCampaignUseCase) Execute(ctx context.Context, input SyncCampaignInput) (*SyncCampaignOutput, error) {
	if input.CampaignID == "" {
		return nil, ErrCampaignRequired
	}
	log := uc.Logger.With(zap.String("campaign_id", input.CampaignID))

	existing, err := uc.Campaigns.GetCampaign(ctx, input.CampaignID)
	if err != nil {
		return nil, cacheError(fmt.Sprintf("load campaign %s", input.CampaignID), err)
	}

	out := &SyncCampaignOutput{CampaignID: input.CampaignID, Mode: entity.SyncFull}
	query := entity.ActivityQuery{CampaignID: input.CampaignID}

	if existing != nil && !input.ForceFull {
		out.Mode = entity.SyncIncremental
		latest, ok, err := uc.Activities.LatestActivityTimestamp(ctx, input.CampaignID)
		if err != nil {
			return nil, cacheError(fmt.Sprintf("latest activity for %s", input.CampaignID), err)
		}
		if ok {
			query.Since = latest
			out.Since = &latest
		}
	}
	log.Info("🔄 syncing campaign", zap.String("mode", string(out.Mode)), zap.Time("since", query.Since))

	feed, err := uc.Source.ListActivities(ctx, query)
	if err != nil {
		metrics.RecordSyncRun(string(out.Mode), "error")
		return nil, err
	}
	out.Fetched = len(feed.Activities)

	activities := entity.NormalizeActivities(feed.Activities)
	out.Normalized = len(activities)

	campaign := uc.campaignRecord(input, existing)
	out.CampaignName = campaign.Name
	if err := uc.Campaigns.UpsertCampaign(ctx, campaign); err != nil {
		return nil, cacheError(fmt.Sprintf("store campaign %s", input.CampaignID), err)
	}

	if err := uc.Leads.UpsertLeads(ctx, feed.Leads); err != nil {
		return nil, cacheError(fmt.Sprintf("store leads for %s", input.CampaignID), err)
	}
	out.Leads = len(feed.Leads)

	res, err := uc.Activities.UpsertActivities(ctx, activities)
	if err != nil {
		metrics.RecordSyncRun(string(out.Mode), "error")
		return nil, cacheError(fmt.Sprintf("store activities for %s", input.CampaignID), err)
	}
	out.Inserted = res.Inserted
	out.Ignored = res.Ignored
	out.Rejected = len(res.Rejected)

	for _, r := range res.Rejected {
		log.Warn("⚠️ activity rejected", zap.String("activity_id", r.Activity.ID), zap.Error(r.Err))
	}

	metrics.RecordActivities(out.Inserted, out.Ignored, out.Rejected)
	metrics.RecordSyncRun(string(out.Mode), "success")
	metrics.SetLastSync(float64(campaign.LastSyncedAt.Unix()))

	log.Info("✅ campaign synced",
		zap.Int("fetched", out.Fetched),
		zap.Int("leads", out.Leads),
		zap.Int("inserted", out.Inserted),
		zap.Int("ignored", out.Ignored),
		zap.Int("rejected", out.Rejected),
	)
	return out, nil
}

// campaignRecord prefers caller-supplied metadata, then what is cached, then
// a generic fallback.
func (uc *SyncCampaignUseCase) campaignRecord(input SyncCampaignInput, existing *entity.Campaign) *entity.Campaign {
	c := &entity.Campaign{
		ID:           input.CampaignID,
		Name:         input.CampaignName,
		Status:       entity.CampaignUnknown,
		LastSyncedAt: uc.Now().UTC(),
	}
	if input.CampaignStatus != "" {
		c.Status = entity.ParseCampaignStatus(input.CampaignStatus)
	} else if existing != nil {
		c.Status = existing.Status
	}
	if c.Name == "" && existing != nil {
		c.Name = existing.Name
	}
	if c.Name == "" {
		c.Name = "Campaign " + input.CampaignID
	}
	if existing != nil {
		c.CreatedAt = existing.CreatedAt
	}
	return c
}
