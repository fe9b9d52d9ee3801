package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
)

const (
	DefaultDetailDelay     = 150 * time.Millisecond
	DefaultDetailGroupSize = 50
	DefaultDetailPause     = 2 * time.Second
)

// FetchLeadDetailsUseCase resolves CRM ids and LinkedIn URLs for leads that
// have none yet. Lookups run one at a time with a delay between calls and a
// longer pause after every group.
type FetchLeadDetailsUseCase struct {
	Source     ActivitySource
	Leads      LeadRepositoryInterface
	Delay      time.Duration
	GroupSize  int
	GroupPause time.Duration
	Sleep      Sleeper
	Logger     *zap.Logger
}

func NewFetchLeadDetailsUseCase(source ActivitySource, leads LeadRepositoryInterface, logger *zap.Logger) *FetchLeadDetailsUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchLeadDetailsUseCase{
		Source:     source,
		Leads:      leads,
		Delay:      DefaultDetailDelay,
		GroupSize:  DefaultDetailGroupSize,
		GroupPause: DefaultDetailPause,
		Sleep:      httpclient.SleepContext,
		Logger:     logger,
	}
}

// Execute aborts on a credential error. Any other lookup failure is counted
// and the run moves on to the next lead.
func (uc *FetchLeadDetailsUseCase) Execute(ctx context.Context, input FetchLeadDetailsInput) (*entity.DetailsResult, error) {
	if input.CampaignID == "" {
		return nil, ErrCampaignRequired
	}
	log := uc.Logger.With(zap.String("campaign_id", input.CampaignID))

	leads, err := uc.Leads.LeadsNeedingEnrichment(ctx, input.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("leads needing enrichment for %s: %w", input.CampaignID, err)
	}

	out := &entity.DetailsResult{}
	total := len(leads)
	groupSize := uc.GroupSize
	if groupSize <= 0 {
		groupSize = DefaultDetailGroupSize
	}

	for i, lead := range leads {
		if i > 0 {
			if err := uc.Sleep(ctx, uc.pauseBefore(i, groupSize)); err != nil {
				return out, err
			}
		}

		details, err := uc.lookup(ctx, lead)
		out.Processed++
		switch {
		case errors.Is(err, httpclient.ErrUnauthorized):
			log.Error("❌ lead lookup rejected credentials, aborting", zap.Error(err))
			return out, err
		case ctx.Err() != nil:
			return out, ctx.Err()
		case err != nil:
			out.Failed++
			log.Warn("⚠️ lead lookup failed", zap.String("lead_id", lead.ID), zap.Error(err))
		case details != nil:
			if err := uc.Leads.UpdateLeadDetails(ctx, lead.CampaignID, lead.ID, *details); err != nil {
				return out, fmt.Errorf("store details for lead %s: %w", lead.ID, err)
			}
			out.Succeeded++
		}

		if input.Progress != nil {
			input.Progress(out.Processed, total)
		}
	}

	log.Info("🔎 lead details fetched",
		zap.Int("processed", out.Processed),
		zap.Int("succeeded", out.Succeeded),
		zap.Int("failed", out.Failed),
	)
	return out, nil
}

// pauseBefore returns the sleep before lookup i: the group pause once a full
// group is done, the regular delay otherwise.
func (uc *FetchLeadDetailsUseCase) pauseBefore(i, groupSize int) time.Duration {
	if i%groupSize == 0 {
		return uc.GroupPause
	}
	return uc.Delay
}

// lookup returns nil details when the source knows nothing new about the lead.
func (uc *FetchLeadDetailsUseCase) lookup(ctx context.Context, lead entity.Lead) (*entity.LeadDetails, error) {
	if lead.Email == "" {
		return nil, nil
	}
	details, err := uc.Source.GetLeadDetails(ctx, lead.Email)
	if err != nil || details == nil || details.Empty() {
		return nil, err
	}
	return details, nil
}
