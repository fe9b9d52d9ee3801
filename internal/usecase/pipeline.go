package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/queue"
)

var ErrSyncInProgress = &DomainError{Code: "SYNC_IN_PROGRESS", Message: "a sync is already running, retry when it has finished"}

type PipelineInput struct {
	SyncCampaignInput
	RunID        string
	FetchDetails bool
	PushCRM      bool
	Progress     ProgressFunc
}

// SyncPipeline chains campaign sync, detail lookups, classification and the
// CRM push. It holds the single writer lock of the cache: runs never overlap.
type SyncPipeline struct {
	Sync     *SyncCampaignUseCase
	Details  *FetchLeadDetailsUseCase
	Classify *ClassifyLeadsUseCase
	CRM      *SyncCRMUseCase
	Events   SyncEventPublisher
	Reports  ReportSender
	Cache    CacheClearer
	Logger   *zap.Logger
	Now      func() time.Time

	mu sync.Mutex
}

func NewSyncPipeline(
	syncCampaign *SyncCampaignUseCase,
	details *FetchLeadDetailsUseCase,
	classify *ClassifyLeadsUseCase,
	crm *SyncCRMUseCase,
	events SyncEventPublisher,
	reports ReportSender,
	logger *zap.Logger,
) *SyncPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncPipeline{
		Sync:     syncCampaign,
		Details:  details,
		Classify: classify,
		CRM:      crm,
		Events:   events,
		Reports:  reports,
		Logger:   logger,
		Now:      time.Now,
	}
}

// Execute waits for any running sync to finish first.
func (p *SyncPipeline) Execute(ctx context.Context, in PipelineInput) (*entity.SyncReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run(ctx, in)
}

// TryExecute fails with ErrSyncInProgress instead of waiting.
func (p *SyncPipeline) TryExecute(ctx context.Context, in PipelineInput) (*entity.SyncReport, error) {
	if !p.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer p.mu.Unlock()
	return p.run(ctx, in)
}

// Clear drops the cached rows of one campaign. It takes the writer lock and
// fails with ErrSyncInProgress instead of wiping rows a running sync writes.
func (p *SyncPipeline) Clear(ctx context.Context, campaignID string) error {
	if campaignID == "" {
		return ErrCampaignRequired
	}
	if p.Cache == nil {
		return &TechnicalError{Code: "CACHE_UNAVAILABLE", Message: "no cache configured"}
	}
	if !p.mu.TryLock() {
		return ErrSyncInProgress
	}
	defer p.mu.Unlock()

	if err := p.Cache.ClearCampaign(ctx, campaignID); err != nil {
		return cacheError("clear campaign "+campaignID, err)
	}
	p.Logger.Info("🗑️ campaign cache cleared", zap.String("campaign_id", campaignID))
	return nil
}

// RunSync serves queued sync requests.
func (p *SyncPipeline) RunSync(ctx context.Context, req queue.SyncRequest) error {
	_, err := p.Execute(ctx, PipelineInput{
		SyncCampaignInput: SyncCampaignInput{
			CampaignID:     req.CampaignID,
			CampaignName:   req.CampaignName,
			CampaignStatus: req.CampaignStatus,
			ForceFull:      req.ForceFull,
		},
		RunID:        req.RunID,
		FetchDetails: req.FetchDetails,
		PushCRM:      req.PushCRM,
	})
	return err
}

func (p *SyncPipeline) run(ctx context.Context, in PipelineInput) (*entity.SyncReport, error) {
	if in.RunID == "" {
		in.RunID = uuid.NewString()
	}
	report := &entity.SyncReport{
		RunID:      in.RunID,
		CampaignID: in.CampaignID,
		StartedAt:  p.Now().UTC(),
	}
	log := p.Logger.With(zap.String("run_id", in.RunID), zap.String("campaign_id", in.CampaignID))

	err := p.steps(ctx, in, report, log)
	report.FinishedAt = p.Now().UTC()
	if err != nil {
		report.Error = UserMessage(err)
		log.Error("❌ sync pipeline failed", zap.Error(err), zap.String("user_message", report.Error))
	} else {
		log.Info("🏁 sync pipeline finished", zap.Duration("took", report.Duration()))
	}

	p.publish(ctx, report, log)
	return report, err
}

func (p *SyncPipeline) steps(ctx context.Context, in PipelineInput, report *entity.SyncReport, log *zap.Logger) error {
	synced, err := p.Sync.Execute(ctx, in.SyncCampaignInput)
	if err != nil {
		return err
	}
	report.CampaignName = synced.CampaignName
	report.Mode = synced.Mode
	report.Fetched = synced.Fetched
	report.Leads = synced.Leads
	report.Inserted = synced.Inserted
	report.Ignored = synced.Ignored
	report.Rejected = synced.Rejected

	if in.FetchDetails && p.Details != nil {
		details, err := p.Details.Execute(ctx, FetchLeadDetailsInput{CampaignID: in.CampaignID, Progress: in.Progress})
		report.Details = details
		if err != nil {
			return err
		}
	}

	if p.Classify != nil {
		classified, err := p.Classify.Execute(ctx, in.CampaignID)
		if err != nil {
			return err
		}
		report.Classified = classified.Classified
	}

	if in.PushCRM {
		if p.CRM == nil {
			log.Warn("CRM push requested but no CRM client is configured")
			return nil
		}
		crm, err := p.CRM.Execute(ctx, SyncCRMInput{CampaignID: in.CampaignID, Progress: in.Progress})
		report.CRM = crm
		if err != nil {
			return err
		}
	}
	return nil
}

// publish emits the campaign.synced event and the report mail. Neither can
// fail the run.
func (p *SyncPipeline) publish(ctx context.Context, report *entity.SyncReport, log *zap.Logger) {
	if p.Events != nil {
		event := queue.CampaignSyncedEvent{
			RunID:      report.RunID,
			CampaignID: report.CampaignID,
			Mode:       string(report.Mode),
			Inserted:   report.Inserted,
			Ignored:    report.Ignored,
			Rejected:   report.Rejected,
			Error:      report.Error,
			FinishedAt: report.FinishedAt,
		}
		if report.CRM != nil {
			event.CRMSucceeded = report.CRM.Succeeded
			event.CRMFailed = report.CRM.Failed
		}
		if err := p.Events.PublishCampaignSynced(context.WithoutCancel(ctx), event); err != nil {
			log.Warn("⚠️ could not publish campaign.synced", zap.Error(err))
		}
	}

	if p.Reports != nil {
		if err := p.Reports.SendSyncReport(*report); err != nil {
			log.Warn("⚠️ could not send sync report", zap.Error(err))
		}
	}
}
