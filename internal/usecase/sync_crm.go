package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/enrichment"
	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
	"github.com/xavierca1/leadsync/internal/infra/metrics"
)

const (
	DefaultCRMBatchSize  = 50
	DefaultCRMBatchDelay = 250 * time.Millisecond
)

// ClassificationFields names the CRM properties that are only written while
// empty on the remote side.
type ClassificationFields struct {
	JobLevel   string
	Department string
}

func DefaultClassificationFields() ClassificationFields {
	return ClassificationFields{JobLevel: "job_level", Department: "department"}
}

func (f ClassificationFields) names() []string {
	var out []string
	for _, n := range []string{f.JobLevel, f.Department} {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// LeadMetrics pairs a lead with its computed metrics; HasMetrics is false
// when the lead has no activity at all.
type LeadMetrics struct {
	Lead       entity.Lead
	Metrics    enrichment.Metrics
	HasMetrics bool
}

// PlanContactUpdates builds the CRM write set. Metric properties are always
// included. A classification property is included only when the local value
// is known and the remote contact was read and holds no value for it. Leads
// with nothing to write are counted as skipped.
func PlanContactUpdates(leads []LeadMetrics, remote map[string]entity.CRMContact, fields ClassificationFields) ([]entity.ContactUpdate, int) {
	var (
		updates []entity.ContactUpdate
		skipped int
	)
	for _, lm := range leads {
		props := make(map[string]string)
		if lm.HasMetrics {
			for k, v := range lm.Metrics.Properties() {
				props[k] = v
			}
		}

		if contact, ok := remote[lm.Lead.CRMID]; ok {
			if fields.JobLevel != "" && lm.Lead.JobLevel != "" && contact.Property(fields.JobLevel) == "" {
				props[fields.JobLevel] = lm.Lead.JobLevel
			}
			if fields.Department != "" && lm.Lead.Department != "" && contact.Property(fields.Department) == "" {
				props[fields.Department] = lm.Lead.Department
			}
		}

		if len(props) == 0 {
			skipped++
			continue
		}
		updates = append(updates, entity.ContactUpdate{ID: lm.Lead.CRMID, Properties: props})
	}
	return updates, skipped
}

// SyncCRMUseCase pushes engagement metrics and classifications of a
// campaign's leads to the CRM.
type SyncCRMUseCase struct {
	Leads          LeadRepositoryInterface
	Activities     ActivityRepositoryInterface
	CRM            CRMWriter
	Engine         *enrichment.Engine
	Classification ClassificationFields
	BatchSize      int
	BatchDelay     time.Duration
	Sleep          Sleeper
	Now            func() time.Time
	Logger         *zap.Logger
}

func NewSyncCRMUseCase(
	leads LeadRepositoryInterface,
	activities ActivityRepositoryInterface,
	crm CRMWriter,
	engine *enrichment.Engine,
	logger *zap.Logger,
) *SyncCRMUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = enrichment.NewEngine(nil, enrichment.DefaultThresholds())
	}
	return &SyncCRMUseCase{
		Leads:          leads,
		Activities:     activities,
		CRM:            crm,
		Engine:         engine,
		Classification: DefaultClassificationFields(),
		BatchSize:      DefaultCRMBatchSize,
		BatchDelay:     DefaultCRMBatchDelay,
		Sleep:          httpclient.SleepContext,
		Now:            time.Now,
		Logger:         logger,
	}
}

// Execute isolates failures per batch. Only a credential error or a cache
// error stops the run early; the partial result is returned with it.
func (uc *SyncCRMUseCase) Execute(ctx context.Context, input SyncCRMInput) (*entity.CRMSyncResult, error) {
	if input.CampaignID == "" {
		return nil, ErrCampaignRequired
	}
	log := uc.Logger.With(zap.String("campaign_id", input.CampaignID))

	leads, err := uc.Leads.LeadsByCampaign(ctx, input.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("leads for %s: %w", input.CampaignID, err)
	}

	result := &entity.CRMSyncResult{Processed: len(leads)}
	defer func() {
		metrics.RecordCRMContacts(result.Succeeded, result.Failed, result.Skipped)
	}()

	candidates, err := uc.collectMetrics(ctx, leads, result)
	if err != nil {
		return result, err
	}
	if len(candidates) == 0 {
		log.Info("no lead with a CRM id, nothing to push", zap.Int("skipped", result.Skipped))
		return result, nil
	}

	remote, err := uc.readClassification(ctx, candidates, log)
	if err != nil {
		if errors.Is(err, httpclient.ErrUnauthorized) {
			return result, err
		}
		log.Warn("⚠️ could not read CRM classification, leaving those fields alone", zap.Error(err))
		remote = nil
	}

	updates, skipped := PlanContactUpdates(candidates, remote, uc.Classification)
	result.Skipped += skipped

	if err := uc.writeBatches(ctx, updates, result, input.Progress, log); err != nil {
		return result, err
	}

	log.Info("📤 CRM sync finished",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// collectMetrics keeps leads with a CRM id, one per CRM id, and computes
// their metrics across every campaign sharing the lead's email.
func (uc *SyncCRMUseCase) collectMetrics(ctx context.Context, leads []entity.Lead, result *entity.CRMSyncResult) ([]LeadMetrics, error) {
	now := uc.Now()
	seen := make(map[string]bool)
	byEmail := make(map[string][]entity.Activity)

	var out []LeadMetrics
	for _, lead := range leads {
		if !lead.HasCRMID() || seen[lead.CRMID] {
			result.Skipped++
			continue
		}
		seen[lead.CRMID] = true

		acts, cached := byEmail[lead.Email]
		if !cached {
			var err error
			acts, err = uc.Activities.ActivitiesByLeadEmail(ctx, lead.Email)
			if err != nil {
				return nil, fmt.Errorf("activities for lead %s: %w", lead.ID, err)
			}
			byEmail[lead.Email] = acts
		}

		m, ok := uc.Engine.Compute(acts, now)
		out = append(out, LeadMetrics{Lead: lead, Metrics: m, HasMetrics: ok})
	}
	return out, nil
}

// readClassification reads the classification properties in one batch. When
// the batch is refused it reads contact by contact, so one bad id does not
// hide the others; an unreachable CRM ends the per-contact reads early.
func (uc *SyncCRMUseCase) readClassification(ctx context.Context, leads []LeadMetrics, log *zap.Logger) (map[string]entity.CRMContact, error) {
	props := uc.Classification.names()
	if len(props) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(leads))
	for _, lm := range leads {
		ids = append(ids, lm.Lead.CRMID)
	}

	remote, err := uc.CRM.BatchReadContacts(ctx, ids, props)
	if err == nil || errors.Is(err, httpclient.ErrUnauthorized) {
		return remote, err
	}
	log.Warn("⚠️ batch read of CRM contacts failed, reading one by one", zap.Error(err))

	remote = make(map[string]entity.CRMContact, len(ids))
	for _, id := range ids {
		contact, err := uc.CRM.GetContact(ctx, id, props)
		switch {
		case err == nil:
			if contact != nil {
				remote[id] = *contact
			}
		case errors.Is(err, httpclient.ErrUnauthorized),
			errors.Is(err, httpclient.ErrTransient),
			errors.Is(err, httpclient.ErrRateLimited):
			return nil, err
		default:
			log.Warn("⚠️ could not read CRM contact", zap.String("contact_id", id), zap.Error(err))
		}
	}
	return remote, nil
}

func (uc *SyncCRMUseCase) writeBatches(ctx context.Context, updates []entity.ContactUpdate, result *entity.CRMSyncResult, progress ProgressFunc, log *zap.Logger) error {
	size := uc.BatchSize
	if size <= 0 {
		size = DefaultCRMBatchSize
	}

	done := 0
	for start := 0; start < len(updates); start += size {
		if start > 0 {
			if err := uc.Sleep(ctx, uc.BatchDelay); err != nil {
				return err
			}
		}
		batch := updates[start:min(start+size, len(updates))]
		batchNo := start/size + 1

		if err := uc.writeBatch(ctx, batchNo, batch, result, log); err != nil {
			return err
		}

		done += len(batch)
		if progress != nil {
			progress(done, len(updates))
		}
	}
	return nil
}

// writeBatch only returns an error when the whole run must stop.
func (uc *SyncCRMUseCase) writeBatch(ctx context.Context, batchNo int, batch []entity.ContactUpdate, result *entity.CRMSyncResult, log *zap.Logger) error {
	res, err := uc.CRM.BatchUpdateContacts(ctx, batch)
	switch {
	case err == nil:
		updated := min(res.Updated, len(batch))
		result.Succeeded += updated
		result.Failed += len(batch) - updated
		for _, e := range res.Errors {
			result.BatchErrors = append(result.BatchErrors, fmt.Sprintf("batch %d: %s", batchNo, e))
		}
		return nil

	case errors.Is(err, httpclient.ErrUnauthorized):
		result.Failed += len(batch)
		return err

	case errors.Is(err, httpclient.ErrNotFound):
		log.Warn("⚠️ batch references missing contacts, updating one by one", zap.Int("batch", batchNo), zap.Error(err))
		return uc.writeEach(ctx, batch, result, log)

	default:
		if ctx.Err() != nil {
			result.Failed += len(batch)
			return ctx.Err()
		}
		log.Error("❌ batch failed", zap.Int("batch", batchNo), zap.Error(err))
		result.Failed += len(batch)
		result.BatchErrors = append(result.BatchErrors, fmt.Sprintf("batch %d: %v", batchNo, err))
		return nil
	}
}

func (uc *SyncCRMUseCase) writeEach(ctx context.Context, batch []entity.ContactUpdate, result *entity.CRMSyncResult, log *zap.Logger) error {
	for i, u := range batch {
		err := uc.CRM.UpdateContact(ctx, u.ID, u.Properties)
		switch {
		case err == nil:
			result.Succeeded++
		case errors.Is(err, httpclient.ErrUnauthorized):
			result.Failed += len(batch) - i
			return err
		default:
			log.Warn("⚠️ contact update failed", zap.String("contact_id", u.ID), zap.Error(err))
			result.Failed++
		}
	}
	return nil
}
