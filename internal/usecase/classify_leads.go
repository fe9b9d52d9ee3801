package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/enrichment"
)

type ClassifyLeadsOutput struct {
	Examined   int `json:"examined"`
	Classified int `json:"classified"`
}

// ClassifyLeadsUseCase derives job level and department from cached job
// titles. Values already stored are kept.
type ClassifyLeadsUseCase struct {
	Leads       LeadRepositoryInterface
	JobLevels   enrichment.Classifier
	Departments enrichment.Classifier
	Logger      *zap.Logger
}

func NewClassifyLeadsUseCase(leads LeadRepositoryInterface, logger *zap.Logger) *ClassifyLeadsUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassifyLeadsUseCase{
		Leads:       leads,
		JobLevels:   enrichment.JobLevelClassifier(),
		Departments: enrichment.DepartmentClassifier(),
		Logger:      logger,
	}
}

func (uc *ClassifyLeadsUseCase) Execute(ctx context.Context, campaignID string) (*ClassifyLeadsOutput, error) {
	if campaignID == "" {
		return nil, ErrCampaignRequired
	}
	leads, err := uc.Leads.LeadsByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("leads for %s: %w", campaignID, err)
	}

	out := &ClassifyLeadsOutput{}
	for _, lead := range leads {
		if lead.JobTitle == "" || (lead.JobLevel != "" && lead.Department != "") {
			continue
		}
		out.Examined++

		level, dept := "", ""
		if lead.JobLevel == "" {
			level = uc.JobLevels.Classify(lead.JobTitle)
		}
		if lead.Department == "" {
			dept = uc.Departments.Classify(lead.JobTitle)
		}
		if level == "" && dept == "" {
			continue
		}
		if err := uc.Leads.UpdateLeadClassification(ctx, campaignID, lead.ID, level, dept); err != nil {
			return out, fmt.Errorf("classify lead %s: %w", lead.ID, err)
		}
		out.Classified++
	}

	uc.Logger.Info("🏷️ leads classified",
		zap.String("campaign_id", campaignID),
		zap.Int("examined", out.Examined),
		zap.Int("classified", out.Classified),
	)
	return out, nil
}
