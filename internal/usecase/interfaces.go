package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/queue"
)

// ProgressFunc is told how many of total items are done so far.
type ProgressFunc func(current, total int)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type ActivitySource interface {
	ListCampaigns(ctx context.Context, status string) ([]entity.Campaign, error)
	ListActivities(ctx context.Context, q entity.ActivityQuery) (*entity.ActivityFeed, error)
	GetLeadDetails(ctx context.Context, email string) (*entity.LeadDetails, error)
}

type CRMWriter interface {
	BatchReadContacts(ctx context.Context, ids []string, properties []string) (map[string]entity.CRMContact, error)
	GetContact(ctx context.Context, id string, properties []string) (*entity.CRMContact, error)
	BatchUpdateContacts(ctx context.Context, updates []entity.ContactUpdate) (*entity.BatchUpdateResult, error)
	UpdateContact(ctx context.Context, id string, properties map[string]string) error
}

type NoteService interface {
	NotesForContact(ctx context.Context, contactID string) ([]entity.CRMNote, error)
	BatchArchiveNotes(ctx context.Context, ids []string) (int, error)
}

type CampaignRepositoryInterface interface {
	UpsertCampaign(ctx context.Context, c *entity.Campaign) error
	GetCampaign(ctx context.Context, id string) (*entity.Campaign, error)
}

type LeadRepositoryInterface interface {
	UpsertLeads(ctx context.Context, leads []entity.Lead) error
	UpdateLeadDetails(ctx context.Context, campaignID, leadID string, d entity.LeadDetails) error
	UpdateLeadClassification(ctx context.Context, campaignID, leadID, jobLevel, department string) error
	LeadsByCampaign(ctx context.Context, campaignID string) ([]entity.Lead, error)
	LeadsNeedingEnrichment(ctx context.Context, campaignID string) ([]entity.Lead, error)
	LeadsWithCRMID(ctx context.Context, campaignID string) ([]entity.Lead, error)
}

type ActivityRepositoryInterface interface {
	UpsertActivities(ctx context.Context, activities []entity.Activity) (*entity.ActivityUpsertResult, error)
	LatestActivityTimestamp(ctx context.Context, campaignID string) (time.Time, bool, error)
	ActivitiesByLeadEmail(ctx context.Context, email string) ([]entity.Activity, error)
}

type SyncEventPublisher interface {
	PublishCampaignSynced(ctx context.Context, event queue.CampaignSyncedEvent) error
}

type CacheClearer interface {
	ClearCampaign(ctx context.Context, campaignID string) error
}

type ReportSender interface {
	SendSyncReport(report entity.SyncReport) error
}

type SyncCampaignInput struct {
	CampaignID     string `json:"campaign_id"`
	CampaignName   string `json:"campaign_name"`
	CampaignStatus string `json:"campaign_status"`
	ForceFull      bool   `json:"force_full"`
}

type SyncCampaignOutput struct {
	CampaignID   string          `json:"campaign_id"`
	CampaignName string          `json:"campaign_name"`
	Mode         entity.SyncMode `json:"mode"`
	Since        *time.Time      `json:"since,omitempty"`
	Fetched      int             `json:"fetched"`
	Normalized   int             `json:"normalized"`
	Leads        int             `json:"leads"`
	Inserted     int             `json:"inserted"`
	Ignored      int             `json:"ignored"`
	Rejected     int             `json:"rejected"`
}

type FetchLeadDetailsInput struct {
	CampaignID string
	Progress   ProgressFunc
}

type SyncCRMInput struct {
	CampaignID string
	Progress   ProgressFunc
}

type NotesCleanupInput struct {
	CampaignID string
	DryRun     bool
	Progress   ProgressFunc
}

type NotesCleanupOutput struct {
	Contacts        int            `json:"contacts"`
	Notes           int            `json:"notes"`
	LemlistNotes    int            `json:"lemlist_notes"`
	DuplicateGroups int            `json:"duplicate_groups"`
	ToDelete        int            `json:"to_delete"`
	ByType          map[string]int `json:"by_type"`
	Deleted         int            `json:"deleted"`
	Failed          int            `json:"failed"`
}
