package entity

import "time"

type SyncMode string

const (
	SyncFull        SyncMode = "full"
	SyncIncremental SyncMode = "incremental"
)

// CRMSyncResult holds the outcome of one CRM push. Every lead of the campaign
// lands in exactly one of Succeeded, Failed or Skipped.
type CRMSyncResult struct {
	Processed   int      `json:"processed"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	Skipped     int      `json:"skipped"`
	BatchErrors []string `json:"batch_errors,omitempty"`
}

type DetailsResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SyncReport summarises one pipeline run for a campaign.
type SyncReport struct {
	RunID        string         `json:"run_id"`
	CampaignID   string         `json:"campaign_id"`
	CampaignName string         `json:"campaign_name"`
	Mode         SyncMode       `json:"mode"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Fetched      int            `json:"fetched"`
	Leads        int            `json:"leads"`
	Inserted     int            `json:"inserted"`
	Ignored      int            `json:"ignored"`
	Rejected     int            `json:"rejected"`
	Details      *DetailsResult `json:"details,omitempty"`
	Classified   int            `json:"classified"`
	CRM          *CRMSyncResult `json:"crm,omitempty"`
	Error        string         `json:"error,omitempty"`
}

func (r SyncReport) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
