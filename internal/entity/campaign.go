package entity

import (
	"strings"
	"time"
)

type CampaignStatus string

const (
	CampaignRunning  CampaignStatus = "running"
	CampaignDraft    CampaignStatus = "draft"
	CampaignPaused   CampaignStatus = "paused"
	CampaignEnded    CampaignStatus = "ended"
	CampaignArchived CampaignStatus = "archived"
	CampaignUnknown  CampaignStatus = "unknown"
)

// ParseCampaignStatus maps the source status tag onto the known lifecycle
// values. Anything unrecognised becomes CampaignUnknown.
func ParseCampaignStatus(raw string) CampaignStatus {
	switch s := CampaignStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case CampaignRunning, CampaignDraft, CampaignPaused, CampaignEnded, CampaignArchived:
		return s
	default:
		return CampaignUnknown
	}
}

type Campaign struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Status       CampaignStatus `json:"status"`
	LastSyncedAt time.Time      `json:"last_synced_at"`
	CreatedAt    time.Time      `json:"created_at"`
}

type CampaignStats struct {
	CampaignID   string     `json:"campaign_id"`
	Leads        int        `json:"leads"`
	Activities   int        `json:"activities"`
	LeadsWithCRM int        `json:"leads_with_crm_id"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}
