package entity

import (
	"time"
)

// Lead is a contact scoped to one campaign. Identity is (CampaignID, ID); the
// same email may appear under different lead ids in other campaigns.
//
// Empty strings mean "unknown" and never clear a stored value on upsert.
type Lead struct {
	ID          string    `json:"lead_id"`
	CampaignID  string    `json:"campaign_id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	CRMID       string    `json:"crm_id,omitempty"`
	LinkedInURL string    `json:"linkedin_url,omitempty"`
	CompanyName string    `json:"company_name,omitempty"`
	JobTitle    string    `json:"job_title,omitempty"`
	JobLevel    string    `json:"job_level,omitempty"`
	Department  string    `json:"department,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (l Lead) HasCRMID() bool {
	return l.CRMID != ""
}

// LeadDetails is what a per-lead detail lookup resolves.
type LeadDetails struct {
	Email       string
	CRMID       string
	LinkedInURL string
	JobTitle    string
	CompanyName string
}

func (d LeadDetails) Empty() bool {
	return d.CRMID == "" && d.LinkedInURL == "" && d.JobTitle == "" && d.CompanyName == ""
}
