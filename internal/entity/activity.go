package entity

import (
	"encoding/json"
	"time"
)

// Raw activity type tags emitted by the source API.
const (
	TypeEmailsSent             = "emailsSent"
	TypeEmailsOpened           = "emailsOpened"
	TypeEmailsClicked          = "emailsClicked"
	TypeEmailsReplied          = "emailsReplied"
	TypeEmailsBounced          = "emailsBounced"
	TypeEmailsFailed           = "emailsFailed"
	TypeEmailsUnsubscribed     = "emailsUnsubscribed"
	TypeLinkedinVisitDone      = "linkedinVisitDone"
	TypeLinkedinSent           = "linkedinSent"
	TypeLinkedinOpened         = "linkedinOpened"
	TypeLinkedinReplied        = "linkedinReplied"
	TypeLinkedinInviteDone     = "linkedinInviteDone"
	TypeLinkedinInviteAccepted = "linkedinInviteAccepted"
	TypeOutOfOffice            = "outOfOffice"
	TypeSkipped                = "skipped"
	TypeInterested             = "interested"
	TypeNotInterested          = "notInterested"
	TypeHasEmailAddress        = "hasEmailAddress"
	TypeConditionChosen        = "conditionChosen"
)

// Activity is a single immutable event tied to a lead.
type Activity struct {
	ID          string          `json:"id"`
	LeadID      string          `json:"lead_id"`
	LeadEmail   string          `json:"lead_email"`
	CampaignID  string          `json:"campaign_id"`
	Type        string          `json:"type"`
	TypeDisplay string          `json:"type_display"`
	CreatedAt   time.Time       `json:"created_at"`
	Details     string          `json:"details,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`

	// Only used while normalizing; not persisted as columns.
	TemplateID   string `json:"-"`
	SequenceStep string `json:"-"`
}

// JoinedActivity is the display read model: an activity plus whatever lead
// attributes are known. Lead fields are empty when enrichment is incomplete.
type JoinedActivity struct {
	Activity
	LeadFirstName   string `json:"lead_first_name"`
	LeadLastName    string `json:"lead_last_name"`
	LeadCRMID       string `json:"lead_crm_id"`
	LeadLinkedInURL string `json:"lead_linkedin_url"`
}

// ActivityQuery scopes an activity listing. CampaignID is mandatory; a zero
// Since fetches the full history, otherwise the full stream is normalized
// first and only activities strictly newer than Since are kept.
type ActivityQuery struct {
	CampaignID string
	Since      time.Time
}

// ActivityFeed is one fetched activity stream plus the leads it mentions.
type ActivityFeed struct {
	Activities []Activity
	Leads      []Lead
}

// IsNoiseType reports whether a raw type is bookkeeping with no analytical
// value. Such activities are never persisted.
func IsNoiseType(t string) bool {
	return t == TypeHasEmailAddress || t == TypeConditionChosen
}

type RejectedActivity struct {
	Activity Activity
	Err      error
}

// ActivityUpsertResult splits a stored batch into newly inserted ids, ids
// that were already present and rejected records.
type ActivityUpsertResult struct {
	Inserted int
	Ignored  int
	Rejected []RejectedActivity
}
