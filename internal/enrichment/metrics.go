package enrichment

import (
	"strconv"
	"time"

	"github.com/xavierca1/leadsync/internal/entity"
)

type Metrics struct {
	Counts             map[string]int
	Total              int
	Campaigns          int
	RawScore           int
	Score              int
	Status             Status
	FirstActivity      time.Time
	LastActivity       time.Time
	LastActivityType   string
	DaysSinceFirst     int
	DaysSinceLast      int
	OpenRate           float64
	ClickRate          float64
	ReplyRate          float64
	LinkedInAcceptRate float64
}

// CRM contact property names written on every sync.
const (
	PropTotalActivities    = "lemlist_total_activities"
	PropCampaignCount      = "lemlist_campaign_count"
	PropEmailsSent         = "lemlist_emails_sent"
	PropEmailsOpened       = "lemlist_emails_opened"
	PropEmailsClicked      = "lemlist_emails_clicked"
	PropEmailsReplied      = "lemlist_emails_replied"
	PropEmailsBounced      = "lemlist_emails_bounced"
	PropLinkedinVisits     = "lemlist_linkedin_visits"
	PropLinkedinInvites    = "lemlist_linkedin_invites_sent"
	PropLinkedinAccepted   = "lemlist_linkedin_invites_accepted"
	PropLinkedinMessages   = "lemlist_linkedin_messages_sent"
	PropLinkedinReplies    = "lemlist_linkedin_replies"
	PropOpenRate           = "lemlist_open_rate"
	PropClickRate          = "lemlist_click_rate"
	PropReplyRate          = "lemlist_reply_rate"
	PropLinkedinAcceptRate = "lemlist_linkedin_accept_rate"
	PropEngagementScore    = "lemlist_engagement_score"
	PropLeadStatus         = "lemlist_lead_status"
	PropFirstActivityDate  = "lemlist_first_activity_date"
	PropLastActivityDate   = "lemlist_last_activity_date"
	PropLastActivityType   = "lemlist_last_activity_type"
	PropDaysSinceFirst     = "lemlist_days_since_first_activity"
	PropDaysSinceLast      = "lemlist_days_since_last_activity"
)

var countProperties = []struct {
	prop string
	typ  string
}{
	{PropEmailsSent, entity.TypeEmailsSent},
	{PropEmailsOpened, entity.TypeEmailsOpened},
	{PropEmailsClicked, entity.TypeEmailsClicked},
	{PropEmailsReplied, entity.TypeEmailsReplied},
	{PropEmailsBounced, entity.TypeEmailsBounced},
	{PropLinkedinVisits, entity.TypeLinkedinVisitDone},
	{PropLinkedinInvites, entity.TypeLinkedinInviteDone},
	{PropLinkedinAccepted, entity.TypeLinkedinInviteAccepted},
	{PropLinkedinMessages, entity.TypeLinkedinSent},
	{PropLinkedinReplies, entity.TypeLinkedinReplied},
}

const dateLayout = "2006-01-02"

// Properties renders the metrics as CRM property values.
func (m Metrics) Properties() map[string]string {
	props := map[string]string{
		PropTotalActivities:    strconv.Itoa(m.Total),
		PropCampaignCount:      strconv.Itoa(m.Campaigns),
		PropOpenRate:           formatRate(m.OpenRate),
		PropClickRate:          formatRate(m.ClickRate),
		PropReplyRate:          formatRate(m.ReplyRate),
		PropLinkedinAcceptRate: formatRate(m.LinkedInAcceptRate),
		PropEngagementScore:    strconv.Itoa(m.Score),
		PropLeadStatus:         string(m.Status),
		PropLastActivityType:   m.LastActivityType,
		PropDaysSinceFirst:     strconv.Itoa(m.DaysSinceFirst),
		PropDaysSinceLast:      strconv.Itoa(m.DaysSinceLast),
	}
	for _, cp := range countProperties {
		props[cp.prop] = strconv.Itoa(m.Counts[cp.typ])
	}
	if !m.FirstActivity.IsZero() {
		props[PropFirstActivityDate] = m.FirstActivity.UTC().Format(dateLayout)
	}
	if !m.LastActivity.IsZero() {
		props[PropLastActivityDate] = m.LastActivity.UTC().Format(dateLayout)
	}
	return props
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
