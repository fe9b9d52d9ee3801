package lemlist

import (
	"fmt"
	"strings"
	"time"

	"github.com/xavierca1/leadsync/internal/entity"
)

var displayLabels = map[string]string{
	entity.TypeEmailsSent:             "Email sent",
	entity.TypeEmailsOpened:           "Email opened",
	entity.TypeEmailsClicked:          "Email clicked",
	entity.TypeEmailsReplied:          "Email replied",
	entity.TypeEmailsBounced:          "Email bounced",
	entity.TypeEmailsFailed:           "Email failed",
	entity.TypeEmailsUnsubscribed:     "Unsubscribed",
	entity.TypeLinkedinVisitDone:      "LinkedIn visit",
	entity.TypeLinkedinSent:           "LinkedIn message sent",
	entity.TypeLinkedinOpened:         "LinkedIn opened",
	entity.TypeLinkedinReplied:        "LinkedIn replied",
	entity.TypeLinkedinInviteDone:     "LinkedIn invite sent",
	entity.TypeLinkedinInviteAccepted: "LinkedIn invite accepted",
	entity.TypeOutOfOffice:            "Out of office",
	entity.TypeSkipped:                "Skipped",
	entity.TypeInterested:             "Interested",
	entity.TypeNotInterested:          "Not interested",
}

// DisplayType returns the human readable label for a raw type tag, or the
// tag itself when unknown.
func DisplayType(dto ActivityDTO) string {
	if dto.Type == entity.TypeConditionChosen {
		if dto.ConditionLabel != "" {
			return dto.ConditionLabel
		}
		return "Condition met"
	}
	if label, ok := displayLabels[dto.Type]; ok {
		return label
	}
	return dto.Type
}

// Details picks the most useful excerpt: condition outcome, then subject,
// url, message.
func Details(dto ActivityDTO) string {
	if dto.Type == entity.TypeConditionChosen {
		label := dto.ConditionLabel
		if label == "" {
			label = "Unknown"
		}
		if dto.ConditionValue == nil {
			return fmt.Sprintf("Condition: %s", label)
		}
		result := "No ✗"
		if *dto.ConditionValue {
			result = "Yes ✓"
		}
		return fmt.Sprintf("Condition: %s → Met: %s", label, result)
	}

	switch {
	case dto.Subject != nil:
		return dto.Subject.String()
	case dto.URL != nil:
		return dto.URL.String()
	case dto.Message != nil:
		return dto.Message.String()
	}
	return ""
}

func leadEmail(dto ActivityDTO) string {
	email := dto.LeadEmail
	if email == "" {
		email = dto.Email
	}
	return strings.TrimSpace(email)
}

// leadID falls back to the lowercased email so that every activity has an
// owning lead key.
func leadID(dto ActivityDTO) string {
	if id := strings.TrimSpace(dto.LeadID); id != "" {
		return id
	}
	return strings.ToLower(leadEmail(dto))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ToActivity converts one raw record scoped to campaignID. Records without a
// lead email are not persistable and return false.
func ToActivity(dto ActivityDTO, campaignID string) (entity.Activity, bool) {
	email := leadEmail(dto)
	if email == "" {
		return entity.Activity{}, false
	}

	createdAt, _ := parseTimestamp(dto.CreatedAt)

	id := strings.TrimSpace(dto.ID)
	if id == "" {
		id = fmt.Sprintf("%s_%s", email, strings.TrimSpace(dto.CreatedAt))
	}
	return entity.Activity{
		ID:           id,
		LeadID:       leadID(dto),
		LeadEmail:    email,
		CampaignID:   campaignID,
		Type:         dto.Type,
		TypeDisplay:  DisplayType(dto),
		CreatedAt:    createdAt,
		Details:      Details(dto),
		Raw:          dto.Raw,
		TemplateID:   dto.EmailTemplateID.String(),
		SequenceStep: dto.SequenceStep.String(),
	}, true
}

// ExtractLeads builds one lead per lead id, first occurrence wins, in stream
// order.
func ExtractLeads(dtos []ActivityDTO, campaignID string) []entity.Lead {
	seen := make(map[string]struct{}, len(dtos))
	leads := make([]entity.Lead, 0)
	for _, dto := range dtos {
		id := leadID(dto)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		leads = append(leads, entity.Lead{
			ID:          id,
			CampaignID:  campaignID,
			Email:       leadEmail(dto),
			FirstName:   firstNonEmpty(dto.LeadFirstName, dto.FirstName),
			LastName:    firstNonEmpty(dto.LeadLastName, dto.LastName),
			CRMID:       dto.HubspotLeadID.String(),
			LinkedInURL: firstNonEmpty(dto.LinkedinURL, dto.LinkedinURLSalesNav, dto.LinkedinPublicURL),
			CompanyName: firstNonEmpty(dto.LeadCompanyName, dto.CompanyName),
			JobTitle:    strings.TrimSpace(dto.JobTitle),
		})
	}
	return leads
}

// BuildFeed maps a raw stream for one campaign. Noise is dropped and repeat
// opens are collapsed over the whole stream before the since cutoff applies,
// so an incremental run never sees an open whose first occurrence is older.
// Leads are extracted only from records that survive.
func BuildFeed(dtos []ActivityDTO, campaignID string, since time.Time) *entity.ActivityFeed {
	all := make([]entity.Activity, 0, len(dtos))
	byID := make(map[string]ActivityDTO, len(dtos))
	for _, dto := range dtos {
		act, ok := ToActivity(dto, campaignID)
		if !ok {
			continue
		}
		all = append(all, act)
		if _, dup := byID[act.ID]; !dup {
			byID[act.ID] = dto
		}
	}

	feed := &entity.ActivityFeed{Activities: make([]entity.Activity, 0, len(all))}
	kept := make([]ActivityDTO, 0, len(all))
	for _, act := range entity.NormalizeActivities(all) {
		if !since.IsZero() && !act.CreatedAt.After(since) {
			continue
		}
		feed.Activities = append(feed.Activities, act)
		kept = append(kept, byID[act.ID])
	}
	feed.Leads = ExtractLeads(kept, campaignID)
	return feed
}

func toLeadDetails(dto LeadDetailsDTO) *entity.LeadDetails {
	return &entity.LeadDetails{
		Email:       strings.TrimSpace(dto.Email),
		CRMID:       dto.HubspotLeadID.String(),
		LinkedInURL: firstNonEmpty(dto.LinkedinURL, dto.LinkedinURLSalesNav, dto.LinkedinPublicURL),
		JobTitle:    strings.TrimSpace(dto.JobTitle),
		CompanyName: strings.TrimSpace(dto.CompanyName),
	}
}

func toCampaign(dto CampaignDTO) entity.Campaign {
	createdAt, _ := parseTimestamp(dto.CreatedAt)
	return entity.Campaign{
		ID:        dto.ID,
		Name:      dto.Name,
		Status:    entity.ParseCampaignStatus(dto.Status),
		CreatedAt: createdAt,
	}
}
