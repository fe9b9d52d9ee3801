package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
)

const archiveBatchSize = 100

var (
	noteHeadline = regexp.MustCompile(`(?i)^(.+?)\s+from\s+campaign\s+(.+?)\s*-\s*\(step\s+(\d+)\)`)
	noteText     = regexp.MustCompile(`(?is)Text:\s*(.+)`)
	htmlTag      = regexp.MustCompile(`<[^>]+>`)
	spaces       = regexp.MustCompile(`\s+`)
)

// Note headlines written by the Lemlist CRM integration, lowercased.
var noteActivityTypes = map[string]string{
	"linkedin invite sent":     entity.TypeLinkedinInviteDone,
	"linkedin profile visited": entity.TypeLinkedinVisitDone,
	"linkedin message sent":    entity.TypeLinkedinSent,
	"linkedin message opened":  entity.TypeLinkedinOpened,
	"linkedin invite accepted": entity.TypeLinkedinInviteAccepted,
	"linkedin replied":         entity.TypeLinkedinReplied,
	"email sent":               entity.TypeEmailsSent,
	"email opened":             entity.TypeEmailsOpened,
	"email clicked":            entity.TypeEmailsClicked,
	"email replied":            entity.TypeEmailsReplied,
	"email bounced":            entity.TypeEmailsBounced,
	"email failed":             entity.TypeEmailsFailed,
	"call done":                "aircallDone",
	"call answered":            "aircallAnswered",
	"manual task done":         "manualDone",
	"interested":               entity.TypeInterested,
	"not interested":           entity.TypeNotInterested,
}

type ParsedNote struct {
	ActivityText string
	ActivityType string
	Campaign     string
	Step         int
	Message      string
}

// ParseNote recognises notes generated by the Lemlist integration. ok is
// false for any other note.
func ParseNote(body string) (ParsedNote, bool) {
	clean := stripHTML(body)
	if clean == "" {
		return ParsedNote{}, false
	}
	m := noteHeadline.FindStringSubmatch(clean)
	if m == nil {
		return ParsedNote{}, false
	}
	step, err := strconv.Atoi(m[3])
	if err != nil {
		return ParsedNote{}, false
	}

	p := ParsedNote{
		ActivityText: strings.TrimSpace(m[1]),
		Campaign:     strings.TrimSpace(m[2]),
		Step:         step,
	}
	p.ActivityType = p.ActivityText
	if t, ok := noteActivityTypes[strings.ToLower(p.ActivityText)]; ok {
		p.ActivityType = t
	}
	if tm := noteText.FindStringSubmatch(clean); tm != nil {
		p.Message = strings.TrimSpace(tm[1])
	}
	return p, true
}

func stripHTML(s string) string {
	s = htmlTag.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

type noteGroupKey struct {
	contactID string
	typ       string
	campaign  string
	step      int
}

// DuplicateGroup holds notes describing the same activity on one contact,
// newest first. Keep is the note that survives.
type DuplicateGroup struct {
	ContactID    string
	ActivityType string
	Campaign     string
	Step         int
	Notes        []entity.CRMNote
}

func (g DuplicateGroup) Keep() entity.CRMNote {
	return g.Notes[0]
}

func (g DuplicateGroup) Redundant() []entity.CRMNote {
	return g.Notes[1:]
}

// FindDuplicateNotes groups Lemlist notes by (contact, activity type,
// campaign, step) and returns the groups holding more than one note.
func FindDuplicateNotes(notes []entity.CRMNote) []DuplicateGroup {
	groups := make(map[noteGroupKey]*DuplicateGroup)
	var order []noteGroupKey

	for _, n := range notes {
		p, ok := ParseNote(n.Body)
		if !ok {
			continue
		}
		key := noteGroupKey{contactID: n.ContactID, typ: p.ActivityType, campaign: p.Campaign, step: p.Step}
		g, exists := groups[key]
		if !exists {
			g = &DuplicateGroup{ContactID: n.ContactID, ActivityType: p.ActivityType, Campaign: p.Campaign, Step: p.Step}
			groups[key] = g
			order = append(order, key)
		}
		g.Notes = append(g.Notes, n)
	}

	var out []DuplicateGroup
	for _, key := range order {
		g := groups[key]
		if len(g.Notes) < 2 {
			continue
		}
		sort.SliceStable(g.Notes, func(i, j int) bool {
			return g.Notes[i].CreatedAt.After(g.Notes[j].CreatedAt)
		})
		out = append(out, *g)
	}
	return out
}

// NotesCleanupUseCase removes duplicate Lemlist notes from the CRM contacts
// of a campaign, keeping the newest note of each group.
type NotesCleanupUseCase struct {
	Leads  LeadRepositoryInterface
	Notes  NoteService
	Logger *zap.Logger
}

func NewNotesCleanupUseCase(leads LeadRepositoryInterface, notes NoteService, logger *zap.Logger) *NotesCleanupUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotesCleanupUseCase{Leads: leads, Notes: notes, Logger: logger}
}

func (uc *NotesCleanupUseCase) Execute(ctx context.Context, input NotesCleanupInput) (*NotesCleanupOutput, error) {
	if input.CampaignID == "" {
		return nil, ErrCampaignRequired
	}
	log := uc.Logger.With(zap.String("campaign_id", input.CampaignID))

	leads, err := uc.Leads.LeadsWithCRMID(ctx, input.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("leads with crm id for %s: %w", input.CampaignID, err)
	}

	out := &NotesCleanupOutput{ByType: make(map[string]int)}
	seen := make(map[string]bool)
	var notes []entity.CRMNote

	for i, lead := range leads {
		if seen[lead.CRMID] {
			continue
		}
		seen[lead.CRMID] = true
		out.Contacts++

		contactNotes, err := uc.Notes.NotesForContact(ctx, lead.CRMID)
		switch {
		case errors.Is(err, httpclient.ErrUnauthorized):
			return out, err
		case err != nil:
			log.Warn("⚠️ could not list notes", zap.String("contact_id", lead.CRMID), zap.Error(err))
		default:
			notes = append(notes, contactNotes...)
		}
		if input.Progress != nil {
			input.Progress(i+1, len(leads))
		}
	}

	out.Notes = len(notes)
	for _, n := range notes {
		if _, ok := ParseNote(n.Body); ok {
			out.LemlistNotes++
		}
	}

	groups := FindDuplicateNotes(notes)
	out.DuplicateGroups = len(groups)

	var redundant []string
	for _, g := range groups {
		for _, n := range g.Redundant() {
			redundant = append(redundant, n.ID)
			out.ByType[g.ActivityType]++
		}
	}
	out.ToDelete = len(redundant)

	if input.DryRun || len(redundant) == 0 {
		log.Info("🧹 notes analysed", zap.Int("groups", out.DuplicateGroups), zap.Int("to_delete", out.ToDelete))
		return out, nil
	}

	for start := 0; start < len(redundant); start += archiveBatchSize {
		chunk := redundant[start:min(start+archiveBatchSize, len(redundant))]
		n, err := uc.Notes.BatchArchiveNotes(ctx, chunk)
		if errors.Is(err, httpclient.ErrUnauthorized) {
			out.Failed += len(redundant) - start
			return out, err
		}
		if err != nil {
			log.Error("❌ note archive batch failed", zap.Int("batch", start/archiveBatchSize+1), zap.Error(err))
			out.Failed += len(chunk)
			continue
		}
		out.Deleted += n
		out.Failed += len(chunk) - n
	}

	log.Info("🧹 duplicate notes removed", zap.Int("deleted", out.Deleted), zap.Int("failed", out.Failed))
	return out, nil
}
