package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/xavierca1/leadsync/internal/entity"
)

// IntegrityPolicy decides what happens to an activity whose owning lead is
// not in the cache.
type IntegrityPolicy int

const (
	// RejectUnknownLeads skips the activity and reports it; the rest of the
	// batch is stored.
	RejectUnknownLeads IntegrityPolicy = iota
	// SynthesizeUnknownLeads creates a minimal lead row from the activity.
	SynthesizeUnknownLeads
	// FailOnUnknownLeads aborts the whole batch.
	FailOnUnknownLeads
)

// ParseIntegrityPolicy reads "reject", "synthesize" or "fail".
func ParseIntegrityPolicy(s string) (IntegrityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return RejectUnknownLeads, nil
	case "synthesize":
		return SynthesizeUnknownLeads, nil
	case "fail":
		return FailOnUnknownLeads, nil
	default:
		return RejectUnknownLeads, fmt.Errorf("database: unknown integrity policy %q", s)
	}
}

type ActivityRepository struct {
	DB      *sql.DB
	Dialect Dialect
	Policy  IntegrityPolicy
}

func NewActivityRepository(db *sql.DB, dialect Dialect, policy IntegrityPolicy) *ActivityRepository {
	return &ActivityRepository{DB: db, Dialect: dialect, Policy: policy}
}

// UpsertActivities inserts activities that are not stored yet. Existing ids
// are left untouched.
func (r *ActivityRepository) UpsertActivities(ctx context.Context, activities []entity.Activity) (*entity.ActivityUpsertResult, error) {
	result := &entity.ActivityUpsertResult{}
	if len(activities) == 0 {
		return result, nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	leadExists, err := tx.PrepareContext(ctx, rebind(r.Dialect,
		`SELECT COUNT(*) FROM leads WHERE campaign_id = ? AND lead_id = ?`))
	if err != nil {
		return nil, err
	}
	defer leadExists.Close()

	insert, err := tx.PrepareContext(ctx, rebind(r.Dialect, `
		INSERT INTO activities (activity_id, campaign_id, lead_id, lead_email, type, type_display, created_at, details, raw_json, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (activity_id) DO NOTHING
	`))
	if err != nil {
		return nil, err
	}
	defer insert.Close()

	known := make(map[string]bool)
	syncedAt := formatTime(time.Now())

	for _, a := range activities {
		if entity.IsNoiseType(a.Type) {
			result.Rejected = append(result.Rejected, entity.RejectedActivity{
				Activity: a,
				Err:      fmt.Errorf("%w: activity %s has excluded type %s", entity.ErrDataIntegrity, a.ID, a.Type),
			})
			continue
		}

		key := a.CampaignID + "\x00" + a.LeadID
		exists, seen := known[key]
		if !seen {
			var n int
			if err := leadExists.QueryRowContext(ctx, a.CampaignID, a.LeadID).Scan(&n); err != nil {
				return nil, err
			}
			exists = n > 0
		}

		if !exists {
			integrityErr := fmt.Errorf("%w: activity %s references unknown lead %s in campaign %s",
				entity.ErrDataIntegrity, a.ID, a.LeadID, a.CampaignID)
			switch r.Policy {
			case FailOnUnknownLeads:
				return nil, integrityErr
			case SynthesizeUnknownLeads:
				if err := r.synthesizeLead(ctx, tx, a); err != nil {
					return nil, err
				}
				exists = true
			default:
				result.Rejected = append(result.Rejected, entity.RejectedActivity{Activity: a, Err: integrityErr})
			}
		}
		known[key] = exists
		if !exists {
			continue
		}

		res, err := insert.ExecContext(ctx,
			a.ID,
			a.CampaignID,
			a.LeadID,
			a.LeadEmail,
			a.Type,
			nullString(a.TypeDisplay),
			formatTime(a.CreatedAt),
			nullString(a.Details),
			nullString(string(a.Raw)),
			syncedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("database: insert activity %s: %w", a.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			result.Inserted++
		} else {
			result.Ignored++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ActivityRepository) synthesizeLead(ctx context.Context, tx *sql.Tx, a entity.Activity) error {
	query := `
		INSERT INTO leads (campaign_id, lead_id, email, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (campaign_id, lead_id) DO NOTHING
	`
	_, err := tx.ExecContext(ctx, rebind(r.Dialect, query), a.CampaignID, a.LeadID, a.LeadEmail, formatTime(time.Now()))
	return err
}

// LatestActivityTimestamp returns the newest stored activity time for the
// campaign; ok is false when nothing is stored.
func (r *ActivityRepository) LatestActivityTimestamp(ctx context.Context, campaignID string) (time.Time, bool, error) {
	var latest sql.NullString
	err := r.DB.QueryRowContext(ctx,
		rebind(r.Dialect, `SELECT MAX(created_at) FROM activities WHERE campaign_id = ?`),
		campaignID,
	).Scan(&latest)
	if err != nil {
		return time.Time{}, false, err
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, false, nil
	}
	return parseTime(latest.String), true, nil
}

// JoinedActivities is the display read model. The LEFT JOIN keeps activities
// whose lead attributes are incomplete.
func (r *ActivityRepository) JoinedActivities(ctx context.Context, campaignID string) ([]entity.JoinedActivity, error) {
	query := `
		SELECT a.activity_id, a.campaign_id, a.lead_id, a.lead_email, a.type,
			COALESCE(a.type_display, ''), a.created_at, COALESCE(a.details, ''), COALESCE(a.raw_json, ''),
			COALESCE(l.first_name, ''), COALESCE(l.last_name, ''), COALESCE(l.crm_id, ''), COALESCE(l.linkedin_url, '')
		FROM activities a
		LEFT JOIN leads l ON l.campaign_id = a.campaign_id AND l.lead_id = a.lead_id
		WHERE a.campaign_id = ?
		ORDER BY a.created_at ASC, a.activity_id ASC
	`
	rows, err := r.DB.QueryContext(ctx, rebind(r.Dialect, query), campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.JoinedActivity
	for rows.Next() {
		var (
			j            entity.JoinedActivity
			created, raw string
		)
		if err := rows.Scan(
			&j.ID, &j.CampaignID, &j.LeadID, &j.LeadEmail, &j.Type,
			&j.TypeDisplay, &created, &j.Details, &raw,
			&j.LeadFirstName, &j.LeadLastName, &j.LeadCRMID, &j.LeadLinkedInURL,
		); err != nil {
			return nil, err
		}
		j.CreatedAt = parseTime(created)
		if raw != "" {
			j.Raw = []byte(raw)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ActivitiesByLeadEmail returns the lead's activities across every campaign,
// oldest first.
func (r *ActivityRepository) ActivitiesByLeadEmail(ctx context.Context, email string) ([]entity.Activity, error) {
	query := `
		SELECT activity_id, campaign_id, lead_id, lead_email, type, COALESCE(type_display, ''), created_at, COALESCE(details, '')
		FROM activities
		WHERE lead_email = ?
		ORDER BY created_at ASC, activity_id ASC
	`
	rows, err := r.DB.QueryContext(ctx, rebind(r.Dialect, query), email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Activity
	for rows.Next() {
		var (
			a       entity.Activity
			created string
		)
		if err := rows.Scan(&a.ID, &a.CampaignID, &a.LeadID, &a.LeadEmail, &a.Type, &a.TypeDisplay, &created, &a.Details); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}
