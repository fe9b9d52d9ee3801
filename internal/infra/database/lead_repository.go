package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/xavierca1/leadsync/internal/entity"
)

type LeadRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewLeadRepository(db *sql.DB, dialect Dialect) *LeadRepository {
	return &LeadRepository{DB: db, Dialect: dialect}
}

// Nullable attributes merged with COALESCE: an empty incoming value never
// clears what is stored.
var leadMergeColumns = []string{
	"first_name",
	"last_name",
	"crm_id",
	"linkedin_url",
	"company_name",
	"job_title",
	"job_level",
	"department",
}

const leadSelectColumns = `campaign_id, lead_id, email,
	COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(crm_id, ''),
	COALESCE(linkedin_url, ''), COALESCE(company_name, ''), COALESCE(job_title, ''),
	COALESCE(job_level, ''), COALESCE(department, ''), last_updated`

var leadUpsertQuery = buildLeadUpsert()

// buildLeadUpsert only moves last_updated when a merged value actually
// differs, so repeating an upsert leaves the row untouched.
func buildLeadUpsert() string {
	mergedEmail := "COALESCE(NULLIF(excluded.email, ''), leads.email)"
	set := []string{"email = " + mergedEmail}
	changed := []string{"leads.email IS DISTINCT FROM " + mergedEmail}

	for _, col := range leadMergeColumns {
		merged := fmt.Sprintf("COALESCE(excluded.%s, leads.%s)", col, col)
		set = append(set, fmt.Sprintf("%s = %s", col, merged))
		changed = append(changed, fmt.Sprintf("leads.%s IS DISTINCT FROM %s", col, merged))
	}
	set = append(set, "last_updated = CASE WHEN "+strings.Join(changed, " OR ")+
		" THEN excluded.last_updated ELSE leads.last_updated END")

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(leadMergeColumns)+4), ", ")
	return fmt.Sprintf(`
		INSERT INTO leads (campaign_id, lead_id, email, %s, last_updated)
		VALUES (%s)
		ON CONFLICT (campaign_id, lead_id)
		DO UPDATE SET
			%s`,
		strings.Join(leadMergeColumns, ", "),
		placeholders,
		strings.Join(set, ",\n\t\t\t"),
	)
}

// UpsertLeads merges leads keyed by (campaign, lead id) in one transaction.
func (r *LeadRepository) UpsertLeads(ctx context.Context, leads []entity.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, rebind(r.Dialect, leadUpsertQuery))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, l := range leads {
		if l.ID == "" || l.CampaignID == "" {
			return fmt.Errorf("database: lead without id or campaign (email %q)", l.Email)
		}
		_, err := stmt.ExecContext(ctx,
			l.CampaignID,
			l.ID,
			l.Email,
			nullString(l.FirstName),
			nullString(l.LastName),
			nullString(l.CRMID),
			nullString(l.LinkedInURL),
			nullString(l.CompanyName),
			nullString(l.JobTitle),
			nullString(l.JobLevel),
			nullString(l.Department),
			now,
		)
		if err != nil {
			return fmt.Errorf("database: upsert lead %s/%s: %w", l.CampaignID, l.ID, err)
		}
	}
	return tx.Commit()
}

// UpdateLeadDetails stores looked-up details without clearing known values.
func (r *LeadRepository) UpdateLeadDetails(ctx context.Context, campaignID, leadID string, d entity.LeadDetails) error {
	query := `
		UPDATE leads SET
			crm_id = COALESCE(?, crm_id),
			linkedin_url = COALESCE(?, linkedin_url),
			job_title = COALESCE(?, job_title),
			company_name = COALESCE(?, company_name),
			last_updated = ?
		WHERE campaign_id = ? AND lead_id = ?
	`
	_, err := r.DB.ExecContext(ctx, rebind(r.Dialect, query),
		nullString(d.CRMID),
		nullString(d.LinkedInURL),
		nullString(d.JobTitle),
		nullString(d.CompanyName),
		formatTime(time.Now()),
		campaignID,
		leadID,
	)
	return err
}

func (r *LeadRepository) UpdateLeadClassification(ctx context.Context, campaignID, leadID, jobLevel, department string) error {
	query := `
		UPDATE leads SET
			job_level = COALESCE(?, job_level),
			department = COALESCE(?, department),
			last_updated = ?
		WHERE campaign_id = ? AND lead_id = ?
	`
	_, err := r.DB.ExecContext(ctx, rebind(r.Dialect, query),
		nullString(jobLevel),
		nullString(department),
		formatTime(time.Now()),
		campaignID,
		leadID,
	)
	return err
}

func (r *LeadRepository) GetLead(ctx context.Context, campaignID, leadID string) (*entity.Lead, error) {
	leads, err := r.queryLeads(ctx, `WHERE campaign_id = ? AND lead_id = ?`, campaignID, leadID)
	if err != nil || len(leads) == 0 {
		return nil, err
	}
	return &leads[0], nil
}

func (r *LeadRepository) LeadsByCampaign(ctx context.Context, campaignID string) ([]entity.Lead, error) {
	return r.queryLeads(ctx, `WHERE campaign_id = ? ORDER BY email, lead_id`, campaignID)
}

// LeadsNeedingEnrichment returns the campaign's leads that have no CRM id yet.
func (r *LeadRepository) LeadsNeedingEnrichment(ctx context.Context, campaignID string) ([]entity.Lead, error) {
	return r.queryLeads(ctx, `WHERE campaign_id = ? AND (crm_id IS NULL OR crm_id = '') ORDER BY email, lead_id`, campaignID)
}

func (r *LeadRepository) LeadsWithCRMID(ctx context.Context, campaignID string) ([]entity.Lead, error) {
	return r.queryLeads(ctx, `WHERE campaign_id = ? AND crm_id IS NOT NULL AND crm_id <> '' ORDER BY email, lead_id`, campaignID)
}

func (r *LeadRepository) queryLeads(ctx context.Context, where string, args ...any) ([]entity.Lead, error) {
	query := `SELECT ` + leadSelectColumns + ` FROM leads ` + where

	rows, err := r.DB.QueryContext(ctx, rebind(r.Dialect, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []entity.Lead
	for rows.Next() {
		var (
			l       entity.Lead
			updated string
		)
		if err := rows.Scan(
			&l.CampaignID, &l.ID, &l.Email,
			&l.FirstName, &l.LastName, &l.CRMID,
			&l.LinkedInURL, &l.CompanyName, &l.JobTitle,
			&l.JobLevel, &l.Department, &updated,
		); err != nil {
			return nil, err
		}
		l.UpdatedAt = parseTime(updated)
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
