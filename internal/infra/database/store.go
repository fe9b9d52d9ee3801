package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/leadsync/internal/entity"
)

// Store is the local cache. It exclusively owns the persisted rows.
type Store struct {
	*CampaignRepository
	*LeadRepository
	*ActivityRepository

	db      *sql.DB
	dialect Dialect
}

func NewStore(db *sql.DB, dialect Dialect, policy IntegrityPolicy) *Store {
	return &Store{
		CampaignRepository: NewCampaignRepository(db, dialect),
		LeadRepository:     NewLeadRepository(db, dialect),
		ActivityRepository: NewActivityRepository(db, dialect, policy),
		db:                 db,
		dialect:            dialect,
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ClearCampaign deletes the campaign's activities, leads and campaign row.
// Nothing outside the campaign is touched.
func (s *Store) ClearCampaign(ctx context.Context, campaignID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"activities", "leads", "campaigns"} {
		query := rebind(s.dialect, fmt.Sprintf(`DELETE FROM %s WHERE campaign_id = ?`, table))
		if _, err := tx.ExecContext(ctx, query, campaignID); err != nil {
			return fmt.Errorf("database: clear %s for %s: %w", table, campaignID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) CampaignStats(ctx context.Context, campaignID string) (*entity.CampaignStats, error) {
	stats := &entity.CampaignStats{CampaignID: campaignID}
	query := `
		SELECT
			(SELECT COUNT(*) FROM leads WHERE campaign_id = ?),
			(SELECT COUNT(*) FROM activities WHERE campaign_id = ?),
			(SELECT COUNT(*) FROM leads WHERE campaign_id = ? AND crm_id IS NOT NULL AND crm_id <> '')
	`
	if err := s.db.QueryRowContext(ctx, rebind(s.dialect, query), campaignID, campaignID, campaignID).
		Scan(&stats.Leads, &stats.Activities, &stats.LeadsWithCRM); err != nil {
		return nil, err
	}

	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign != nil {
		last := campaign.LastSyncedAt
		stats.LastSyncedAt = &last
	}
	return stats, nil
}

// Vacuum compacts the database file. It must run outside a transaction.
func (s *Store) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}
