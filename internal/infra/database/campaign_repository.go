package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xavierca1/leadsync/internal/entity"
)

type CampaignRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewCampaignRepository(db *sql.DB, dialect Dialect) *CampaignRepository {
	return &CampaignRepository{DB: db, Dialect: dialect}
}

// UpsertCampaign inserts or replaces the campaign row. created_at survives
// replacement; a zero LastSyncedAt stamps the current time.
func (r *CampaignRepository) UpsertCampaign(ctx context.Context, c *entity.Campaign) error {
	now := time.Now().UTC()
	if c.LastSyncedAt.IsZero() {
		c.LastSyncedAt = now
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.Status == "" {
		c.Status = entity.CampaignUnknown
	}

	query := `
		INSERT INTO campaigns (campaign_id, name, status, last_synced_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (campaign_id)
		DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			last_synced_at = excluded.last_synced_at
	`
	_, err := r.DB.ExecContext(ctx, rebind(r.Dialect, query),
		c.ID,
		c.Name,
		string(c.Status),
		formatTime(c.LastSyncedAt),
		formatTime(c.CreatedAt),
	)
	return err
}

// GetCampaign returns (nil, nil) when the campaign was never synced.
func (r *CampaignRepository) GetCampaign(ctx context.Context, id string) (*entity.Campaign, error) {
	query := `SELECT campaign_id, name, status, last_synced_at, created_at FROM campaigns WHERE campaign_id = ?`

	c, err := scanCampaign(r.DB.QueryRowContext(ctx, rebind(r.Dialect, query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCachedCampaigns(ctx context.Context) ([]entity.Campaign, error) {
	query := `SELECT campaign_id, name, status, last_synced_at, created_at FROM campaigns ORDER BY name`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []entity.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*entity.Campaign, error) {
	var (
		c                   entity.Campaign
		status              string
		lastSynced, created string
	)
	if err := row.Scan(&c.ID, &c.Name, &status, &lastSynced, &created); err != nil {
		return nil, err
	}
	c.Status = entity.ParseCampaignStatus(status)
	c.LastSyncedAt = parseTime(lastSynced)
	c.CreatedAt = parseTime(created)
	return &c, nil
}
