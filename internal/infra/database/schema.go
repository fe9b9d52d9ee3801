package database

var schema = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
		campaign_id    TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		status         TEXT NOT NULL,
		last_synced_at TEXT NOT NULL,
		created_at     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		campaign_id  TEXT NOT NULL REFERENCES campaigns(campaign_id),
		lead_id      TEXT NOT NULL,
		email        TEXT NOT NULL,
		first_name   TEXT,
		last_name    TEXT,
		crm_id       TEXT,
		linkedin_url TEXT,
		company_name TEXT,
		job_title    TEXT,
		job_level    TEXT,
		department   TEXT,
		last_updated TEXT NOT NULL,
		PRIMARY KEY (campaign_id, lead_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email)`,
	`CREATE TABLE IF NOT EXISTS activities (
		activity_id  TEXT PRIMARY KEY,
		campaign_id  TEXT NOT NULL,
		lead_id      TEXT NOT NULL,
		lead_email   TEXT NOT NULL,
		type         TEXT NOT NULL,
		type_display TEXT,
		created_at   TEXT NOT NULL,
		details      TEXT,
		raw_json     TEXT,
		synced_at    TEXT NOT NULL,
		FOREIGN KEY (campaign_id, lead_id) REFERENCES leads(campaign_id, lead_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_campaign_created ON activities(campaign_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_lead_email ON activities(lead_email)`,
}
