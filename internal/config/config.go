package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LemlistAPIKey             string
	LemlistBaseURL            string
	LemlistPageSize           int
	LemlistPageDelay          time.Duration
	LemlistRateLimitThreshold int
	DetailDelay               time.Duration
	DetailGroupSize           int
	DetailGroupPause          time.Duration

	HubSpotToken      string
	HubSpotBaseURL    string
	HubSpotBatchSize  int
	HubSpotBatchDelay time.Duration

	HTTPTimeout     time.Duration
	HTTPMaxAttempts int
	HTTPBaseDelay   time.Duration
	HTTPMaxDelay    time.Duration

	CacheDSN          string
	IntegrityPolicy   string
	DefaultCampaignID string

	ScoreHigh        int
	ScoreMedium      int
	ScoreLow         int
	NewMaxActivities int

	RabbitMQURL string

	MailHost        string
	MailPort        int
	MailUser        string
	MailPass        string
	MailFrom        string
	ReportRecipient []string

	Port            string
	APIRateLimit    int
	SyncInterval    time.Duration
	SyncCampaignIDs []string
	LogLevel        string
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return Parse()
}

func Parse() Config {
	mailUser := getString("MAIL_USER", "")
	defaultCampaign := getString("DEFAULT_CAMPAIGN_ID", "")

	campaigns := parseList(getString("SYNC_CAMPAIGN_IDS", ""))
	if len(campaigns) == 0 && defaultCampaign != "" {
		campaigns = []string{defaultCampaign}
	}

	return Config{
		LemlistAPIKey:             getString("LEMLIST_API_KEY", ""),
		LemlistBaseURL:            getString("LEMLIST_BASE_URL", "https://api.lemlist.com/api"),
		LemlistPageSize:           getInt("LEMLIST_PAGE_SIZE", 100),
		LemlistPageDelay:          getDuration("LEMLIST_PAGE_DELAY", 100*time.Millisecond),
		LemlistRateLimitThreshold: getInt("LEMLIST_RATE_LIMIT_THRESHOLD", 5),
		DetailDelay:               getDuration("LEMLIST_DETAIL_DELAY", 150*time.Millisecond),
		DetailGroupSize:           getInt("LEMLIST_DETAIL_GROUP_SIZE", 50),
		DetailGroupPause:          getDuration("LEMLIST_DETAIL_GROUP_PAUSE", 2*time.Second),

		HubSpotToken:      getString("HUBSPOT_API_TOKEN", ""),
		HubSpotBaseURL:    getString("HUBSPOT_BASE_URL", "https://api.hubapi.com"),
		HubSpotBatchSize:  getInt("HUBSPOT_BATCH_SIZE", 50),
		HubSpotBatchDelay: getDuration("HUBSPOT_BATCH_DELAY", 250*time.Millisecond),

		HTTPTimeout:     getDuration("HTTP_TIMEOUT", 30*time.Second),
		HTTPMaxAttempts: getInt("HTTP_MAX_ATTEMPTS", 3),
		HTTPBaseDelay:   getDuration("HTTP_BASE_DELAY", time.Second),
		HTTPMaxDelay:    getDuration("HTTP_MAX_DELAY", 30*time.Second),

		CacheDSN:          getString("CACHE_DSN", "file:leadsync.db"),
		IntegrityPolicy:   strings.ToLower(getString("INTEGRITY_POLICY", "reject")),
		DefaultCampaignID: defaultCampaign,

		ScoreHigh:        getInt("SCORE_HIGH", 60),
		ScoreMedium:      getInt("SCORE_MEDIUM", 30),
		ScoreLow:         getInt("SCORE_LOW", 10),
		NewMaxActivities: getInt("NEW_MAX_ACTIVITIES", 2),

		RabbitMQURL: getString("RABBITMQ_URL", ""),

		MailHost:        getString("MAIL_HOST", ""),
		MailPort:        getInt("MAIL_PORT", 587),
		MailUser:        mailUser,
		MailPass:        getString("MAIL_PASS", ""),
		MailFrom:        getString("MAIL_FROM", mailUser),
		ReportRecipient: parseList(getString("REPORT_RECIPIENT", "")),

		Port:            getString("PORT", "8080"),
		APIRateLimit:    getInt("API_RATE_LIMIT_PER_MIN", 10),
		SyncInterval:    getDuration("SYNC_INTERVAL", 0),
		SyncCampaignIDs: campaigns,
		LogLevel:        getString("LOG_LEVEL", "info"),
	}
}

func (c Config) LemlistEnabled() bool { return c.LemlistAPIKey != "" }
func (c Config) HubSpotEnabled() bool { return c.HubSpotToken != "" }
func (c Config) QueueEnabled() bool   { return c.RabbitMQURL != "" }
func (c Config) MailEnabled() bool    { return c.MailHost != "" && len(c.ReportRecipient) > 0 }

func parseList(csv string) []string {
	var out []string
	for _, v := range strings.Split(csv, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// getDuration accepts Go durations ("250ms", "2s") or a bare number of
// milliseconds.
func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	return def
}
