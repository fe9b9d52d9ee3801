package lemlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
)

const (
	DefaultBaseURL            = "https://api.lemlist.com/api"
	DefaultPageSize           = 100
	DefaultPageDelay          = 100 * time.Millisecond
	DefaultRateLimitThreshold = 5
)

// ErrCampaignScopeRequired is returned before any request when an activity
// listing is attempted without a campaign id.
var ErrCampaignScopeRequired = errors.New("lemlist: activity listing requires a campaign id")

type Config struct {
	APIKey             string
	BaseURL            string
	PageSize           int
	PageDelay          time.Duration
	RateLimitThreshold int
	Timeout            time.Duration
	Retry              httpclient.RetryPolicy
	HTTPClient         *http.Client
	Sleep              httpclient.Sleeper
	Logger             *zap.Logger
}

type Client struct {
	api       *httpclient.Client
	pageSize  int
	pageDelay time.Duration
	sleep     httpclient.Sleeper
	logger    *zap.Logger
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageDelay := cfg.PageDelay
	if pageDelay < 0 {
		pageDelay = 0
	}
	threshold := cfg.RateLimitThreshold
	if threshold == 0 {
		threshold = DefaultRateLimitThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = httpclient.SleepContext
	}

	apiKey := cfg.APIKey
	api := httpclient.New(httpclient.Options{
		Provider:   "lemlist",
		BaseURL:    baseURL,
		HTTPClient: cfg.HTTPClient,
		Timeout:    cfg.Timeout,
		UserAgent:  "leadsync/1.0",
		Authorize: func(r *http.Request) {
			r.SetBasicAuth("", apiKey)
		},
		Policy:         cfg.Retry,
		QuotaThreshold: threshold,
		Sleep:          sleep,
		Logger:         logger,
	})

	return &Client{
		api:       api,
		pageSize:  pageSize,
		pageDelay: pageDelay,
		sleep:     sleep,
		logger:    logger,
	}
}

// VerifyToken reports whether the API key is accepted. Only an Unauthorized
// answer yields false without an error.
func (c *Client) VerifyToken(ctx context.Context) (bool, error) {
	_, err := c.api.Execute(ctx, httpclient.Request{
		Path:  "/campaigns",
		Query: url.Values{"limit": {"1"}},
	})
	if errors.Is(err, httpclient.ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListCampaigns returns every campaign, optionally filtered by status.
func (c *Client) ListCampaigns(ctx context.Context, status string) ([]entity.Campaign, error) {
	dtos, err := httpclient.FetchAll(ctx, c.paginator(), func(ctx context.Context, offset, limit int) ([]CampaignDTO, error) {
		query := pageQuery(offset, limit)
		if status != "" {
			query.Set("status", status)
		}
		raw, err := c.list(ctx, "/campaigns", query)
		if err != nil {
			return nil, err
		}
		return decodeEach[CampaignDTO](raw)
	})
	if err != nil {
		return nil, err
	}

	campaigns := make([]entity.Campaign, 0, len(dtos))
	for _, dto := range dtos {
		if dto.ID == "" {
			continue
		}
		campaigns = append(campaigns, toCampaign(dto))
	}
	c.logger.Info("📋 campaigns listed", zap.Int("count", len(campaigns)), zap.String("status", status))
	return campaigns, nil
}

// ListActivities fetches the full activity stream of one campaign through
// the campaign-scoped endpoint and maps it into activities and leads.
func (c *Client) ListActivities(ctx context.Context, q entity.ActivityQuery) (*entity.ActivityFeed, error) {
	campaignID := strings.TrimSpace(q.CampaignID)
	if campaignID == "" {
		return nil, ErrCampaignScopeRequired
	}

	dtos, err := httpclient.FetchAll(ctx, c.paginator(), func(ctx context.Context, offset, limit int) ([]ActivityDTO, error) {
		query := pageQuery(offset, limit)
		query.Set("campaignId", campaignID)
		raw, err := c.list(ctx, "/activities", query)
		if err != nil {
			return nil, err
		}
		out, err := decodeEach[ActivityDTO](raw)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i].Raw = raw[i]
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	feed := BuildFeed(dtos, campaignID, q.Since)
	c.logger.Info("📥 activities fetched",
		zap.String("campaign_id", campaignID),
		zap.Int("raw", len(dtos)),
		zap.Int("kept", len(feed.Activities)),
		zap.Int("leads", len(feed.Leads)),
	)
	return feed, nil
}

// GetLeadDetails looks up one lead by email. An unknown email returns
// (nil, nil).
func (c *Client) GetLeadDetails(ctx context.Context, email string) (*entity.LeadDetails, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	if err := c.api.WaitForQuota(ctx); err != nil {
		return nil, err
	}

	raw, err := c.list(ctx, "/leads/"+url.PathEscape(email), nil)
	if errors.Is(err, httpclient.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	dtos, err := decodeEach[LeadDetailsDTO](raw[:1])
	if err != nil {
		return nil, err
	}
	details := toLeadDetails(dtos[0])
	if details.Email == "" {
		details.Email = email
	}
	return details, nil
}

func (c *Client) paginator() httpclient.Paginator {
	return httpclient.Paginator{
		PageSize:   c.pageSize,
		Delay:      c.pageDelay,
		Sleep:      c.sleep,
		BeforePage: c.api.WaitForQuota,
	}
}

// list fetches an endpoint that answers with either an array or a single
// object and returns the elements as raw messages.
func (c *Client) list(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	resp, err := c.api.Execute(ctx, httpclient.Request{Path: path, Query: query})
	if err != nil {
		return nil, err
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return nil, nil
	}
	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, malformed(resp.StatusCode, err)
		}
		return items, nil
	case '{':
		return []json.RawMessage{json.RawMessage(body)}, nil
	default:
		return nil, malformed(resp.StatusCode, errors.New("unexpected response shape"))
	}
}

func decodeEach[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, len(raw))
	for i, item := range raw {
		if err := json.Unmarshal(item, &out[i]); err != nil {
			return nil, malformed(http.StatusOK, err)
		}
	}
	return out, nil
}

func malformed(status int, err error) error {
	return &httpclient.APIError{
		Provider:   "lemlist",
		Kind:       httpclient.KindMalformed,
		StatusCode: status,
		Message:    "decode response body",
		Err:        err,
	}
}

func pageQuery(offset, limit int) url.Values {
	return url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
}
