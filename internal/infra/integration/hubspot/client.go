package hubspot

import (
	"context"
	"errors"
	"fmt"
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
	DefaultBaseURL = "https://api.hubapi.com"
	// MaxBatchSize is the per-call ceiling of the batch endpoints.
	MaxBatchSize = 100
)

var ErrBatchTooLarge = fmt.Errorf("hubspot: more than %d inputs in one batch", MaxBatchSize)

var noteProperties = []string{"hs_note_body", "hs_timestamp", "hs_createdate"}

type Config struct {
	Token      string
	BaseURL    string
	Timeout    time.Duration
	Retry      httpclient.RetryPolicy
	HTTPClient *http.Client
	Sleep      httpclient.Sleeper
	Logger     *zap.Logger
}

type Client struct {
	api    *httpclient.Client
	logger *zap.Logger
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	token := cfg.Token
	return &Client{
		api: httpclient.New(httpclient.Options{
			Provider:   "hubspot",
			BaseURL:    baseURL,
			HTTPClient: cfg.HTTPClient,
			Timeout:    cfg.Timeout,
			Authorize: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+token)
			},
			Policy: cfg.Retry,
			Sleep:  cfg.Sleep,
			Logger: logger,
		}),
		logger: logger,
	}
}

func (c *Client) VerifyToken(ctx context.Context) (bool, error) {
	_, err := c.api.Execute(ctx, httpclient.Request{
		Path:  "/crm/v3/objects/contacts",
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

// BatchUpdateContacts writes up to MaxBatchSize contact updates in one call.
// A partial (multi-status) answer is reported through the result's Errors.
func (c *Client) BatchUpdateContacts(ctx context.Context, updates []entity.ContactUpdate) (*entity.BatchUpdateResult, error) {
	if len(updates) == 0 {
		return &entity.BatchUpdateResult{}, nil
	}
	if len(updates) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	req := batchUpdateRequest{Inputs: make([]batchUpdateInput, 0, len(updates))}
	for _, u := range updates {
		req.Inputs = append(req.Inputs, batchUpdateInput{ID: u.ID, Properties: u.Properties})
	}

	var resp batchUpdateResponse
	if err := c.api.ExecuteJSON(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/crm/v3/objects/contacts/batch/update",
		Body:   req,
	}, &resp); err != nil {
		return nil, err
	}

	result := &entity.BatchUpdateResult{Updated: len(resp.Results)}
	for _, e := range resp.Errors {
		result.Errors = append(result.Errors, strings.TrimSpace(e.Category+" "+e.Message))
	}
	// Some accounts answer with an empty body on success.
	if resp.Results == nil && len(resp.Errors) == 0 {
		result.Updated = len(updates)
	}
	if len(result.Errors) > 0 {
		c.logger.Warn("⚠️ batch update partially applied",
			zap.Int("updated", result.Updated), zap.Int("errors", len(result.Errors)))
	}
	return result, nil
}

func (c *Client) UpdateContact(ctx context.Context, id string, properties map[string]string) error {
	_, err := c.api.Execute(ctx, httpclient.Request{
		Method: http.MethodPatch,
		Path:   "/crm/v3/objects/contacts/" + url.PathEscape(id),
		Body:   updateRequest{Properties: properties},
	})
	return err
}

// GetContact returns (nil, nil) for an unknown id.
func (c *Client) GetContact(ctx context.Context, id string, properties []string) (*entity.CRMContact, error) {
	query := url.Values{}
	if len(properties) > 0 {
		query.Set("properties", strings.Join(properties, ","))
	}
	var dto objectDTO
	err := c.api.ExecuteJSON(ctx, httpclient.Request{
		Path:  "/crm/v3/objects/contacts/" + url.PathEscape(id),
		Query: query,
	}, &dto)
	if errors.Is(err, httpclient.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	contact := toContact(dto)
	return &contact, nil
}

// BatchReadContacts reads the given properties for ids, chunked by
// MaxBatchSize. Unknown ids are simply absent from the result.
func (c *Client) BatchReadContacts(ctx context.Context, ids []string, properties []string) (map[string]entity.CRMContact, error) {
	out := make(map[string]entity.CRMContact, len(ids))
	for start := 0; start < len(ids); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(ids))

		req := batchReadRequest{Properties: properties}
		for _, id := range ids[start:end] {
			req.Inputs = append(req.Inputs, objectInput{ID: id})
		}

		var page objectPage
		if err := c.api.ExecuteJSON(ctx, httpclient.Request{
			Method: http.MethodPost,
			Path:   "/crm/v3/objects/contacts/batch/read",
			Body:   req,
		}, &page); err != nil {
			return nil, err
		}
		for _, dto := range page.Results {
			out[dto.ID] = toContact(dto)
		}
	}
	return out, nil
}

// NotesForContact returns every note associated with the contact. An
// unknown contact has no notes.
func (c *Client) NotesForContact(ctx context.Context, contactID string) ([]entity.CRMNote, error) {
	var notes []entity.CRMNote
	after := ""
	for {
		query := url.Values{"limit": {strconv.Itoa(MaxBatchSize)}}
		if after != "" {
			query.Set("after", after)
		}

		var page associationPage
		err := c.api.ExecuteJSON(ctx, httpclient.Request{
			Path:  "/crm/v4/objects/contacts/" + url.PathEscape(contactID) + "/associations/notes",
			Query: query,
		}, &page)
		if errors.Is(err, httpclient.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if len(page.Results) == 0 {
			return notes, nil
		}

		for _, r := range page.Results {
			note, err := c.GetNote(ctx, strconv.FormatInt(r.ToObjectID, 10))
			if err != nil {
				return nil, err
			}
			if note == nil {
				continue
			}
			note.ContactID = contactID
			notes = append(notes, *note)
		}

		after = page.Paging.after()
		if after == "" {
			return notes, nil
		}
	}
}

// GetNote returns (nil, nil) for an unknown id.
func (c *Client) GetNote(ctx context.Context, id string) (*entity.CRMNote, error) {
	var dto objectDTO
	err := c.api.ExecuteJSON(ctx, httpclient.Request{
		Path:  "/crm/v3/objects/notes/" + url.PathEscape(id),
		Query: url.Values{"properties": {strings.Join(noteProperties, ",")}},
	}, &dto)
	if errors.Is(err, httpclient.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	props := toContact(dto).Properties
	return &entity.CRMNote{
		ID:        dto.ID,
		Body:      props["hs_note_body"],
		Timestamp: parseTime(props["hs_timestamp"]),
		CreatedAt: parseTime(props["hs_createdate"]),
	}, nil
}

// BatchArchiveNotes archives up to MaxBatchSize notes and returns how many
// were archived.
func (c *Client) BatchArchiveNotes(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if len(ids) > MaxBatchSize {
		return 0, ErrBatchTooLarge
	}

	req := archiveRequest{Inputs: make([]objectInput, 0, len(ids))}
	for _, id := range ids {
		req.Inputs = append(req.Inputs, objectInput{ID: id})
	}
	if _, err := c.api.Execute(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/crm/v3/objects/notes/batch/archive",
		Body:   req,
	}); err != nil {
		return 0, err
	}
	c.logger.Info("🗑️ notes archived", zap.Int("count", len(ids)))
	return len(ids), nil
}

func toContact(dto objectDTO) entity.CRMContact {
	props := make(map[string]string, len(dto.Properties))
	for k, v := range dto.Properties {
		if v != nil {
			props[k] = *v
		}
	}
	return entity.CRMContact{ID: dto.ID, Properties: props}
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC()
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
