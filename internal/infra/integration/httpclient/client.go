package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/infra/metrics"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Options struct {
	Provider   string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Authorize  func(*http.Request)
	UserAgent  string
	Policy     RetryPolicy

	// QuotaThreshold enables the pre-request quota check when > 0.
	QuotaThreshold int
	LowQuotaDelay  time.Duration
	MaxQuotaDelay  time.Duration

	Sleep  Sleeper
	Now    func() time.Time
	Logger *zap.Logger
}

type quotaState struct {
	known     bool
	remaining int
	resetAt   time.Time
}

// Client executes requests against one provider with the retry policy
// applied. It keeps a reusable *http.Client and the last quota headers seen;
// it holds no other state between calls.
type Client struct {
	provider  string
	baseURL   string
	http      *http.Client
	authorize func(*http.Request)
	userAgent string
	policy    RetryPolicy
	sleep     Sleeper
	now       func() time.Time
	logger    *zap.Logger

	quotaThreshold int
	lowQuotaDelay  time.Duration
	maxQuotaDelay  time.Duration

	mu    sync.Mutex
	quota quotaState
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lowQuotaDelay := opts.LowQuotaDelay
	if lowQuotaDelay <= 0 {
		lowQuotaDelay = time.Second
	}
	maxQuotaDelay := opts.MaxQuotaDelay
	if maxQuotaDelay <= 0 {
		maxQuotaDelay = 5 * time.Second
	}
	provider := strings.TrimSpace(opts.Provider)
	if provider == "" {
		provider = "http"
	}

	return &Client{
		provider:       provider,
		baseURL:        strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		http:           httpClient,
		authorize:      opts.Authorize,
		userAgent:      opts.UserAgent,
		policy:         opts.Policy.withDefaults(),
		sleep:          sleep,
		now:            now,
		logger:         logger.With(zap.String("provider", provider)),
		quotaThreshold: opts.QuotaThreshold,
		lowQuotaDelay:  lowQuotaDelay,
		maxQuotaDelay:  maxQuotaDelay,
	}
}

// Execute runs req through the retry state machine and returns the raw
// successful response, or an *APIError.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, &APIError{Provider: c.provider, Kind: KindMalformed, Message: "encode request body", Err: err}
		}
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	for attempt := 1; ; attempt++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, &APIError{Provider: c.provider, Kind: KindMalformed, Message: "build request", Err: err}
		}
		c.setHeaders(httpReq, payload != nil)

		outcome, result := c.attempt(httpReq)
		if outcome.NetErr != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.RecordAPIRequest(c.provider, method, outcomeLabel(outcome))

		tr := c.policy.Next(attempt, outcome)
		switch tr.State {
		case StateSucceeded:
			return result, nil
		case StateBackoff:
			c.logger.Warn("retrying request",
				zap.String("method", method),
				zap.String("path", req.Path),
				zap.Int("attempt", attempt),
				zap.Int("status", outcome.StatusCode),
				zap.Duration("delay", tr.Delay),
				zap.Error(outcome.NetErr),
			)
			metrics.RecordAPIRetry(c.provider, retryReason(outcome))
			if err := c.sleep(ctx, tr.Delay); err != nil {
				return nil, err
			}
		default:
			apiErr := &APIError{
				Provider:   c.provider,
				Kind:       tr.Kind,
				StatusCode: outcome.StatusCode,
				Attempts:   attempt,
				Err:        outcome.NetErr,
			}
			if outcome.HasRetryAfter {
				apiErr.RetryAfter = outcome.RetryAfter
			}
			if result != nil {
				apiErr.Message = extractErrorMessage(result.Body)
			}
			metrics.RecordAPIFailure(c.provider, tr.Kind.String())
			return nil, apiErr
		}
	}
}

// ExecuteJSON decodes a successful body into out. An empty body leaves out
// untouched.
func (c *Client) ExecuteJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &APIError{
			Provider:   c.provider,
			Kind:       KindMalformed,
			StatusCode: resp.StatusCode,
			Message:    "decode response body",
			Err:        err,
		}
	}
	return nil
}

// WaitForQuota sleeps when the last response reported fewer remaining
// requests than the configured threshold.
func (c *Client) WaitForQuota(ctx context.Context) error {
	if c.quotaThreshold <= 0 {
		return nil
	}
	c.mu.Lock()
	q := c.quota
	c.mu.Unlock()
	if !q.known || q.remaining >= c.quotaThreshold {
		return nil
	}

	delay := c.lowQuotaDelay
	if !q.resetAt.IsZero() {
		delay = q.resetAt.Sub(c.now())
		if delay <= 0 {
			return nil
		}
	}
	if delay > c.maxQuotaDelay {
		delay = c.maxQuotaDelay
	}

	c.logger.Info("quota low, pausing",
		zap.Int("remaining", q.remaining),
		zap.Duration("delay", delay),
	)
	metrics.RecordQuotaPause(c.provider)
	if err := c.sleep(ctx, delay); err != nil {
		return err
	}

	c.mu.Lock()
	c.quota = quotaState{}
	c.mu.Unlock()
	return nil
}

func (c *Client) attempt(req *http.Request) (Outcome, *Response) {
	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{NetErr: err}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{NetErr: err}, nil
	}
	c.recordQuota(resp.Header)

	outcome := Outcome{StatusCode: resp.StatusCode}
	outcome.RetryAfter, outcome.HasRetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
	return outcome, &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.authorize != nil {
		c.authorize(req)
	}
}

func (c *Client) recordQuota(h http.Header) {
	raw := strings.TrimSpace(h.Get("X-RateLimit-Remaining"))
	if raw == "" {
		return
	}
	remaining, err := strconv.Atoi(raw)
	if err != nil {
		return
	}
	q := quotaState{known: true, remaining: remaining}
	if reset := strings.TrimSpace(h.Get("X-RateLimit-Reset")); reset != "" {
		if v, err := strconv.ParseFloat(reset, 64); err == nil && v > 0 {
			// Large values are epoch seconds, small ones seconds-until-reset.
			if v > 1e9 {
				q.resetAt = time.Unix(int64(v), 0)
			} else {
				q.resetAt = c.now().Add(time.Duration(v * float64(time.Second)))
			}
		}
	}
	c.mu.Lock()
	c.quota = q
	c.mu.Unlock()
}

func parseRetryAfter(header string, now time.Time) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(header); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func extractErrorMessage(body []byte) string {
	msg := strings.TrimSpace(string(body))
	var parsed map[string]any
	if json.Unmarshal(body, &parsed) == nil {
		if m, ok := parsed["message"].(string); ok && strings.TrimSpace(m) != "" {
			msg = m
		}
	}
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}

func outcomeLabel(o Outcome) string {
	if o.NetErr != nil {
		return "network_error"
	}
	return strconv.Itoa(o.StatusCode)
}

func retryReason(o Outcome) string {
	switch {
	case o.NetErr != nil:
		return "network"
	case o.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "server_error"
	}
}
