package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/tablemateio/airlink/internal/config"
	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/record"
)

// Client is the sole I/O boundary of the expansion engine: it fetches
// records, record lists, and base metadata over the Airtable REST API.
// All requests share one client-side rate limit and retry policy.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	baseID      string
	token       string
	minInterval time.Duration
	maxRetries  int
	logger      *logger.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// ListQuery holds the optional parameters of a record list request.
type ListQuery struct {
	Filter     string   // filterByFormula expression
	View       string
	MaxRecords int
	Fields     []string // restrict returned fields; empty means all
}

// NewClient creates a Client from API configuration.
func NewClient(cfg *config.APIConfig, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("api config is nil")
	}
	if cfg.BaseID == "" {
		return nil, fmt.Errorf("base id is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.airtable.com"
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint:    endpoint,
		baseID:      cfg.BaseID,
		token:       cfg.Token,
		minInterval: time.Duration(cfg.MinRequestIntervalMS) * time.Millisecond,
		maxRetries:  cfg.MaxRetries,
		logger:      log,
	}, nil
}

// BaseID returns the base this client talks to.
func (c *Client) BaseID() string {
	return c.baseID
}

// GetRecord fetches a single record by table and id. A missing id yields
// an error matching ErrRecordNotFound; transport and authorization
// failures surface as other errors.
func (c *Client) GetRecord(ctx context.Context, table, id string) (*record.Record, error) {
	path := fmt.Sprintf("/v0/%s/%s/%s", c.baseID, url.PathEscape(table), url.PathEscape(id))

	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var payload recordPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("airtable: failed to parse record response: %w", err)
	}

	rec := record.New(table, payload.ID, payload.Fields)
	rec.CreatedTime = payload.CreatedTime
	return rec, nil
}

// ListRecords fetches records from a table, following offset pagination
// until the server is done or MaxRecords is reached.
func (c *Client) ListRecords(ctx context.Context, table string, q ListQuery) ([]*record.Record, error) {
	path := fmt.Sprintf("/v0/%s/%s", c.baseID, url.PathEscape(table))

	var records []*record.Record
	offset := ""

	for {
		params := url.Values{}
		if q.Filter != "" {
			params.Set("filterByFormula", q.Filter)
		}
		if q.View != "" {
			params.Set("view", q.View)
		}
		if q.MaxRecords > 0 {
			params.Set("maxRecords", strconv.Itoa(q.MaxRecords))
		}
		for _, f := range q.Fields {
			params.Add("fields[]", f)
		}
		if offset != "" {
			params.Set("offset", offset)
		}

		body, err := c.get(ctx, path, params)
		if err != nil {
			return nil, err
		}

		var page recordListPayload
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("airtable: failed to parse record list response: %w", err)
		}

		for _, payload := range page.Records {
			rec := record.New(table, payload.ID, payload.Fields)
			rec.CreatedTime = payload.CreatedTime
			records = append(records, rec)
			if q.MaxRecords > 0 && len(records) >= q.MaxRecords {
				return records, nil
			}
		}

		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

// GetBaseSchema fetches the table metadata of the base: every table with
// its fields, types, and link targets.
func (c *Client) GetBaseSchema(ctx context.Context) ([]TableSchema, error) {
	path := fmt.Sprintf("/v0/meta/bases/%s/tables", c.baseID)

	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var payload baseSchemaPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("airtable: failed to parse base schema response: %w", err)
	}

	return payload.Tables, nil
}

// get performs one GET with rate limiting and bounded retries. 429 and
// 5xx responses are retried with doubling backoff; other failures return
// immediately.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	requestURL := c.endpoint + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			c.logger.Warnw("Retrying request",
				"path", path,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			if err := sleepContext(ctx, backoff); err != nil {
				return nil, err
			}
		}

		if err := c.waitTurn(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		body, status, err := c.doOnce(ctx, requestURL)
		if err != nil {
			// Transport failure: the context may be done, otherwise retry
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		c.logger.Debugw("Request complete",
			"path", path,
			"status", status,
			"duration", time.Since(start),
		)

		if status == http.StatusOK {
			return body, nil
		}

		apiErr := parseAPIError(status, body)
		if retryable(status) {
			lastErr = apiErr
			continue
		}
		return nil, apiErr
	}

	return nil, fmt.Errorf("airtable: retries exhausted: %w", lastErr)
}

// doOnce issues a single request and drains the response.
func (c *Client) doOnce(ctx context.Context, requestURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("airtable: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("airtable: request failed: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("airtable: failed to read response: %w", err)
	}
	if closeErr != nil {
		return nil, 0, fmt.Errorf("airtable: failed to close response body: %w", closeErr)
	}

	return body, resp.StatusCode, nil
}

// waitTurn enforces the minimum interval between requests. The documented
// limit is 5 requests per second per base; exceeding it earns a 429 and a
// 30 second penalty box, so waiting here is much cheaper than retrying.
func (c *Client) waitTurn(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < c.minInterval {
		if err := sleepContext(ctx, c.minInterval-elapsed); err != nil {
			return err
		}
	}
	c.lastRequest = time.Now()
	return nil
}

// sleepContext sleeps unless the context finishes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseAPIError turns a non-2xx response into an APIError. The API body
// is usually {"error":{"type":...,"message":...}} but can degrade to
// {"error":"NOT_FOUND"}, so both shapes are handled.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return apiErr
	}

	var detail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		apiErr.Type = detail.Type
		apiErr.Message = detail.Message
		return apiErr
	}

	var plain string
	if err := json.Unmarshal(envelope.Error, &plain); err == nil {
		apiErr.Type = plain
	}
	return apiErr
}
