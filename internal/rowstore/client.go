// Package rowstore is a thin client for a spreadsheet exposed through an
// HTTP integration layer. Rows are addressed by position only.
package rowstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/juju/ratelimit"
)

// DefaultEndpoint is the integration API root used when none is configured.
const DefaultEndpoint = "https://api.apico.dev/v1"

// maxErrorBody caps how much of an error body is kept on APIError.
const maxErrorBody = 2048

// Config identifies the sheet and how to reach it.
type Config struct {
	Endpoint      string // API root, DefaultEndpoint when empty
	IntegrationID string
	SpreadsheetID string
	SheetName     string
	SheetID       int    // numeric sheet id, used by row deletes
	AccessToken   string // bearer token, sent on row overwrites

	// Timeout bounds each request. Zero means no client timeout; the
	// caller's context still applies.
	Timeout time.Duration
	// RequestsPerSecond enables a client-side token bucket. Zero disables it.
	RequestsPerSecond float64
}

// ValueRange is the values payload shared by reads and writes.
type ValueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values"`
}

// UpdateResult describes a write as echoed by the server.
type UpdateResult struct {
	SpreadsheetID  string      `json:"spreadsheetId,omitempty"`
	UpdatedRange   string      `json:"updatedRange,omitempty"`
	UpdatedRows    int         `json:"updatedRows,omitempty"`
	UpdatedColumns int         `json:"updatedColumns,omitempty"`
	UpdatedCells   int         `json:"updatedCells,omitempty"`
	UpdatedData    *ValueRange `json:"updatedData,omitempty"`
}

// AppendResponse is the server echo for AppendRow.
type AppendResponse struct {
	SpreadsheetID string       `json:"spreadsheetId,omitempty"`
	TableRange    string       `json:"tableRange,omitempty"`
	Updates       UpdateResult `json:"updates"`
}

// BatchUpdateResponse is the server echo for DeleteRowRange.
type BatchUpdateResponse struct {
	SpreadsheetID string           `json:"spreadsheetId,omitempty"`
	Replies       []map[string]any `json:"replies,omitempty"`
}

type dimensionRange struct {
	SheetID    int    `json:"sheetId"`
	Dimension  string `json:"dimension"`
	StartIndex int    `json:"startIndex"`
	EndIndex   int    `json:"endIndex"`
}

type deleteDimension struct {
	Range dimensionRange `json:"range"`
}

type batchRequest struct {
	DeleteDimension *deleteDimension `json:"deleteDimension,omitempty"`
}

type batchUpdateBody struct {
	Requests []batchRequest `json:"requests"`
}

// errorBody covers the error shapes seen from the integration layer and
// the spreadsheet API behind it.
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Error   any    `json:"error"`
}

// Client issues the four row operations. It is safe for concurrent use.
type Client struct {
	cfg     Config
	base    string
	http    *http.Client
	limiter *ratelimit.Bucket
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client. Identifiers are not validated: a missing one
// surfaces as an API error on first use.
func New(cfg Config, opts ...Option) *Client {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		cfg:    cfg,
		base:   endpoint + "/" + url.PathEscape(cfg.IntegrationID) + "/" + url.PathEscape(cfg.SpreadsheetID),
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default(),
	}
	if cfg.RequestsPerSecond > 0 {
		capacity := int64(cfg.RequestsPerSecond)
		if capacity < 1 {
			capacity = 1
		}
		c.limiter = ratelimit.NewBucketWithRate(cfg.RequestsPerSecond, capacity)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the spreadsheet root all operations are relative to.
func (c *Client) BaseURL() string { return c.base }

// SheetName returns the configured sheet name.
func (c *Client) SheetName() string { return c.cfg.SheetName }

// ListRows fetches every row of the sheet in sheet order.
func (c *Client) ListRows(ctx context.Context) ([][]string, error) {
	const op = "list rows"
	u := c.base + "/values/" + url.PathEscape(c.cfg.SheetName)

	var resp ValueRange
	if err := c.do(ctx, op, http.MethodGet, u, nil, false, &resp); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// AppendRow appends one row after the last non-empty row.
func (c *Client) AppendRow(ctx context.Context, values []string) (*AppendResponse, error) {
	const op = "append row"
	q := url.Values{}
	q.Set("valueInputOption", "USER_ENTERED")
	q.Set("insertDataOption", "INSERT_ROWS")
	q.Set("includeValuesInResponse", "true")
	u := c.base + "/values/" + url.PathEscape(c.cfg.SheetName) + ":append?" + q.Encode()

	var resp AppendResponse
	if err := c.do(ctx, op, http.MethodPost, u, ValueRange{Values: [][]string{values}}, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PutRow overwrites the row at the zero-based position. The position is
// sent as the 1-based A1 address A{position+1}.
func (c *Client) PutRow(ctx context.Context, position int, values []string) (*UpdateResult, error) {
	const op = "put row"
	if position < 0 {
		return nil, fmt.Errorf("%s: negative position %d", op, position)
	}
	q := url.Values{}
	q.Set("valueInputOption", "USER_ENTERED")
	q.Set("includeValuesInResponse", "true")
	rng := c.cfg.SheetName + "!A" + strconv.Itoa(position+1)
	u := c.base + "/values/" + url.PathEscape(rng) + "?" + q.Encode()

	var resp UpdateResult
	if err := c.do(ctx, op, http.MethodPut, u, ValueRange{Values: [][]string{values}}, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteRowRange deletes rows [start, end) by zero-based index.
func (c *Client) DeleteRowRange(ctx context.Context, start, end int) (*BatchUpdateResponse, error) {
	const op = "delete rows"
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%s: invalid range [%d, %d)", op, start, end)
	}
	body := batchUpdateBody{Requests: []batchRequest{{
		DeleteDimension: &deleteDimension{Range: dimensionRange{
			SheetID:    c.cfg.SheetID,
			Dimension:  "ROWS",
			StartIndex: start,
			EndIndex:   end,
		}},
	}}}

	var resp BatchUpdateResponse
	if err := c.do(ctx, op, http.MethodPost, c.base+":batchUpdate", body, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do runs one request/response exchange. There is no retry.
func (c *Client) do(ctx context.Context, op, method, u string, body any, bearer bool, out any) error {
	if err := c.wait(ctx); err != nil {
		return &TransportError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		buf, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer && c.cfg.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("rowstore: request failed", "op", op, "method", method, "err", err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	c.logger.Debug("rowstore: request", "op", op, "method", method, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

// wait blocks on the rate limiter, if any, honouring ctx.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	d := c.limiter.Take(1)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func newAPIError(op string, status int, data []byte) *APIError {
	apiErr := &APIError{Op: op, StatusCode: status}
	raw := string(data)
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	apiErr.Body = raw

	var eb errorBody
	if err := sonic.Unmarshal(data, &eb); err != nil {
		return apiErr
	}
	apiErr.Message = eb.Message
	apiErr.Detail = eb.Detail
	if apiErr.Message == "" {
		switch v := eb.Error.(type) {
		case string:
			apiErr.Message = v
		case map[string]any:
			if m, ok := v["message"].(string); ok {
				apiErr.Message = m
			}
		}
	}
	return apiErr
}
