package rowstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/sheetnotes/internal/fakesheet"
)

type captured struct {
	method string
	path   string
	query  map[string]string
	auth   string
	body   string
}

func captureServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = map[string]string{}
		for k := range r.URL.Query() {
			got.query[k] = r.URL.Query().Get(k)
		}
		got.auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		got.body = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:      endpoint,
		IntegrationID: "int-1",
		SpreadsheetID: "sheet-1",
		SheetName:     "Sheet1",
		SheetID:       7,
		AccessToken:   "tok",
	}
}

func TestNew_DefaultEndpoint(t *testing.T) {
	c := New(Config{IntegrationID: "a", SpreadsheetID: "b"})
	assert.Equal(t, "https://api.apico.dev/v1/a/b", c.BaseURL())
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New(Config{Endpoint: "http://x/v1/", IntegrationID: "a", SpreadsheetID: "b"})
	assert.Equal(t, "http://x/v1/a/b", c.BaseURL())
}

func TestListRows_Request(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, `{"range":"Sheet1!A1:E2","majorDimension":"ROWS","values":[["a","b"],["c"]]}`)
	c := New(testConfig(srv.URL))

	rows, err := c.ListRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, rows)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/int-1/sheet-1/values/Sheet1", got.path)
	assert.Empty(t, got.auth, "reads are unauthenticated")
}

func TestListRows_MissingValues(t *testing.T) {
	srv, _ := captureServer(t, http.StatusOK, `{"range":"Sheet1!A1"}`)
	c := New(testConfig(srv.URL))

	rows, err := c.ListRows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAppendRow_Request(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, `{"updates":{"updatedRange":"Sheet1!A3:E3","updatedRows":1}}`)
	c := New(testConfig(srv.URL))

	resp, err := c.AppendRow(context.Background(), []string{"id", "t", "c", "x", "y"})
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!A3:E3", resp.Updates.UpdatedRange)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/int-1/sheet-1/values/Sheet1:append", got.path)
	assert.Equal(t, "USER_ENTERED", got.query["valueInputOption"])
	assert.Equal(t, "INSERT_ROWS", got.query["insertDataOption"])
	assert.Equal(t, "true", got.query["includeValuesInResponse"])
	assert.Empty(t, got.auth)

	var body ValueRange
	require.NoError(t, sonic.UnmarshalString(got.body, &body))
	assert.Equal(t, [][]string{{"id", "t", "c", "x", "y"}}, body.Values)
}

func TestPutRow_Request(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, `{"updatedRange":"Sheet1!A3:E3"}`)
	c := New(testConfig(srv.URL))

	_, err := c.PutRow(context.Background(), 2, []string{"id", "t"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/int-1/sheet-1/values/Sheet1!A3", got.path)
	assert.Equal(t, "USER_ENTERED", got.query["valueInputOption"])
	assert.Equal(t, "true", got.query["includeValuesInResponse"])
	assert.Equal(t, "Bearer tok", got.auth)
}

func TestPutRow_NoTokenNoHeader(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, `{}`)
	cfg := testConfig(srv.URL)
	cfg.AccessToken = ""
	c := New(cfg)

	_, err := c.PutRow(context.Background(), 0, []string{"id"})
	require.NoError(t, err)
	assert.Empty(t, got.auth)
}

func TestPutRow_NegativePosition(t *testing.T) {
	c := New(testConfig("http://127.0.0.1:1"))
	_, err := c.PutRow(context.Background(), -1, nil)
	assert.Error(t, err)
}

func TestDeleteRowRange_Request(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, `{"spreadsheetId":"sheet-1","replies":[{}]}`)
	c := New(testConfig(srv.URL))

	resp, err := c.DeleteRowRange(context.Background(), 4, 5)
	require.NoError(t, err)
	assert.Len(t, resp.Replies, 1)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/int-1/sheet-1:batchUpdate", got.path)
	assert.Empty(t, got.auth)

	var body batchUpdateBody
	require.NoError(t, sonic.UnmarshalString(got.body, &body))
	require.Len(t, body.Requests, 1)
	rng := body.Requests[0].DeleteDimension.Range
	assert.Equal(t, dimensionRange{SheetID: 7, Dimension: "ROWS", StartIndex: 4, EndIndex: 5}, rng)
}

func TestDeleteRowRange_InvalidRange(t *testing.T) {
	c := New(testConfig("http://127.0.0.1:1"))
	_, err := c.DeleteRowRange(context.Background(), 3, 3)
	assert.Error(t, err)
	_, err = c.DeleteRowRange(context.Background(), -1, 2)
	assert.Error(t, err)
}

func TestAPIError_MessageExtraction(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message", `{"message":"quota exceeded","detail":"ignored"}`, "quota exceeded"},
		{"detail", `{"detail":"bad range"}`, "bad range"},
		{"nested error", `{"error":{"code":400,"message":"Invalid grid"}}`, "Invalid grid"},
		{"string error", `{"error":"nope"}`, "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := captureServer(t, http.StatusBadRequest, tt.body)
			c := New(testConfig(srv.URL))

			_, err := c.ListRows(context.Background())
			require.Error(t, err)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, tt.want, Message(err))
		})
	}
}

func TestAPIError_NoBodyFallsBackToErrorText(t *testing.T) {
	srv, _ := captureServer(t, http.StatusInternalServerError, `gateway exploded`)
	c := New(testConfig(srv.URL))

	_, err := c.ListRows(context.Background())
	require.Error(t, err)
	assert.Equal(t, err.Error(), Message(err))
	assert.Contains(t, Message(err), "500")
}

func TestIsNotFound(t *testing.T) {
	srv, _ := captureServer(t, http.StatusNotFound, `{"message":"spreadsheet not found"}`)
	c := New(testConfig(srv.URL))

	_, err := c.ListRows(context.Background())
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestDecodeError(t *testing.T) {
	srv, _ := captureServer(t, http.StatusOK, `{"values":"not rows"}`)
	c := New(testConfig(srv.URL))

	_, err := c.ListRows(context.Background())
	var decErr *DecodeError
	assert.True(t, errors.As(err, &decErr))
}

func TestTransportError(t *testing.T) {
	srv, _ := captureServer(t, http.StatusOK, `{}`)
	srv.Close()
	c := New(testConfig(srv.URL))

	_, err := c.ListRows(context.Background())
	var trErr *TransportError
	assert.True(t, errors.As(err, &trErr))
}

func TestCancelledContext(t *testing.T) {
	srv, _ := captureServer(t, http.StatusOK, `{}`)
	c := New(testConfig(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListRows(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_Waits(t *testing.T) {
	srv, _ := captureServer(t, http.StatusOK, `{}`)
	cfg := testConfig(srv.URL)
	cfg.RequestsPerSecond = 20
	c := New(cfg)

	start := time.Now()
	for i := 0; i < 22; i++ {
		_, err := c.ListRows(context.Background())
		require.NoError(t, err)
	}
	// Bucket starts full with 20 tokens, the last two wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiter_ContextDeadline(t *testing.T) {
	srv, _ := captureServer(t, http.StatusOK, `{}`)
	cfg := testConfig(srv.URL)
	cfg.RequestsPerSecond = 0.5
	c := New(cfg)

	_, err := c.ListRows(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ListRows(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_AgainstFakeSheet(t *testing.T) {
	fs := fakesheet.New(fakesheet.Options{
		IntegrationID: "int-1",
		SpreadsheetID: "sheet-1",
		SheetName:     "Sheet1",
		SheetID:       7,
		AccessToken:   "tok",
	})
	srv := httptest.NewServer(fs.Handler())
	defer srv.Close()
	c := New(testConfig(srv.URL))
	ctx := context.Background()

	rows, err := c.ListRows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = c.AppendRow(ctx, []string{"a", "A"})
	require.NoError(t, err)
	_, err = c.AppendRow(ctx, []string{"b", "B"})
	require.NoError(t, err)
	_, err = c.AppendRow(ctx, []string{"c", "C"})
	require.NoError(t, err)

	_, err = c.PutRow(ctx, 1, []string{"b", "B2"})
	require.NoError(t, err)

	_, err = c.DeleteRowRange(ctx, 0, 1)
	require.NoError(t, err)

	rows, err = c.ListRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b", "B2"}, {"c", "C"}}, rows)

	fs.FailNext(http.StatusTooManyRequests, "", "slow down")
	_, err = c.ListRows(ctx)
	assert.Equal(t, "slow down", Message(err))
}

func TestClient_FakeSheetRejectsBadToken(t *testing.T) {
	fs := fakesheet.New(fakesheet.Options{SheetName: "Sheet1", AccessToken: "right"})
	srv := httptest.NewServer(fs.Handler())
	defer srv.Close()
	cfg := testConfig(srv.URL)
	cfg.AccessToken = "wrong"
	c := New(cfg)

	_, err := c.PutRow(context.Background(), 0, []string{"x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
