package fakesheet

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, s *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestValuesGet_Empty(t *testing.T) {
	s := New(Options{SheetName: "Notes"})
	w := do(t, s, http.MethodGet, "/i/s/values/Notes", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"values"`)
}

func TestValuesGet_WrongSheet(t *testing.T) {
	s := New(Options{SheetName: "Notes"})
	w := do(t, s, http.MethodGet, "/i/s/values/Other", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppendThenGet(t *testing.T) {
	s := New(Options{})
	w := do(t, s, http.MethodPost, "/i/s/values/Sheet1:append?valueInputOption=USER_ENTERED", `{"values":[["a","b"]]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `Sheet1!A1:E1`)

	w = do(t, s, http.MethodPost, "/i/s/values/Sheet1:append?valueInputOption=USER_ENTERED", `{"values":[["c"]]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `Sheet1!A2:E2`)

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, s.Rows())
}

func TestAppend_RequiresInputOption(t *testing.T) {
	s := New(Options{})
	w := do(t, s, http.MethodPost, "/i/s/values/Sheet1:append", `{"values":[["a"]]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, s.Rows())
}

func TestPut_OverwritesAndPads(t *testing.T) {
	s := New(Options{})
	s.SetRows([][]string{{"a"}, {"b"}})

	w := do(t, s, http.MethodPut, "/i/s/values/Sheet1!A2", `{"values":[["B"]]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][]string{{"a"}, {"B"}}, s.Rows())

	w = do(t, s, http.MethodPut, "/i/s/values/Sheet1!A4", `{"values":[["d"]]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][]string{{"a"}, {"B"}, {}, {"d"}}, s.Rows())
}

func TestPut_BadRange(t *testing.T) {
	s := New(Options{})
	w := do(t, s, http.MethodPut, "/i/s/values/Sheet1!A0", `{"values":[["x"]]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPut_Token(t *testing.T) {
	s := New(Options{AccessToken: "secret"})
	w := do(t, s, http.MethodPut, "/i/s/values/Sheet1!A1", `{"values":[["x"]]}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, http.MethodPut, "/i/s/values/Sheet1!A1", `{"values":[["x"]]}`, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBatchUpdate_DeletesRows(t *testing.T) {
	s := New(Options{SheetID: 3})
	s.SetRows([][]string{{"a"}, {"b"}, {"c"}})

	body := `{"requests":[{"deleteDimension":{"range":{"sheetId":3,"dimension":"ROWS","startIndex":1,"endIndex":2}}}]}`
	w := do(t, s, http.MethodPost, "/i/s:batchUpdate", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][]string{{"a"}, {"c"}}, s.Rows())
}

func TestBatchUpdate_WrongSheetID(t *testing.T) {
	s := New(Options{SheetID: 3})
	s.SetRows([][]string{{"a"}})

	body := `{"requests":[{"deleteDimension":{"range":{"sheetId":9,"dimension":"ROWS","startIndex":0,"endIndex":1}}}]}`
	w := do(t, s, http.MethodPost, "/i/s:batchUpdate", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No grid with id: 9")
	assert.Len(t, s.Rows(), 1)
}

func TestBatchUpdate_OutOfRange(t *testing.T) {
	s := New(Options{})
	s.SetRows([][]string{{"a"}})

	body := `{"requests":[{"deleteDimension":{"range":{"sheetId":0,"dimension":"ROWS","startIndex":5,"endIndex":6}}}]}`
	w := do(t, s, http.MethodPost, "/i/s:batchUpdate", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckIDs(t *testing.T) {
	s := New(Options{IntegrationID: "int", SpreadsheetID: "sp"})
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/other/sp/values/Sheet1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/int/other/values/Sheet1", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/int/sp/values/Sheet1", "").Code)
}

func TestFailNext(t *testing.T) {
	s := New(Options{})
	s.FailNext(http.StatusServiceUnavailable, "down", "")

	w := do(t, s, http.MethodGet, "/i/s/values/Sheet1", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"message":"down"}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/i/s/values/Sheet1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, s.Requests())
}

func TestSampleRows(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	rows := SampleRows(7, now)
	require.Len(t, rows, 7)

	assert.Equal(t, "sample-1", rows[0][0])
	assert.Equal(t, "Welcome", rows[0][1])
	assert.Equal(t, "Welcome 2", rows[5][1])
	assert.Equal(t, "2026-10-19T12:00:00.000Z", rows[6][3])
	assert.Equal(t, "2026-10-19T06:00:00.000Z", rows[0][3])
	for _, r := range rows {
		assert.Len(t, r, 5)
	}
}
