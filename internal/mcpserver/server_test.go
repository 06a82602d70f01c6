package mcpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/sheetnotes/internal/fakesheet"
	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/querycache"
	"github.com/marcus/sheetnotes/internal/rowstore"
)

func newTestServer(t *testing.T) (*server.MCPServer, *fakesheet.Server) {
	t.Helper()
	sheet := fakesheet.New(fakesheet.Options{SheetName: "Notes", SheetID: 3, AccessToken: "tok"})
	srv := httptest.NewServer(sheet.Handler())
	t.Cleanup(srv.Close)

	client := rowstore.New(rowstore.Config{
		Endpoint:      srv.URL,
		IntegrationID: "int",
		SpreadsheetID: "sheet",
		SheetName:     "Notes",
		SheetID:       3,
		AccessToken:   "tok",
	})
	svc := notes.NewService(client, querycache.New(), notes.Options{VerifyRowPosition: true})
	return NewServer(svc, "test"), sheet
}

func call(t *testing.T, s *server.MCPServer, tool string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	st := s.GetTool(tool)
	require.NotNil(t, st, "tool %s not registered", tool)
	var req mcp.CallToolRequest
	req.Params.Name = tool
	req.Params.Arguments = args
	res, err := st.Handler(context.Background(), req)
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func decodeNote(t *testing.T, res *mcp.CallToolResult) notes.Note {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	var n notes.Note
	require.NoError(t, sonic.ConfigStd.UnmarshalFromString(text(t, res), &n))
	return n
}

func TestToolsRegistered(t *testing.T) {
	s, _ := newTestServer(t)
	tools := s.ListTools()
	for _, name := range []string{"list_notes", "get_note", "create_note", "update_note", "delete_note"} {
		assert.Contains(t, tools, name)
	}
}

func TestCreateGetUpdateDelete(t *testing.T) {
	s, sheet := newTestServer(t)

	created := decodeNote(t, call(t, s, "create_note", map[string]any{"title": "Groceries", "content": "Milk"}))
	assert.NotEmpty(t, created.ID)
	require.Len(t, sheet.Rows(), 1)
	assert.Equal(t, "Groceries", sheet.Rows()[0][notes.ColTitle])

	got := decodeNote(t, call(t, s, "get_note", map[string]any{"id": created.ID}))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Milk", got.Content)

	updated := decodeNote(t, call(t, s, "update_note", map[string]any{"id": created.ID, "title": "Groceries", "content": "Milk, eggs"}))
	assert.Equal(t, "Milk, eggs", updated.Content)
	assert.Equal(t, "Milk, eggs", sheet.Rows()[0][notes.ColContent])

	res := call(t, s, "delete_note", map[string]any{"id": created.ID})
	require.False(t, res.IsError, text(t, res))
	assert.Empty(t, sheet.Rows())
}

func TestCreateValidationError(t *testing.T) {
	s, sheet := newTestServer(t)
	before := sheet.Requests()

	res := call(t, s, "create_note", map[string]any{"title": "", "content": "x"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "Title is required")
	assert.Equal(t, before, sheet.Requests(), "invalid input must not reach the sheet")
}

func TestGetNoteNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	res := call(t, s, "get_note", map[string]any{"id": "missing"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "note not found")
}

func TestMissingID(t *testing.T) {
	s, _ := newTestServer(t)
	for _, tool := range []string{"get_note", "update_note", "delete_note"} {
		res := call(t, s, tool, map[string]any{})
		assert.True(t, res.IsError, tool)
		assert.Equal(t, "id is required", text(t, res), tool)
	}
}

func TestListNotesFilterAndLimit(t *testing.T) {
	s, sheet := newTestServer(t)
	sheet.SetRows([][]string{
		{"a", "Groceries", "milk", "", ""},
		{"b", "Work", "standup notes", "", ""},
		{"c", "Recipes", "MILK bread", "", ""},
	})

	var list []notes.Note
	res := call(t, s, "list_notes", map[string]any{"query": "milk"})
	require.False(t, res.IsError, text(t, res))
	require.NoError(t, sonic.ConfigStd.UnmarshalFromString(text(t, res), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[1].ID)

	res = call(t, s, "list_notes", map[string]any{"limit": float64(1)})
	require.NoError(t, sonic.ConfigStd.UnmarshalFromString(text(t, res), &list))
	assert.Len(t, list, 1)
}

func TestListNotesRefreshBypassesCache(t *testing.T) {
	s, sheet := newTestServer(t)
	sheet.SetRows([][]string{{"a", "One", "x", "", ""}})
	call(t, s, "list_notes", nil)

	sheet.SetRows([][]string{{"a", "One", "x", "", ""}, {"b", "Two", "y", "", ""}})
	var list []notes.Note
	res := call(t, s, "list_notes", map[string]any{"refresh": true})
	require.NoError(t, sonic.ConfigStd.UnmarshalFromString(text(t, res), &list))
	assert.Len(t, list, 2)
}

func TestListNotesSheetError(t *testing.T) {
	s, sheet := newTestServer(t)
	sheet.FailNext(http.StatusForbidden, "Access denied", "")
	res := call(t, s, "list_notes", map[string]any{"refresh": true})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "Access denied")
}
