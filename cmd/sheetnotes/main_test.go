package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/sheetnotes/internal/fakesheet"
	"github.com/marcus/sheetnotes/internal/notes"
)

// setupSheet points the environment at a fake sheet and a scratch home.
func setupSheet(t *testing.T) *fakesheet.Server {
	t.Helper()
	sheet := fakesheet.New(fakesheet.Options{SheetName: "Notes", SheetID: 7, AccessToken: "tok"})
	srv := httptest.NewServer(sheet.Handler())
	t.Cleanup(srv.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHEETNOTES_ENDPOINT", srv.URL)
	t.Setenv("SHEETNOTES_INTEGRATION_ID", "int")
	t.Setenv("SHEETNOTES_SPREADSHEET_ID", "sheet")
	t.Setenv("SHEETNOTES_SHEET_NAME", "Notes")
	t.Setenv("SHEETNOTES_SHEET_ID", "7")
	t.Setenv("SHEETNOTES_ACCESS_TOKEN", "tok")
	return sheet
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, logs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sheetnotes version "), out)
}

func TestAddListEditRm(t *testing.T) {
	sheet := setupSheet(t)

	out, err := run(t, "", "add", "--title", "Groceries", "--content", "Milk")
	require.NoError(t, err)
	assert.Contains(t, out, "Created note ")
	require.Len(t, sheet.Rows(), 1)
	id := sheet.Rows()[0][notes.ColID]

	out, err = run(t, "", "list", "--json")
	require.NoError(t, err)
	var list []notes.Note
	require.NoError(t, sonic.ConfigStd.UnmarshalFromString(out, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Groceries", list[0].Title)

	out, err = run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, id)

	_, err = run(t, "Milk\nEggs\n", "edit", id, "--content", "-")
	require.NoError(t, err)
	row := sheet.Rows()[0]
	assert.Equal(t, "Groceries", row[notes.ColTitle], "title kept")
	assert.Equal(t, "Milk\nEggs", row[notes.ColContent])

	out, err = run(t, "", "rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted note "+id)
	assert.Empty(t, sheet.Rows())
}

func TestListEmpty(t *testing.T) {
	setupSheet(t)
	out, err := run(t, "", "list")
	require.NoError(t, err)
	assert.Equal(t, "No notes yet.\n", out)
}

func TestAddValidation(t *testing.T) {
	sheet := setupSheet(t)
	_, err := run(t, "", "add", "--content", "body only")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Title is required")
	assert.Zero(t, sheet.Requests())
}

func TestEditRequiresAChange(t *testing.T) {
	setupSheet(t)
	_, err := run(t, "", "edit", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")
}

func TestRmUnknownID(t *testing.T) {
	setupSheet(t)
	_, err := run(t, "", "rm", "missing")
	require.Error(t, err)
	assert.Equal(t, "note not found", err.Error())
}

func TestReadContent(t *testing.T) {
	got, err := readContent(strings.NewReader("from stdin\n\n"), "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	got, err = readContent(nil, "literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", got)
}
