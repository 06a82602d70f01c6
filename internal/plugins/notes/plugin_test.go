package notes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/config"
	"github.com/marcus/sheetnotes/internal/keymap"
	"github.com/marcus/sheetnotes/internal/msg"
	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/plugin"
	"github.com/marcus/sheetnotes/internal/querycache"
	"github.com/marcus/sheetnotes/internal/rowstore"
	"github.com/marcus/sheetnotes/internal/snapshot"
	"github.com/marcus/sheetnotes/internal/state"
)

// memStore is an in-memory sheet.
type memStore struct {
	mu      sync.Mutex
	rows    [][]string
	failErr error
	writes  int
}

func (m *memStore) ListRows(context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (m *memStore) AppendRow(_ context.Context, values []string) (*rowstore.AppendResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.writes++
	m.rows = append(m.rows, values)
	return &rowstore.AppendResponse{}, nil
}

func (m *memStore) PutRow(_ context.Context, pos int, values []string) (*rowstore.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	if pos >= len(m.rows) {
		return nil, fmt.Errorf("row %d out of range", pos)
	}
	m.writes++
	m.rows[pos] = values
	return &rowstore.UpdateResult{}, nil
}

func (m *memStore) DeleteRowRange(_ context.Context, start, end int) (*rowstore.BatchUpdateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.writes++
	m.rows = append(m.rows[:start], m.rows[end:]...)
	return &rowstore.BatchUpdateResponse{}, nil
}

var testTime = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

func noteRow(id, title, content string) []string {
	ts := notes.FormatTime(testTime)
	return []string{id, title, content, ts, ts}
}

func newTestPlugin(t *testing.T, rows ...[]string) (*Plugin, *memStore) {
	t.Helper()
	if err := state.InitWithDir(t.TempDir()); err != nil {
		t.Fatalf("state init: %v", err)
	}
	store := &memStore{rows: rows}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := notes.NewService(store, querycache.New(), notes.Options{
		Now:    func() time.Time { return testTime },
		Logger: logger,
	})
	km := keymap.NewRegistry()
	keymap.RegisterDefaults(km)

	p := New()
	p.now = func() time.Time { return testTime }
	err := p.Init(&plugin.Context{
		Config:   config.Default(),
		Logger:   logger,
		Keymap:   km,
		Service:  svc,
		SheetKey: "test",
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	return p, store
}

// collect runs cmd and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	m := cmd()
	if batch, ok := m.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if m == nil {
		return nil
	}
	return []tea.Msg{m}
}

// deliver feeds every message produced by cmd back into the plugin and
// returns the toasts that came out.
func deliver(p *Plugin, cmd tea.Cmd) []msg.ToastMsg {
	var toasts []msg.ToastMsg
	for _, m := range collect(cmd) {
		switch m := m.(type) {
		case msg.ToastMsg:
			toasts = append(toasts, m)
			continue
		case NotesLoadedMsg, NoteSavedMsg, NoteDeletedMsg, cacheEventMsg:
		default:
			// cursor blinks and the like
			continue
		}
		_, next := p.Update(m)
		toasts = append(toasts, deliver(p, next)...)
	}
	return toasts
}

func load(t *testing.T, p *Plugin) {
	t.Helper()
	deliver(p, p.startLoad(false))
	if p.loadErr != nil {
		t.Fatalf("load: %v", p.loadErr)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(p *Plugin, s string) []msg.ToastMsg {
	_, cmd := p.Update(key(s))
	return deliver(p, cmd)
}

func TestPluginIdentity(t *testing.T) {
	p := New()
	if p.ID() != "notes" || p.Name() != "Notes" || p.Icon() == "" {
		t.Errorf("identity = %q %q %q", p.ID(), p.Name(), p.Icon())
	}
}

func TestInitRequiresService(t *testing.T) {
	if err := New().Init(&plugin.Context{}); err == nil {
		t.Error("expected error without a service")
	}
}

func TestLoadRendersCards(t *testing.T) {
	p, _ := newTestPlugin(t,
		noteRow("a", "Groceries", "milk\neggs"),
		noteRow("b", "Ideas", strings.Repeat("x", 300)),
	)
	if out := p.View(100, 30); !strings.Contains(out, "Loading") {
		t.Errorf("expected loading state before first load, got %q", out)
	}
	load(t, p)

	out := p.View(100, 40)
	for _, want := range []string{"Groceries", "Ideas", "milk eggs", "October 19th, 2026", "2 notes"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(out, strings.Repeat("x", 211)) {
		t.Error("card body should be truncated")
	}
	if p.FocusContext() != keymap.ContextNotesList {
		t.Errorf("context = %q", p.FocusContext())
	}
}

func TestEmptyState(t *testing.T) {
	p, _ := newTestPlugin(t)
	load(t, p)

	if out := p.View(80, 24); !strings.Contains(out, "Add new note") {
		t.Errorf("empty view = %q", out)
	}
	if p.FocusContext() != keymap.ContextNotesEmpty {
		t.Errorf("context = %q", p.FocusContext())
	}
	press(p, "n")
	if p.form == nil || p.form.mode != modeCreate {
		t.Fatal("n should open the create form")
	}
	if !p.ConsumesTextInput() {
		t.Error("open form should consume text input")
	}
}

func TestEmptyStateButtonClick(t *testing.T) {
	p, _ := newTestPlugin(t)
	load(t, p)
	p.View(80, 24)

	var btn *struct{ x, y int }
	for _, r := range p.mouseHandler.HitMap.Regions() {
		if r.ID == regionAddNote {
			btn = &struct{ x, y int }{r.Rect.X, r.Rect.Y}
		}
	}
	if btn == nil {
		t.Fatal("add-note button not registered")
	}
	p.Update(tea.MouseMsg{X: btn.x + 1, Y: btn.y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if p.form == nil {
		t.Error("clicking the button should open the form")
	}
}

func TestCreateValidationMakesNoCall(t *testing.T) {
	p, store := newTestPlugin(t)
	load(t, p)
	press(p, "n")

	p.form.title.SetValue("Only a title")
	press(p, "ctrl+s")

	if p.form == nil {
		t.Fatal("form closed on invalid input")
	}
	if got := p.form.errs.Message("content"); got != "Content is required" {
		t.Errorf("content error = %q", got)
	}
	if p.form.errs.Message("title") != "" {
		t.Error("title should be valid")
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}
}

func TestCreateSuccess(t *testing.T) {
	p, store := newTestPlugin(t, noteRow("a", "First", "one"))
	load(t, p)
	press(p, "n")
	p.form.title.SetValue("Second")
	p.form.content.SetValue("two")

	toasts := deliver(p, p.submitForm())

	if p.form != nil {
		t.Error("form should close after a successful create")
	}
	if len(toasts) == 0 || toasts[0].Message != "Note created successfully" || toasts[0].Level != msg.LevelSuccess {
		t.Errorf("toasts = %+v", toasts)
	}
	if len(store.rows) != 2 || store.rows[1][notes.ColTitle] != "Second" {
		t.Errorf("rows = %v", store.rows)
	}

	// The invalidation reloads the list and the new note is selected.
	deliver(p, p.handleCacheEvent(querycache.Event{Type: querycache.EventInvalidated}))
	if n, ok := p.selected(); !ok || n.Title != "Second" {
		t.Errorf("selected = %+v", n)
	}
}

func TestSaveFailureKeepsFormOpen(t *testing.T) {
	p, store := newTestPlugin(t, noteRow("a", "First", "one"))
	load(t, p)
	store.failErr = &rowstore.APIError{Op: "append", StatusCode: 500, Message: "quota exceeded"}

	press(p, "e")
	if p.form == nil || p.form.mode != modeEdit || p.form.title.Value() != "First" {
		t.Fatal("e should open the edit form prefilled")
	}
	p.form.content.SetValue("changed")
	toasts := deliver(p, p.submitForm())

	if p.form == nil {
		t.Fatal("form should stay open after a failed save")
	}
	if p.form.state != notes.Failed {
		t.Errorf("state = %v", p.form.state)
	}
	if len(toasts) != 1 || toasts[0].Level != msg.LevelError || !strings.Contains(toasts[0].Message, "quota exceeded") {
		t.Errorf("toasts = %+v", toasts)
	}
	// Rolled back.
	if list, _ := p.ctx.Service.Cached(); list[0].Content != "one" {
		t.Errorf("cached content = %q", list[0].Content)
	}
}

func TestFormIgnoresCancelWhileSaving(t *testing.T) {
	p, store := newTestPlugin(t, noteRow("a", "First", "one"))
	load(t, p)
	store.failErr = &rowstore.APIError{Op: "put", StatusCode: 500, Message: "quota exceeded"}

	press(p, "e")
	p.form.content.SetValue("changed")
	pending := p.submitForm()
	if !p.form.state.Busy() {
		t.Fatalf("state = %v, want pending", p.form.state)
	}

	press(p, "esc")
	if p.form == nil {
		t.Fatal("esc closed the form while saving")
	}

	toasts := deliver(p, pending)
	if p.form == nil || p.form.state != notes.Failed {
		t.Fatal("form should stay open after the save fails")
	}
	if p.form.content.Value() != "changed" {
		t.Errorf("content = %q, input lost", p.form.content.Value())
	}
	if len(toasts) != 1 || toasts[0].Level != msg.LevelError {
		t.Errorf("toasts = %+v", toasts)
	}

	press(p, "esc")
	if p.form != nil {
		t.Error("esc should close the form once the save has finished")
	}
}

func TestUpdateSuccess(t *testing.T) {
	p, store := newTestPlugin(t, noteRow("a", "First", "one"))
	load(t, p)
	press(p, "enter")
	p.form.content.SetValue("two")

	toasts := deliver(p, p.submitForm())
	if p.form != nil {
		t.Error("form should close")
	}
	if len(toasts) != 1 || toasts[0].Message != "Note updated successfully" {
		t.Errorf("toasts = %+v", toasts)
	}
	if store.rows[0][notes.ColContent] != "two" {
		t.Errorf("row = %v", store.rows[0])
	}
}

func TestDeleteConfirm(t *testing.T) {
	p, store := newTestPlugin(t, noteRow("a", "First", "one"), noteRow("b", "Second", "two"))
	load(t, p)

	press(p, "d")
	if p.del == nil || p.FocusContext() != keymap.ContextNotesDelete {
		t.Fatal("d should open the delete modal")
	}
	if out := p.View(100, 30); !strings.Contains(out, "Are you sure") {
		t.Error("delete modal should ask for confirmation")
	}

	toasts := press(p, "y")
	if p.del != nil {
		t.Error("modal should close after the delete")
	}
	if len(toasts) != 1 || toasts[0].Message != "Note deleted successfully" || toasts[0].Level != msg.LevelWarning {
		t.Errorf("toasts = %+v", toasts)
	}
	if len(store.rows) != 1 || store.rows[0][notes.ColID] != "b" {
		t.Errorf("rows = %v", store.rows)
	}
}

func TestDeleteCancelAndFailure(t *testing.T) {
	p, store := newTestPlugin(t, noteRow("a", "First", "one"))
	load(t, p)

	press(p, "d")
	press(p, "n")
	if p.del != nil {
		t.Error("n should cancel")
	}

	store.failErr = errors.New("boom")
	press(p, "d")
	toasts := press(p, "enter")
	if p.del != nil {
		t.Error("modal should close after a failed delete too")
	}
	if len(toasts) != 1 || toasts[0].Level != msg.LevelError {
		t.Errorf("toasts = %+v", toasts)
	}
	if list, _ := p.ctx.Service.Cached(); len(list) != 1 {
		t.Errorf("failed delete should roll back, cached = %v", list)
	}
}

func TestSelectionFollowsNoteAcrossReload(t *testing.T) {
	p, store := newTestPlugin(t, noteRow("a", "First", "one"), noteRow("b", "Second", "two"))
	load(t, p)
	press(p, "j")
	if n, _ := p.selected(); n.ID != "b" {
		t.Fatalf("selected = %q", n.ID)
	}
	if got := state.GetSelectedNote("test"); got != "b" {
		t.Errorf("persisted selection = %q", got)
	}

	store.rows = append([][]string{noteRow("z", "New", "first")}, store.rows...)
	deliver(p, p.startLoad(true))
	if n, _ := p.selected(); n.ID != "b" || p.cursor != 2 {
		t.Errorf("selected = %q at %d", n.ID, p.cursor)
	}
}

func TestCacheEventsSyncList(t *testing.T) {
	p, _ := newTestPlugin(t, noteRow("a", "First", "one"))
	load(t, p)

	patched := []notes.Note{{ID: "a", Title: "Patched"}}
	querycache.Set(p.ctx.Service.Cache(), notes.NotesKey, patched)
	p.Update(cacheEventMsg{Event: querycache.Event{Type: querycache.EventUpdated}})
	if p.notes[0].Title != "Patched" {
		t.Errorf("title = %q", p.notes[0].Title)
	}
}

func TestPreviewToggleAndResize(t *testing.T) {
	p, _ := newTestPlugin(t, noteRow("a", "First", "# Heading\n\nbody"))
	load(t, p)
	p.View(120, 30)
	if !p.previewVisible() {
		t.Fatal("preview should be visible at width 120")
	}

	press(p, ">")
	if p.previewPct != defaultPreviewPct+previewStep || state.GetPreviewWidth() != p.previewPct {
		t.Errorf("previewPct = %d, saved %d", p.previewPct, state.GetPreviewWidth())
	}
	for range 20 {
		press(p, ">")
	}
	if p.previewPct != maxPreviewPct {
		t.Errorf("previewPct = %d, want clamp at %d", p.previewPct, maxPreviewPct)
	}

	press(p, "\\")
	if p.previewVisible() || !state.GetPreviewHidden() {
		t.Error("backslash should hide the preview")
	}
}

func TestPreviewPaneFocus(t *testing.T) {
	p, _ := newTestPlugin(t, noteRow("a", "First", strings.Repeat("line\n\n", 80)))
	load(t, p)
	p.View(120, 20)

	_, _ = p.Update(tea.KeyMsg{Type: tea.KeyTab})
	if p.FocusContext() != keymap.ContextNotesPreview {
		t.Fatalf("context = %q", p.FocusContext())
	}
	press(p, "j")
	if p.previewScroll != 1 {
		t.Errorf("previewScroll = %d", p.previewScroll)
	}
	_, _ = p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if p.FocusContext() != keymap.ContextNotesList {
		t.Errorf("esc should return to the list, context = %q", p.FocusContext())
	}
}

func TestMouseClickSelectsCard(t *testing.T) {
	p, _ := newTestPlugin(t, noteRow("a", "First", "one"), noteRow("b", "Second", "two"))
	load(t, p)
	p.View(120, 40)

	for _, r := range p.mouseHandler.HitMap.Regions() {
		if r.ID == regionCard && r.Data == 1 {
			p.Update(tea.MouseMsg{X: r.Rect.X + 1, Y: r.Rect.Y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
		}
	}
	if p.cursor != 1 {
		t.Errorf("cursor = %d, want 1", p.cursor)
	}
}

func TestLoadErrorShownInEmptyState(t *testing.T) {
	p, _ := newTestPlugin(t)
	p.Update(NotesLoadedMsg{Err: &rowstore.APIError{Op: "list", StatusCode: 403, Message: "forbidden"}})
	out := p.View(100, 30)
	if !strings.Contains(out, "forbidden") || !strings.Contains(out, "retry") {
		t.Errorf("view = %q", out)
	}
	diags := p.Diagnostics()
	found := false
	for _, d := range diags {
		if d.ID == "load" && d.Status == "error" {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %+v", diags)
	}
}

func TestSeedFromSnapshot(t *testing.T) {
	if err := state.InitWithDir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	store, err := snapshot.Open(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer store.Close()
	fetched := time.Now().Add(-time.Hour)
	if err := store.Save(context.Background(), "test", [][]string{noteRow("a", "Offline", "x")}, fetched); err != nil {
		t.Fatalf("save: %v", err)
	}

	svc := notes.NewService(&memStore{}, querycache.New(), notes.Options{})
	p := New()
	p.now = func() time.Time { return testTime }
	if err := p.Init(&plugin.Context{Service: svc, Snapshot: store, SheetKey: "test"}); err != nil {
		t.Fatal(err)
	}
	if !p.fromSnapshot || len(p.notes) != 1 || p.notes[0].Title != "Offline" {
		t.Fatalf("not seeded: %+v", p.notes)
	}
	if out := p.View(100, 30); !strings.Contains(out, "offline copy") {
		t.Errorf("status should mention the snapshot: %q", out)
	}

	// The first real load replaces it.
	deliver(p, p.startLoad(false))
	if p.fromSnapshot || len(p.notes) != 0 {
		t.Errorf("after load fromSnapshot=%v notes=%v", p.fromSnapshot, p.notes)
	}
}
