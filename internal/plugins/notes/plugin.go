package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/keymap"
	"github.com/marcus/sheetnotes/internal/mouse"
	"github.com/marcus/sheetnotes/internal/msg"
	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/plugin"
	"github.com/marcus/sheetnotes/internal/querycache"
	"github.com/marcus/sheetnotes/internal/rowstore"
	"github.com/marcus/sheetnotes/internal/state"
)

const (
	pluginID   = "notes"
	pluginName = "Notes"
	pluginIcon = "✎"

	defaultPreviewPct = 50
	minPreviewPct     = 25
	maxPreviewPct     = 75
	previewStep       = 5
)

// pane identifies which half of the split view has focus.
type pane int

const (
	paneList pane = iota
	panePreview
)

// Plugin shows the notes of one sheet as a list of cards with a markdown
// preview, and hosts the create, edit and delete dialogs.
type Plugin struct {
	ctx     *plugin.Context
	focused bool
	width   int
	height  int

	notes      []notes.Note
	cursor     int
	scrollOff  int
	selectedID string

	pendingLoads int
	loaded       bool // a list has been shown, from the sheet or a snapshot
	fromSnapshot bool
	snapshotAt   time.Time
	loadErr      error

	activePane       pane
	previewHidden    bool
	previewPct       int
	previewScroll    int
	previewMaxScroll int
	md               *markdownRenderer

	form *noteForm
	del  *deleteConfirm

	mouseHandler *mouse.Handler
	events       <-chan querycache.Event
	unsubscribe  func()
	now          func() time.Time
}

// New creates the notes plugin.
func New() *Plugin {
	return &Plugin{
		previewPct:   defaultPreviewPct,
		md:           newMarkdownRenderer(),
		mouseHandler: mouse.NewHandler(),
		now:          time.Now,
	}
}

func (p *Plugin) ID() string   { return pluginID }
func (p *Plugin) Name() string { return pluginName }
func (p *Plugin) Icon() string { return pluginIcon }

// Init restores UI state and seeds the list from the last snapshot so the
// first frame is not empty while the sheet loads.
func (p *Plugin) Init(ctx *plugin.Context) error {
	if ctx == nil || ctx.Service == nil {
		return errors.New("notes: no note service configured")
	}
	if ctx.Logger == nil {
		ctx.Logger = slog.Default()
	}
	if ctx.Keymap == nil {
		km := keymap.NewRegistry()
		keymap.RegisterDefaults(km)
		ctx.Keymap = km
	}
	p.ctx = ctx

	p.previewHidden = state.GetPreviewHidden()
	if ctx.Config != nil && !ctx.Config.UI.ShowPreview {
		p.previewHidden = true
	}
	if pct := state.GetPreviewWidth(); pct > 0 {
		p.previewPct = clamp(pct, minPreviewPct, maxPreviewPct)
	}
	p.selectedID = state.GetSelectedNote(ctx.SheetKey)

	p.seedFromSnapshot()
	return nil
}

func (p *Plugin) seedFromSnapshot() {
	if p.ctx.Snapshot == nil || p.ctx.SheetKey == "" {
		return
	}
	snap, err := p.ctx.Snapshot.Load(context.Background(), p.ctx.SheetKey)
	if err != nil {
		p.ctx.Logger.Warn("notes: snapshot load failed", "error", err)
		return
	}
	if snap == nil {
		return
	}
	list := notes.FromRows(snap.Rows, p.ctx.Logger)
	if !p.ctx.Service.Seed(list, snap.FetchedAt) {
		return
	}
	p.setNotes(list)
	p.loaded = true
	p.fromSnapshot = true
	p.snapshotAt = snap.FetchedAt
	p.ctx.Logger.Debug("notes: seeded from snapshot", "notes", len(list), "fetchedAt", snap.FetchedAt)
}

// Start subscribes to the note list and triggers the first load.
func (p *Plugin) Start() tea.Cmd {
	p.events, p.unsubscribe = p.ctx.Service.Cache().Subscribe(notes.NotesKey)
	return tea.Batch(p.startLoad(false), waitForCacheEvent(p.events))
}

// Stop ends the cache subscription.
func (p *Plugin) Stop() {
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
}

// Update handles messages.
func (p *Plugin) Update(m tea.Msg) (plugin.Plugin, tea.Cmd) {
	switch m := m.(type) {
	case tea.KeyMsg:
		return p, p.handleKey(m)

	case tea.MouseMsg:
		return p.handleMouse(m)

	case plugin.RefreshMsg:
		return p, p.startLoad(true)

	case plugin.ConfigChangedMsg:
		if p.ctx.Config != nil && !p.ctx.Config.UI.ShowPreview {
			p.previewHidden = true
			p.activePane = paneList
		}
		return p, nil

	case NotesLoadedMsg:
		return p, p.handleLoaded(m)

	case cacheEventMsg:
		return p, p.handleCacheEvent(m.Event)

	case NoteSavedMsg:
		return p, p.handleSaved(m)

	case NoteDeletedMsg:
		return p, p.handleDeleted(m)
	}

	if p.form != nil {
		return p, p.form.updateInputs(m)
	}
	return p, nil
}

func (p *Plugin) startLoad(force bool) tea.Cmd {
	p.pendingLoads++
	return loadNotes(p.ctx.Service, force)
}

func (p *Plugin) handleLoaded(res NotesLoadedMsg) tea.Cmd {
	p.pendingLoads = max(0, p.pendingLoads-1)
	if res.Err != nil {
		if isCanceled(res.Err) {
			// Replaced by a newer load; make sure one is still coming.
			if p.pendingLoads == 0 {
				return p.startLoad(false)
			}
			return nil
		}
		p.loadErr = res.Err
		p.ctx.Logger.Error("notes: load failed", "error", res.Err)
		if p.loaded {
			return msg.ShowError("Refresh failed: "+errorText(res.Err), msg.ErrorToastDuration)
		}
		return nil
	}
	p.loadErr = nil
	p.loaded = true
	p.fromSnapshot = false
	p.setNotes(res.Notes)
	return nil
}

// handleCacheEvent keeps the view in step with the cache. Optimistic
// patches and rollbacks show up here before the mutation returns.
func (p *Plugin) handleCacheEvent(ev querycache.Event) tea.Cmd {
	cmds := []tea.Cmd{waitForCacheEvent(p.events)}
	switch ev.Type {
	case querycache.EventUpdated, querycache.EventRolledBack:
		if list, ok := p.ctx.Service.Cached(); ok {
			p.setNotes(list)
			p.loaded = true
		}
	case querycache.EventInvalidated:
		if p.pendingLoads == 0 {
			cmds = append(cmds, p.startLoad(false))
		}
	}
	return tea.Batch(cmds...)
}

func (p *Plugin) handleSaved(res NoteSavedMsg) tea.Cmd {
	// The open form only owns this result if it is the one waiting on it.
	f := p.form
	if f != nil && !f.state.Busy() {
		f = nil
	}
	if f != nil {
		f.state.Finish(res.Err)
	}

	if res.Err != nil {
		p.ctx.Logger.Error("notes: save failed", "mode", res.Mode, "error", res.Err)
		var verr *notes.ValidationError
		if f != nil && errors.As(res.Err, &verr) {
			f.errs = verr
			return nil
		}
		return msg.ShowError(errorText(res.Err), msg.ErrorToastDuration)
	}

	if f != nil {
		p.form = nil
	}
	if res.Mode == modeCreate {
		p.selectNoteID(res.Note.ID)
		return msg.ShowToast("Note created successfully", msg.ToastDuration)
	}
	return msg.ShowToast("Note updated successfully", msg.ToastDuration)
}

func (p *Plugin) handleDeleted(res NoteDeletedMsg) tea.Cmd {
	if p.del != nil && p.del.note.ID == res.ID {
		p.del.state.Finish(res.Err)
		p.del = nil
	}
	if res.Err != nil {
		p.ctx.Logger.Error("notes: delete failed", "id", res.ID, "error", res.Err)
		return msg.ShowError(errorText(res.Err), msg.ErrorToastDuration)
	}
	return msg.ShowWarning("Note deleted successfully", msg.ToastDuration)
}

// errorText turns a failed call into a toast message.
func errorText(err error) string {
	switch {
	case errors.Is(err, notes.ErrRowDrift):
		return "The sheet changed since it was loaded. Reloading; please try again."
	case errors.Is(err, notes.ErrNotFound):
		return "That note no longer exists."
	case errors.Is(err, context.DeadlineExceeded):
		return "The sheet did not respond in time."
	}
	return rowstore.Message(err)
}

// setNotes replaces the list, keeping the selection on the same note id.
func (p *Plugin) setNotes(list []notes.Note) {
	p.notes = list
	if i := notes.IndexOf(list, p.selectedID); i >= 0 {
		p.cursor = i
	} else {
		p.cursor = clamp(p.cursor, 0, max(0, len(list)-1))
	}
	if n, ok := p.selected(); ok {
		if n.ID != p.selectedID {
			p.previewScroll = 0
		}
		p.selectedID = n.ID
	}
}

func (p *Plugin) selected() (notes.Note, bool) {
	if p.cursor < 0 || p.cursor >= len(p.notes) {
		return notes.Note{}, false
	}
	return p.notes[p.cursor], true
}

// selectIndex moves the cursor and remembers the choice across runs.
func (p *Plugin) selectIndex(i int) {
	if len(p.notes) == 0 {
		return
	}
	i = clamp(i, 0, len(p.notes)-1)
	if i != p.cursor {
		p.previewScroll = 0
	}
	p.cursor = i
	p.selectNoteID(p.notes[i].ID)
}

func (p *Plugin) selectNoteID(id string) {
	p.selectedID = id
	if i := notes.IndexOf(p.notes, id); i >= 0 {
		p.cursor = i
	}
	if err := state.SetSelectedNote(p.ctx.SheetKey, id); err != nil {
		p.ctx.Logger.Warn("notes: save selection failed", "error", err)
	}
}

func (p *Plugin) openForm(mode formMode, n notes.Note) tea.Cmd {
	p.form = newNoteForm(mode, n)
	return textinput.Blink
}

func (p *Plugin) submitForm() tea.Cmd {
	f := p.form
	if f == nil || f.state.Busy() || !f.validate() {
		return nil
	}
	if !f.state.Start() {
		return nil
	}
	if f.mode == modeCreate {
		return createNote(p.ctx.Service, f.input())
	}
	return updateNote(p.ctx.Service, f.noteID, f.input())
}

func (p *Plugin) openDelete() tea.Cmd {
	n, ok := p.selected()
	if !ok {
		return nil
	}
	p.del = newDeleteConfirm(n)
	return nil
}

func (p *Plugin) confirmDelete() tea.Cmd {
	if p.del == nil || !p.del.state.Start() {
		return nil
	}
	return deleteNote(p.ctx.Service, p.del.note.ID)
}

// previewVisible reports whether the preview pane fits and is enabled.
func (p *Plugin) previewVisible() bool {
	return !p.previewHidden && p.width >= minSplitWidth
}

func (p *Plugin) setPreviewPct(pct int) {
	p.previewPct = clamp(pct, minPreviewPct, maxPreviewPct)
}

func (p *Plugin) savePreviewPct() {
	if err := state.SetPreviewWidth(p.previewPct); err != nil {
		p.ctx.Logger.Warn("notes: save preview width failed", "error", err)
	}
}

// IsFocused returns whether the plugin is focused.
func (p *Plugin) IsFocused() bool { return p.focused }

// SetFocused sets the focus state.
func (p *Plugin) SetFocused(f bool) { p.focused = f }

// ConsumesTextInput is true while a dialog is open; dialogs take every key.
func (p *Plugin) ConsumesTextInput() bool { return p.form != nil || p.del != nil }

// Busy reports whether a load or a mutation is in flight.
func (p *Plugin) Busy() bool {
	return p.pendingLoads > 0 ||
		(p.form != nil && p.form.state.Busy()) ||
		(p.del != nil && p.del.state.Busy())
}

// FocusContext returns the current focus context.
func (p *Plugin) FocusContext() string {
	switch {
	case p.form != nil:
		return keymap.ContextNotesForm
	case p.del != nil:
		return keymap.ContextNotesDelete
	case len(p.notes) == 0:
		return keymap.ContextNotesEmpty
	case p.activePane == panePreview && p.previewVisible():
		return keymap.ContextNotesPreview
	}
	return keymap.ContextNotesList
}

// Commands returns the available commands for the current context.
func (p *Plugin) Commands() []plugin.Command {
	ctx := p.FocusContext()
	switch ctx {
	case keymap.ContextNotesForm:
		return []plugin.Command{
			{ID: "save", Name: "Save", Description: "Save the note", Category: plugin.CategoryEdit, Context: ctx, Priority: 1},
			{ID: "next-field", Name: "Next", Description: "Next field", Category: plugin.CategoryNavigation, Context: ctx, Priority: 2},
			{ID: "cancel", Name: "Cancel", Description: "Discard changes", Category: plugin.CategoryActions, Context: ctx, Priority: 3},
		}
	case keymap.ContextNotesDelete:
		return []plugin.Command{
			{ID: "delete-confirm", Name: "Delete", Description: "Delete the note", Category: plugin.CategoryActions, Context: ctx, Priority: 1},
			{ID: "cancel", Name: "Cancel", Description: "Keep the note", Category: plugin.CategoryActions, Context: ctx, Priority: 2},
		}
	case keymap.ContextNotesEmpty:
		return []plugin.Command{
			{ID: "new-note", Name: "New", Description: "Add a note", Category: plugin.CategoryActions, Context: ctx, Priority: 1},
		}
	case keymap.ContextNotesPreview:
		return []plugin.Command{
			{ID: "scroll-down", Name: "Scroll", Description: "Scroll the preview", Category: plugin.CategoryNavigation, Context: ctx, Priority: 1},
			{ID: "edit-note", Name: "Edit", Description: "Edit the note", Category: plugin.CategoryEdit, Context: ctx, Priority: 2},
			{ID: "yank-content", Name: "Yank", Description: "Copy the note body", Category: plugin.CategoryActions, Context: ctx, Priority: 3},
			{ID: "switch-pane", Name: "List", Description: "Back to the list", Category: plugin.CategoryNavigation, Context: ctx, Priority: 4},
		}
	}
	return []plugin.Command{
		{ID: "new-note", Name: "New", Description: "Add a note", Category: plugin.CategoryActions, Context: ctx, Priority: 1},
		{ID: "edit-note", Name: "Edit", Description: "Edit the selected note", Category: plugin.CategoryEdit, Context: ctx, Priority: 2},
		{ID: "delete-note", Name: "Delete", Description: "Delete the selected note", Category: plugin.CategoryActions, Context: ctx, Priority: 3},
		{ID: "yank-content", Name: "Yank", Description: "Copy the note body", Category: plugin.CategoryActions, Context: ctx, Priority: 4},
		{ID: "yank-title", Name: "Yank title", Description: "Copy the note title", Category: plugin.CategoryActions, Context: ctx, Priority: 6},
		{ID: "toggle-preview", Name: "Preview", Description: "Show or hide the preview", Category: plugin.CategoryView, Context: ctx, Priority: 5},
		{ID: "switch-pane", Name: "Focus", Description: "Focus the preview", Category: plugin.CategoryNavigation, Context: ctx, Priority: 7},
		{ID: "shrink-preview", Name: "Narrower", Description: "Shrink the preview", Category: plugin.CategoryView, Context: ctx, Priority: 9},
		{ID: "grow-preview", Name: "Wider", Description: "Grow the preview", Category: plugin.CategoryView, Context: ctx, Priority: 9},
	}
}

// Diagnostics reports the sheet, cache and snapshot status.
func (p *Plugin) Diagnostics() []plugin.Diagnostic {
	var out []plugin.Diagnostic

	if p.ctx.Config != nil {
		if missing := p.ctx.Config.Sheet.Missing(); len(missing) > 0 {
			out = append(out, plugin.Diagnostic{ID: "sheet", Status: "warn", Detail: "missing " + strings.Join(missing, ", ")})
		} else {
			out = append(out, plugin.Diagnostic{ID: "sheet", Status: "ok",
				Detail: p.ctx.Config.Sheet.SpreadsheetID + " / " + p.ctx.Config.Sheet.SheetName})
		}
	}

	svc := p.ctx.Service
	info := svc.Cache().Info(notes.NotesKey)
	cache := plugin.Diagnostic{ID: "cache", Status: "ok"}
	switch {
	case info.Loading:
		cache.Detail = "loading"
	case !info.HasData:
		cache.Status, cache.Detail = "warn", "empty"
	default:
		cache.Detail = fmt.Sprintf("%d notes, fetched %s ago, stale after %s",
			len(p.notes), info.Age.Truncate(time.Second), svc.StaleTime())
		if info.Invalidated {
			cache.Detail += ", invalidated"
		}
	}
	out = append(out, cache)

	if p.loadErr != nil {
		out = append(out, plugin.Diagnostic{ID: "load", Status: "error", Detail: errorText(p.loadErr)})
	}

	snap := plugin.Diagnostic{ID: "snapshot", Status: "ok", Detail: "enabled"}
	switch {
	case p.ctx.Snapshot == nil:
		snap.Detail = "disabled"
	case p.fromSnapshot:
		snap.Status = "warn"
		snap.Detail = "showing snapshot from " + p.snapshotAt.Local().Format(time.DateTime)
	}
	out = append(out, snap)

	if p.ctx.Config != nil {
		guard := "off"
		if p.ctx.Config.Notes.VerifyRowPosition {
			guard = "on"
		}
		out = append(out, plugin.Diagnostic{ID: "row-check", Status: "ok", Detail: guard})
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
