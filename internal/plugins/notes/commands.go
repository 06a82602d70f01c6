package notes

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/querycache"
)

// Mutation timeouts. Loads inherit the client timeout.
const (
	loadTimeout     = 30 * time.Second
	mutationTimeout = 30 * time.Second
)

// NotesLoadedMsg carries the result of a list load.
type NotesLoadedMsg struct {
	Notes []notes.Note
	Err   error
}

// formMode says whether the form creates or edits a note.
type formMode int

const (
	modeCreate formMode = iota
	modeEdit
)

// NoteSavedMsg is the result of a create or update.
type NoteSavedMsg struct {
	Mode formMode
	Note notes.Note
	Err  error
}

// NoteDeletedMsg is the result of a delete.
type NoteDeletedMsg struct {
	ID  string
	Err error
}

// cacheEventMsg wraps a query cache notification for the note list.
type cacheEventMsg struct {
	Event querycache.Event
}

// loadNotes lists notes through the cache. force skips the staleness check.
func loadNotes(svc *notes.Service, force bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		var (
			list []notes.Note
			err  error
		)
		if force {
			list, err = svc.Refresh(ctx)
		} else {
			list, err = svc.List(ctx)
		}
		return NotesLoadedMsg{Notes: list, Err: err}
	}
}

func createNote(svc *notes.Service, in notes.Input) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		n, err := svc.Create(ctx, in)
		return NoteSavedMsg{Mode: modeCreate, Note: n, Err: err}
	}
}

func updateNote(svc *notes.Service, id string, in notes.Input) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		n, err := svc.Update(ctx, id, in)
		return NoteSavedMsg{Mode: modeEdit, Note: n, Err: err}
	}
}

func deleteNote(svc *notes.Service, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return NoteDeletedMsg{ID: id, Err: svc.Delete(ctx, id)}
	}
}

// waitForCacheEvent blocks for the next event on ch. It returns nil once
// the subscription is closed, which ends the chain.
func waitForCacheEvent(ch <-chan querycache.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return cacheEventMsg{Event: ev}
	}
}

// isCanceled reports whether err only means a newer load replaced this one.
func isCanceled(err error) bool {
	return errors.Is(err, querycache.ErrCanceled) || errors.Is(err, context.Canceled)
}
