package notes

import (
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/keymap"
	"github.com/marcus/sheetnotes/internal/msg"
	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/state"
)

// handleKey routes a key press. Open dialogs get keys first; otherwise
// the key is resolved through the keymap for the current context.
func (p *Plugin) handleKey(k tea.KeyMsg) tea.Cmd {
	if p.form != nil {
		return p.handleFormKey(k)
	}
	if p.del != nil {
		return p.handleDeleteKey(k)
	}
	cmdID, ok := p.ctx.Keymap.Lookup(k.String(), p.FocusContext())
	if !ok {
		return nil
	}
	return p.runCommand(cmdID)
}

func (p *Plugin) handleFormKey(k tea.KeyMsg) tea.Cmd {
	action, cmd := p.form.handleKey(k)
	switch action {
	case actionSave:
		return tea.Batch(cmd, p.submitForm())
	case actionCancel:
		p.form = nil
	}
	return cmd
}

func (p *Plugin) handleDeleteKey(k tea.KeyMsg) tea.Cmd {
	action, cmd := p.del.handleKey(k)
	if action == "" && !p.del.state.Busy() {
		// y and n shortcuts on top of the buttons
		cmdID, _ := p.ctx.Keymap.Lookup(k.String(), keymap.ContextNotesDelete)
		switch cmdID {
		case "delete-confirm":
			action = "confirm"
		case "cancel":
			action = "cancel"
		}
	}
	switch action {
	case "confirm":
		return tea.Batch(cmd, p.confirmDelete())
	case "cancel":
		p.del = nil
	}
	return cmd
}

// runCommand executes a keymap command in the list, preview or empty
// context.
func (p *Plugin) runCommand(id string) tea.Cmd {
	switch id {
	case "cursor-down":
		p.selectIndex(p.cursor + 1)
	case "cursor-up":
		p.selectIndex(p.cursor - 1)
	case "cursor-top":
		p.selectIndex(0)
	case "cursor-bottom":
		p.selectIndex(len(p.notes) - 1)

	case "new-note":
		return p.openForm(modeCreate, notes.Note{})
	case "edit-note":
		if n, ok := p.selected(); ok {
			return p.openForm(modeEdit, n)
		}
	case "delete-note":
		return p.openDelete()
	case "yank-content":
		return p.yank(false)
	case "yank-title":
		return p.yank(true)

	case "switch-pane":
		if p.activePane == panePreview {
			p.activePane = paneList
		} else if p.previewVisible() {
			p.activePane = panePreview
		}
	case "toggle-preview":
		p.previewHidden = !p.previewHidden
		if p.previewHidden {
			p.activePane = paneList
		}
		if err := state.SetPreviewHidden(p.previewHidden); err != nil {
			p.ctx.Logger.Warn("notes: save preview state failed", "error", err)
		}
	case "shrink-preview":
		p.setPreviewPct(p.previewPct - previewStep)
		p.savePreviewPct()
	case "grow-preview":
		p.setPreviewPct(p.previewPct + previewStep)
		p.savePreviewPct()

	case "scroll-down":
		p.scrollPreview(1)
	case "scroll-up":
		p.scrollPreview(-1)
	case "page-down":
		p.scrollPreview(max(1, p.height/2))
	case "page-up":
		p.scrollPreview(-max(1, p.height/2))
	}
	return nil
}

func (p *Plugin) scrollPreview(delta int) {
	p.previewScroll = clamp(p.previewScroll+delta, 0, p.previewMaxScroll)
}

// yank copies the selected note's title or body to the clipboard.
func (p *Plugin) yank(title bool) tea.Cmd {
	n, ok := p.selected()
	if !ok {
		return nil
	}
	text, what := n.Content, "content"
	if title {
		text, what = n.Title, "title"
	}
	if err := clipboard.WriteAll(text); err != nil {
		return msg.ShowError("Copy failed: "+err.Error(), msg.ErrorToastDuration)
	}
	return msg.ShowToast("Yanked note "+what, 2*time.Second)
}
