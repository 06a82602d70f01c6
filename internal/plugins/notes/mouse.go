package notes

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/mouse"
	"github.com/marcus/sheetnotes/internal/notes"
)

// Hit region IDs
const (
	regionList    = "notes-list"
	regionCard    = "note-card" // Data is the note index
	regionPreview = "notes-preview"
	regionDivider = "preview-divider"
	regionAddNote = "add-note"
)

// handleMouse processes mouse events. Coordinates are relative to the
// plugin's view.
func (p *Plugin) handleMouse(m tea.MouseMsg) (*Plugin, tea.Cmd) {
	if p.form != nil {
		if p.form.state.Busy() {
			return p, nil
		}
		switch p.form.modal.HandleMouse(m, p.form.mouse) {
		case actionSave:
			return p, p.submitForm()
		case actionCancel:
			p.form = nil
		}
		return p, nil
	}
	if p.del != nil {
		if p.del.state.Busy() {
			return p, nil
		}
		switch p.del.modal.HandleMouse(m, p.del.mouse) {
		case "confirm":
			return p, p.confirmDelete()
		case "cancel":
			p.del = nil
		}
		return p, nil
	}

	action := p.mouseHandler.HandleMouse(m)
	switch action.Type {
	case mouse.ActionClick:
		return p.handleMouseClick(action)

	case mouse.ActionDoubleClick:
		p, _ = p.handleMouseClick(action)
		if action.Region != nil && action.Region.ID == regionCard {
			if n, ok := p.selected(); ok {
				return p, p.openForm(modeEdit, n)
			}
		}
		return p, nil

	case mouse.ActionScrollUp, mouse.ActionScrollDown:
		return p.handleMouseScroll(action)

	case mouse.ActionDrag:
		if p.mouseHandler.DragRegion() == regionDivider && p.width > 0 {
			// Dragging the divider right narrows the preview.
			p.setPreviewPct(p.mouseHandler.DragStartValue() - action.DragDX*100/p.width)
		}
		return p, nil

	case mouse.ActionDragEnd:
		p.savePreviewPct()
		return p, nil
	}
	return p, nil
}

func (p *Plugin) handleMouseClick(action mouse.MouseAction) (*Plugin, tea.Cmd) {
	if action.Region == nil {
		return p, nil
	}
	switch action.Region.ID {
	case regionCard:
		if idx, ok := action.Region.Data.(int); ok {
			p.activePane = paneList
			p.selectIndex(idx)
		}
	case regionList:
		p.activePane = paneList
	case regionPreview:
		p.activePane = panePreview
	case regionDivider:
		p.mouseHandler.StartDrag(action.X, action.Y, regionDivider, p.previewPct)
	case regionAddNote:
		return p, p.openForm(modeCreate, notes.Note{})
	}
	return p, nil
}

func (p *Plugin) handleMouseScroll(action mouse.MouseAction) (*Plugin, tea.Cmd) {
	if action.Region == nil {
		return p, nil
	}
	switch action.Region.ID {
	case regionPreview:
		p.scrollPreview(action.Delta)
	case regionList, regionCard:
		if action.Delta < 0 {
			p.selectIndex(p.cursor - 1)
		} else {
			p.selectIndex(p.cursor + 1)
		}
	}
	return p, nil
}
