package notes

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/modal"
	"github.com/marcus/sheetnotes/internal/mouse"
	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/styles"
	"github.com/marcus/sheetnotes/internal/ui"
)

// deleteConfirm asks before a note is removed. It closes once the delete
// finishes, whatever the outcome.
type deleteConfirm struct {
	note  notes.Note
	state notes.MutationState
	modal *modal.Modal
	mouse *mouse.Handler
}

func newDeleteConfirm(n notes.Note) *deleteConfirm {
	d := ui.NewConfirmDialog("Delete note",
		fmt.Sprintf("Are you sure you want to delete %q? This removes its row from the sheet.", ui.Truncate(n.Title, 40)))
	d.ConfirmLabel = " Delete "
	d.Variant = modal.VariantDanger
	dc := &deleteConfirm{note: n, modal: d.ToModal(), mouse: mouse.NewHandler()}
	dc.modal.AddSection(modal.When(func() bool { return dc.state.Busy() },
		modal.Text(styles.Muted.Render("Deleting..."))))
	return dc
}

func (d *deleteConfirm) handleKey(msg tea.KeyMsg) (string, tea.Cmd) {
	if d.state.Busy() {
		return "", nil
	}
	return d.modal.HandleKey(msg)
}

func (d *deleteConfirm) view(width, height int) string {
	return d.modal.Render(width, height, d.mouse)
}
