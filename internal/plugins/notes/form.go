package notes

import (
	"errors"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/modal"
	"github.com/marcus/sheetnotes/internal/mouse"
	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/styles"
	"github.com/marcus/sheetnotes/internal/ui"
)

const (
	fieldTitle   = "title"
	fieldContent = "content"

	actionSave   = "save"
	actionCancel = "cancel"

	contentRows = 8
)

// noteForm is the create/edit dialog. It stays open while the save is in
// flight and after a failed save.
type noteForm struct {
	mode   formMode
	noteID string

	title   textinput.Model
	content textarea.Model

	errs  *notes.ValidationError
	state notes.MutationState

	modal *modal.Modal
	mouse *mouse.Handler
}

func newNoteForm(mode formMode, n notes.Note) *noteForm {
	f := &noteForm{mode: mode, noteID: n.ID, mouse: mouse.NewHandler()}

	f.title = textinput.New()
	f.title.Placeholder = "Note title"
	f.title.Prompt = ""
	f.title.SetValue(n.Title)

	f.content = textarea.New()
	f.content.Placeholder = "Write your note..."
	f.content.ShowLineNumbers = false
	f.content.CharLimit = 0
	f.content.SetValue(n.Content)

	heading := "New note"
	if mode == modeEdit {
		heading = "Edit note"
	}
	f.modal = modal.New(heading,
		modal.WithWidth(ui.ModalWidthLarge),
		modal.WithPrimaryAction(actionSave),
		modal.WithCloseOnBackdropClick(false),
	).
		AddSection(modal.InputWithLabel(fieldTitle, "Title", &f.title)).
		AddSection(f.fieldError(fieldTitle)).
		AddSection(modal.Spacer()).
		AddSection(modal.Textarea(fieldContent, "Content", &f.content, contentRows)).
		AddSection(f.fieldError(fieldContent)).
		AddSection(modal.When(func() bool { return f.state.Busy() }, modal.Text(styles.Muted.Render("Saving...")))).
		AddSection(modal.Spacer()).
		AddSection(modal.Buttons(
			modal.Btn(" Save ", actionSave),
			modal.Btn(" Cancel ", actionCancel),
		))
	return f
}

func (f *noteForm) fieldError(field string) modal.Section {
	return modal.Custom(func(width int, _, _ string) modal.RenderedSection {
		if f.errs == nil {
			return modal.RenderedSection{}
		}
		m := f.errs.Message(field)
		if m == "" {
			return modal.RenderedSection{}
		}
		return modal.RenderedSection{Content: styles.FieldError.Width(width).Render(m)}
	}, nil)
}

// input returns the values typed so far.
func (f *noteForm) input() notes.Input {
	return notes.Input{Title: f.title.Value(), Content: f.content.Value()}
}

// validate records per-field errors and reports whether the input is
// acceptable. Focus moves to the first bad field.
func (f *noteForm) validate() bool {
	f.errs = nil
	err := f.input().Validate()
	if err == nil {
		return true
	}
	var verr *notes.ValidationError
	if errors.As(err, &verr) {
		f.errs = verr
		if len(verr.Fields) > 0 {
			f.modal.SetFocus(verr.Fields[0].Field)
		}
	}
	return false
}

// handleKey routes a key to the modal and returns the resulting action.
func (f *noteForm) handleKey(msg tea.KeyMsg) (string, tea.Cmd) {
	if f.state.Busy() {
		// Frozen while saving so a failed save finds the form still open.
		return "", nil
	}
	return f.modal.HandleKey(msg)
}

// updateInputs forwards non-key messages, such as cursor blinks.
func (f *noteForm) updateInputs(msg tea.Msg) tea.Cmd {
	var c1, c2 tea.Cmd
	f.title, c1 = f.title.Update(msg)
	f.content, c2 = f.content.Update(msg)
	return tea.Batch(c1, c2)
}

func (f *noteForm) view(width, height int) string {
	return f.modal.Render(width, height, f.mouse)
}
