package keymap

// Focus contexts.
const (
	ContextGlobal       = "global"
	ContextNotesList    = "notes-list"
	ContextNotesPreview = "notes-preview"
	ContextNotesForm    = "notes-form"
	ContextNotesDelete  = "notes-delete-modal"
	ContextNotesEmpty   = "notes-empty"
)

// DefaultBindings returns the default key bindings.
func DefaultBindings() []Binding {
	return []Binding{
		// Global bindings
		{Key: "q", Command: "quit", Context: ContextGlobal},
		{Key: "ctrl+c", Command: "quit", Context: ContextGlobal},
		{Key: "?", Command: "toggle-help", Context: ContextGlobal},
		{Key: "!", Command: "toggle-diagnostics", Context: ContextGlobal},
		{Key: "T", Command: "switch-theme", Context: ContextGlobal},
		{Key: "ctrl+h", Command: "toggle-footer", Context: ContextGlobal},
		{Key: "r", Command: "refresh", Context: ContextGlobal},

		// Note list
		{Key: "j", Command: "cursor-down", Context: ContextNotesList},
		{Key: "down", Command: "cursor-down", Context: ContextNotesList},
		{Key: "k", Command: "cursor-up", Context: ContextNotesList},
		{Key: "up", Command: "cursor-up", Context: ContextNotesList},
		{Key: "g", Command: "cursor-top", Context: ContextNotesList},
		{Key: "home", Command: "cursor-top", Context: ContextNotesList},
		{Key: "G", Command: "cursor-bottom", Context: ContextNotesList},
		{Key: "end", Command: "cursor-bottom", Context: ContextNotesList},
		{Key: "n", Command: "new-note", Context: ContextNotesList},
		{Key: "e", Command: "edit-note", Context: ContextNotesList},
		{Key: "enter", Command: "edit-note", Context: ContextNotesList},
		{Key: "d", Command: "delete-note", Context: ContextNotesList},
		{Key: "X", Command: "delete-note", Context: ContextNotesList},
		{Key: "y", Command: "yank-content", Context: ContextNotesList},
		{Key: "Y", Command: "yank-title", Context: ContextNotesList},
		{Key: "tab", Command: "switch-pane", Context: ContextNotesList},
		{Key: "\\", Command: "toggle-preview", Context: ContextNotesList},
		{Key: "<", Command: "shrink-preview", Context: ContextNotesList},
		{Key: ">", Command: "grow-preview", Context: ContextNotesList},

		// Empty list
		{Key: "n", Command: "new-note", Context: ContextNotesEmpty},
		{Key: "enter", Command: "new-note", Context: ContextNotesEmpty},

		// Preview pane
		{Key: "j", Command: "scroll-down", Context: ContextNotesPreview},
		{Key: "down", Command: "scroll-down", Context: ContextNotesPreview},
		{Key: "k", Command: "scroll-up", Context: ContextNotesPreview},
		{Key: "up", Command: "scroll-up", Context: ContextNotesPreview},
		{Key: "ctrl+d", Command: "page-down", Context: ContextNotesPreview},
		{Key: "ctrl+u", Command: "page-up", Context: ContextNotesPreview},
		{Key: "e", Command: "edit-note", Context: ContextNotesPreview},
		{Key: "y", Command: "yank-content", Context: ContextNotesPreview},
		{Key: "tab", Command: "switch-pane", Context: ContextNotesPreview},
		{Key: "esc", Command: "switch-pane", Context: ContextNotesPreview},

		// Create/update form
		{Key: "ctrl+s", Command: "save", Context: ContextNotesForm},
		{Key: "tab", Command: "next-field", Context: ContextNotesForm},
		{Key: "esc", Command: "cancel", Context: ContextNotesForm},

		// Delete confirmation
		{Key: "enter", Command: "delete-confirm", Context: ContextNotesDelete},
		{Key: "y", Command: "delete-confirm", Context: ContextNotesDelete},
		{Key: "esc", Command: "cancel", Context: ContextNotesDelete},
		{Key: "n", Command: "cancel", Context: ContextNotesDelete},
	}
}

// RegisterDefaults adds the default bindings to r.
func RegisterDefaults(r *Registry) {
	for _, b := range DefaultBindings() {
		r.RegisterBinding(b)
	}
}
