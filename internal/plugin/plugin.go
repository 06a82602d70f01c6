package plugin

import tea "github.com/charmbracelet/bubbletea"

// Plugin is a screen hosted by the app shell.
type Plugin interface {
	ID() string
	Name() string
	Icon() string
	Init(ctx *Context) error
	Start() tea.Cmd
	Stop()
	Update(msg tea.Msg) (Plugin, tea.Cmd)
	View(width, height int) string
	IsFocused() bool
	SetFocused(bool)
	Commands() []Command
	FocusContext() string
}

// TextInputConsumer is implemented by plugins that sometimes need every
// printable key, so app-level shortcuts must stand aside.
type TextInputConsumer interface {
	ConsumesTextInput() bool
}

// BusyReporter is implemented by plugins with work in flight, which the
// app shows as a progress indicator.
type BusyReporter interface {
	Busy() bool
}

// Category groups commands in the help overlay.
type Category string

const (
	CategoryNavigation Category = "Navigation"
	CategoryActions    Category = "Actions"
	CategoryView       Category = "View"
	CategoryEdit       Category = "Edit"
	CategorySystem     Category = "System"
)

// Command is a keybinding command exposed by a plugin.
type Command struct {
	ID          string // e.g. "new-note"
	Name        string // short footer label
	Description string
	Category    Category
	Context     string // activation context
	Priority    int    // footer order; 1 is highest, 0 is treated as 99
}

// DiagnosticProvider is implemented by plugins that expose diagnostics.
type DiagnosticProvider interface {
	Diagnostics() []Diagnostic
}

// Diagnostic is one line of the diagnostics modal.
type Diagnostic struct {
	ID     string
	Status string // "ok", "warn" or "error"
	Detail string
}

// PluginFocusedMsg is sent to a plugin when it becomes active.
type PluginFocusedMsg struct{}

// RefreshMsg asks plugins to reload their data from the source.
type RefreshMsg struct{}

// ConfigChangedMsg is sent after the config file was reloaded. The shared
// Context.Config already holds the new values.
type ConfigChangedMsg struct{}
