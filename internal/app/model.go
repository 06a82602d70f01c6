package app

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/config"
	"github.com/marcus/sheetnotes/internal/keymap"
	"github.com/marcus/sheetnotes/internal/modal"
	"github.com/marcus/sheetnotes/internal/mouse"
	"github.com/marcus/sheetnotes/internal/msg"
	"github.com/marcus/sheetnotes/internal/plugin"
	"github.com/marcus/sheetnotes/internal/styles"
)

// ModalKind identifies an app-level modal with explicit priority ordering.
// Lower values = higher priority (checked first for rendering and input routing).
type ModalKind int

const (
	ModalNone          ModalKind = iota // No modal open
	ModalHelp                           // Help overlay (highest priority)
	ModalDiagnostics                    // Diagnostics/version info
	ModalQuitConfirm                    // Quit confirmation dialog
	ModalThemeSwitcher                  // Theme switcher (lowest priority)
)

// activeModal returns the highest-priority open modal.
func (m *Model) activeModal() ModalKind {
	switch {
	case m.showHelp:
		return ModalHelp
	case m.showDiagnostics:
		return ModalDiagnostics
	case m.quit != nil:
		return ModalQuitConfirm
	case m.themes != nil:
		return ModalThemeSwitcher
	default:
		return ModalNone
	}
}

func (m *Model) hasModal() bool {
	return m.activeModal() != ModalNone
}

// toast is the message shown in the bottom-right corner until expiry.
type toast struct {
	msg.ToastMsg
	expiry time.Time
}

// quitConfirm is the open quit dialog.
type quitConfirm struct {
	modal *modal.Modal
	mouse *mouse.Handler
}

// themeSwitcher is the open theme picker. cursor is shared with the list
// section, so the struct must stay on the heap.
type themeSwitcher struct {
	names    []string
	cursor   int
	original string
	// previewed is the theme currently applied while browsing.
	previewed string
	modal     *modal.Modal
	mouse     *mouse.Handler
}

// Model is the root Bubble Tea model.
type Model struct {
	// Configuration
	cfg           *config.Config
	configUpdates <-chan *config.Config

	// Plugin management
	registry     *plugin.Registry
	activePlugin int

	// Keymap
	keymap        *keymap.Registry
	activeContext string

	// UI state
	width, height   int
	ready           bool
	showHelp        bool
	showDiagnostics bool
	showFooter      bool
	quit            *quitConfirm
	themes          *themeSwitcher

	diagnosticsModal *modal.Modal
	diagnosticsMouse *mouse.Handler

	// Header/footer
	spinner     spinner.Model
	clock       time.Time
	lastRefresh time.Time
	toast       *toast

	currentVersion string
	now            func() time.Time
}

// New creates the root model. configUpdates may be nil when the config
// file is not watched.
func New(reg *plugin.Registry, km *keymap.Registry, cfg *config.Config, currentVersion string, configUpdates <-chan *config.Config) Model {
	if cfg == nil {
		cfg = config.Default()
	}
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = styles.Muted

	m := Model{
		cfg:            cfg,
		configUpdates:  configUpdates,
		registry:       reg,
		keymap:         km,
		activeContext:  keymap.ContextGlobal,
		showFooter:     cfg.UI.ShowFooter,
		spinner:        sp,
		currentVersion: currentVersion,
		now:            time.Now,
	}
	m.clock = m.now()
	m.applyThemeFromConfig(cfg.UI.Theme.Name)
	if p := m.ActivePlugin(); p != nil {
		p.SetFocused(true)
		m.activeContext = p.FocusContext()
	}
	return m
}

// Init starts the clock, the spinner, every plugin and the config watcher.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), m.spinner.Tick, waitForConfig(m.configUpdates)}
	if m.registry != nil {
		cmds = append(cmds, m.registry.Start()...)
	}
	return tea.Batch(cmds...)
}

// ActivePlugin returns the currently focused plugin.
func (m Model) ActivePlugin() plugin.Plugin {
	if m.registry == nil {
		return nil
	}
	plugins := m.registry.Plugins()
	if m.activePlugin < 0 || m.activePlugin >= len(plugins) {
		return nil
	}
	return plugins[m.activePlugin]
}

// pluginBusy reports whether the active plugin has work in flight.
func (m Model) pluginBusy() bool {
	if br, ok := m.ActivePlugin().(plugin.BusyReporter); ok {
		return br.Busy()
	}
	return false
}

// pluginConsumesText reports whether the active plugin wants every key.
func (m Model) pluginConsumesText() bool {
	if tc, ok := m.ActivePlugin().(plugin.TextInputConsumer); ok {
		return tc.ConsumesTextInput()
	}
	return false
}

// ShowToast displays a toast. A zero duration uses the level's default.
func (m *Model) ShowToast(t msg.ToastMsg) {
	d := t.Duration
	if d <= 0 {
		d = msg.ToastDuration
		if t.Level == msg.LevelError {
			d = msg.ErrorToastDuration
		}
	}
	m.toast = &toast{ToastMsg: t, expiry: m.now().Add(d)}
}

// ClearExpiredToast drops the toast once its time is up.
func (m *Model) ClearExpiredToast() {
	if m.toast != nil && !m.now().Before(m.toast.expiry) {
		m.toast = nil
	}
}

// applyThemeFromConfig applies a theme with the configured overrides,
// falling back to the default theme for unknown names.
func (m *Model) applyThemeFromConfig(name string) {
	if name == "" || !styles.IsValidTheme(name) {
		name = "default"
	}
	styles.ApplyThemeWithOverrides(name, m.cfg.UI.Theme.Overrides)
}
