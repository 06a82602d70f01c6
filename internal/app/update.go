package app

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/config"
	"github.com/marcus/sheetnotes/internal/keymap"
	"github.com/marcus/sheetnotes/internal/msg"
	"github.com/marcus/sheetnotes/internal/plugin"
)

// Update handles all messages.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(message)

	case tea.MouseMsg:
		return m.handleMouseMsg(message)

	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height
		m.ready = true
		return m, nil

	case TickMsg:
		m.clock = time.Time(message)
		m.ClearExpiredToast()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(message)
		return m, cmd

	case msg.ToastMsg:
		m.ShowToast(message)
		return m, nil

	case plugin.RefreshMsg:
		m.lastRefresh = m.now()
		return m, m.forwardToPlugins(message)

	case configReloadedMsg:
		cmd := m.applyConfig(message.cfg)
		return m, tea.Batch(cmd, m.forwardToPlugins(plugin.ConfigChangedMsg{}), waitForConfig(m.configUpdates))
	}

	// Plugin messages (load results, cache events) go to every plugin,
	// not just the active one.
	cmd := m.forwardToPlugins(message)
	if !m.hasModal() {
		m.updateContext()
	}
	return m, cmd
}

func (m *Model) forwardToPlugins(message tea.Msg) tea.Cmd {
	if m.registry == nil {
		return nil
	}
	var cmds []tea.Cmd
	plugins := m.registry.Plugins()
	for i, p := range plugins {
		newPlugin, cmd := p.Update(message)
		plugins[i] = newPlugin
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) forwardToActive(message tea.Msg) tea.Cmd {
	p := m.ActivePlugin()
	if p == nil {
		return nil
	}
	newPlugin, cmd := p.Update(message)
	m.registry.Plugins()[m.activePlugin] = newPlugin
	m.updateContext()
	return cmd
}

// handleKeyMsg processes keyboard input. App modals come first, then
// plugins that are editing text, then global bindings, then the plugin.
func (m Model) handleKeyMsg(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.activeModal() {
	case ModalHelp:
		if k.Type == tea.KeyEsc || m.globalCommand(k) == "toggle-help" {
			m.showHelp = false
			m.updateContext()
		}
		return m, nil

	case ModalDiagnostics:
		if m.globalCommand(k) == "toggle-diagnostics" {
			m.closeDiagnostics()
			return m, nil
		}
		if action, _ := m.diagnosticsModal.HandleKey(k); action == "cancel" || action == "close" {
			m.closeDiagnostics()
		}
		return m, nil

	case ModalQuitConfirm:
		switch k.String() {
		case "ctrl+c", "y":
			return m, m.shutdown()
		case "n":
			m.quit = nil
			return m, nil
		}
		switch action, _ := m.quit.modal.HandleKey(k); action {
		case "confirm":
			return m, m.shutdown()
		case "cancel":
			m.quit = nil
		}
		return m, nil

	case ModalThemeSwitcher:
		action, _ := m.themes.modal.HandleKey(k)
		return m, m.handleThemeAction(action)
	}

	if m.pluginConsumesText() && k.String() != "ctrl+c" {
		return m, m.forwardToActive(k)
	}

	switch m.globalCommand(k) {
	case "quit":
		m.openQuitConfirm()
		return m, nil
	case "toggle-help":
		m.showHelp = true
		m.activeContext = keymap.ContextGlobal
		return m, nil
	case "toggle-diagnostics":
		m.openDiagnostics()
		return m, nil
	case "switch-theme":
		m.openThemeSwitcher()
		return m, nil
	case "toggle-footer":
		m.showFooter = !m.showFooter
		return m, nil
	case "refresh":
		return m, Refresh()
	}

	if m.keymap != nil {
		if cmd, ok := m.keymap.Handle(k, m.activeContext); ok {
			return m, cmd
		}
	}
	return m, m.forwardToActive(k)
}

// globalCommand resolves k in the global context.
func (m Model) globalCommand(k tea.KeyMsg) string {
	if m.keymap == nil {
		return ""
	}
	id, _ := m.keymap.Lookup(k.String(), keymap.ContextGlobal)
	return id
}

// handleMouseMsg routes mouse input to the open modal, or to the plugin
// with coordinates relative to the content area.
func (m Model) handleMouseMsg(mm tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch m.activeModal() {
	case ModalHelp:
		if mm.Action == tea.MouseActionPress && mm.Button == tea.MouseButtonLeft {
			m.showHelp = false
			m.updateContext()
		}
		return m, nil
	case ModalDiagnostics:
		if action := m.diagnosticsModal.HandleMouse(mm, m.diagnosticsMouse); action == "close" || action == "cancel" {
			m.closeDiagnostics()
		}
		return m, nil
	case ModalQuitConfirm:
		switch m.quit.modal.HandleMouse(mm, m.quit.mouse) {
		case "confirm":
			return m, m.shutdown()
		case "cancel":
			m.quit = nil
		}
		return m, nil
	case ModalThemeSwitcher:
		return m, m.handleThemeAction(m.themes.modal.HandleMouse(mm, m.themes.mouse))
	}

	if mm.Y < headerHeight || mm.Y >= headerHeight+m.contentHeight() {
		return m, nil
	}
	mm.Y -= headerHeight
	return m, m.forwardToActive(mm)
}

// shutdown stops plugins and quits.
func (m *Model) shutdown() tea.Cmd {
	if m.registry != nil {
		m.registry.Stop()
	}
	return tea.Quit
}

// applyConfig takes a reloaded config. Sheet settings only apply at
// startup, so a change to them is reported instead of applied.
func (m *Model) applyConfig(next *config.Config) tea.Cmd {
	var cmd tea.Cmd
	if next.Sheet != m.cfg.Sheet {
		cmd = msg.ShowWarning("Sheet settings changed; restart to use them", msg.ErrorToastDuration)
	}
	next.Sheet = m.cfg.Sheet
	// Update in place: plugins share this pointer.
	*m.cfg = *next

	m.showFooter = m.cfg.UI.ShowFooter
	m.applyThemeFromConfig(m.cfg.UI.Theme.Name)
	if m.keymap != nil {
		m.keymap.ApplyOverrides(m.cfg.Keymap.Overrides)
	}
	if m.registry != nil && m.registry.Context() != nil {
		if svc := m.registry.Context().Service; svc != nil {
			svc.SetStaleTime(m.cfg.Notes.StaleTime)
			svc.SetVerifyRowPosition(m.cfg.Notes.VerifyRowPosition)
		}
		if l := m.registry.Context().Logger; l != nil {
			l.Info("config reloaded")
		}
	}
	return cmd
}

// updateContext sets activeContext from the focused plugin.
func (m *Model) updateContext() {
	if p := m.ActivePlugin(); p != nil {
		m.activeContext = p.FocusContext()
		return
	}
	m.activeContext = keymap.ContextGlobal
}
