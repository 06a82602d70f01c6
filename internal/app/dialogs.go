package app

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/config"
	"github.com/marcus/sheetnotes/internal/modal"
	"github.com/marcus/sheetnotes/internal/mouse"
	"github.com/marcus/sheetnotes/internal/msg"
	"github.com/marcus/sheetnotes/internal/plugin"
	"github.com/marcus/sheetnotes/internal/styles"
	"github.com/marcus/sheetnotes/internal/ui"
)

const themeListID = "themes"

// openDiagnostics builds the diagnostics modal. Sections render live, so
// plugin state changes show while it is open.
func (m *Model) openDiagnostics() {
	m.showDiagnostics = true
	m.diagnosticsMouse = mouse.NewHandler()
	m.diagnosticsModal = modal.New("sheetnotes",
		modal.WithWidth(ui.ModalWidthLarge),
		modal.WithHints(false),
		modal.WithCloseOnBackdropClick(true),
	).
		AddSection(m.diagnosticsPluginsSection()).
		AddSection(modal.Spacer()).
		AddSection(m.diagnosticsSystemSection()).
		AddSection(modal.Spacer()).
		AddSection(modal.Buttons(modal.Btn(" Close ", "close")))
}

func (m *Model) closeDiagnostics() {
	m.showDiagnostics = false
	m.diagnosticsModal = nil
	m.diagnosticsMouse = nil
	m.updateContext()
}

// diagnosticsPluginsSection lists each plugin with its diagnostics, then
// the plugins that failed to start.
func (m *Model) diagnosticsPluginsSection() modal.Section {
	return modal.Custom(func(contentWidth int, focusID, hoverID string) modal.RenderedSection {
		var b strings.Builder
		b.WriteString(styles.Title.Render("Plugins"))
		b.WriteString("\n")

		var plugins []plugin.Plugin
		var unavail map[string]string
		if m.registry != nil {
			plugins = m.registry.Plugins()
			unavail = m.registry.Unavailable()
		}
		for _, p := range plugins {
			fmt.Fprintf(&b, "  %s %s: active\n", styles.StatusCompleted.Render("✓"), p.Name())
			dp, ok := p.(plugin.DiagnosticProvider)
			if !ok {
				continue
			}
			for _, d := range dp.Diagnostics() {
				line := ui.Truncate(fmt.Sprintf("%s: %s", d.ID, d.Detail), max(10, contentWidth-6))
				fmt.Fprintf(&b, "    %s %s\n", statusDot(d.Status), line)
			}
		}

		ids := make([]string, 0, len(unavail))
		for id := range unavail {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "  %s %s: %s\n", styles.StatusBlocked.Render("✗"), id, unavail[id])
		}

		if len(plugins) == 0 && len(unavail) == 0 {
			b.WriteString(styles.Muted.Render("  No plugins registered\n"))
		}
		return modal.RenderedSection{Content: strings.TrimSuffix(b.String(), "\n")}
	}, nil)
}

func statusDot(status string) string {
	switch status {
	case "ok":
		return styles.StatusCompleted.Render("•")
	case "warn", "warning":
		return styles.StatusModified.Render("•")
	case "error":
		return styles.StatusBlocked.Render("•")
	default:
		return styles.Muted.Render("•")
	}
}

func (m *Model) diagnosticsSystemSection() modal.Section {
	return modal.Custom(func(contentWidth int, focusID, hoverID string) modal.RenderedSection {
		var b strings.Builder
		b.WriteString(styles.Title.Render("System"))
		b.WriteString("\n")
		version := m.currentVersion
		if version == "" {
			version = "dev"
		}
		fmt.Fprintf(&b, "  Version: %s\n", styles.Muted.Render(version))
		path := ""
		if m.registry != nil && m.registry.Context() != nil {
			path = m.registry.Context().ConfigPath
		}
		if path == "" {
			path = "(defaults)"
		}
		fmt.Fprintf(&b, "  Config:  %s\n", styles.Muted.Render(ui.Truncate(path, max(10, contentWidth-11))))
		fmt.Fprintf(&b, "  Theme:   %s\n", styles.Muted.Render(styles.GetCurrentThemeName()))
		refresh := "never"
		if !m.lastRefresh.IsZero() {
			refresh = m.lastRefresh.Format("15:04:05")
		}
		fmt.Fprintf(&b, "  Refresh: %s", styles.Muted.Render(refresh))
		return modal.RenderedSection{Content: b.String()}
	}, nil)
}

// openQuitConfirm shows the quit dialog.
func (m *Model) openQuitConfirm() {
	d := ui.NewConfirmDialog("Quit sheetnotes?", "Are you sure you want to quit?")
	d.ConfirmLabel = " Quit "
	d.Variant = modal.VariantDanger
	d.Width = ui.ModalWidthSmall
	m.quit = &quitConfirm{modal: d.ToModal(), mouse: mouse.NewHandler()}
}

// openThemeSwitcher shows the theme list with the current theme selected.
func (m *Model) openThemeSwitcher() {
	ts := &themeSwitcher{
		names:    styles.ListThemes(),
		original: styles.GetCurrentThemeName(),
		mouse:    mouse.NewHandler(),
	}
	ts.previewed = ts.original
	items := make([]modal.ListItem, len(ts.names))
	for i, name := range ts.names {
		items[i] = modal.ListItem{ID: name, Label: name}
		if name == ts.original {
			ts.cursor = i
		}
	}
	ts.modal = modal.New("Select theme",
		modal.WithWidth(ui.ModalWidthSmall),
		modal.WithCloseOnBackdropClick(true),
	).
		AddSection(modal.List(themeListID, items, &ts.cursor, modal.WithMaxVisible(8)))
	m.themes = ts
}

// handleThemeAction previews the theme under the cursor, restores the
// original on cancel, and saves the chosen theme on select.
func (m *Model) handleThemeAction(action string) tea.Cmd {
	ts := m.themes
	switch action {
	case "":
		if ts.cursor >= 0 && ts.cursor < len(ts.names) && ts.names[ts.cursor] != ts.previewed {
			ts.previewed = ts.names[ts.cursor]
			styles.ApplyTheme(ts.previewed)
		}
		return nil
	case "cancel":
		m.themes = nil
		m.applyThemeFromConfig(ts.original)
		return nil
	case themeListID:
		// Mouse click on the list focuses it; nothing to do.
		return nil
	}

	m.themes = nil
	m.cfg.UI.Theme.Name = action
	if action != ts.original {
		m.cfg.UI.Theme.Overrides = nil
	}
	m.applyThemeFromConfig(action)
	if err := m.saveConfig(); err != nil {
		return msg.ShowError("Theme applied but not saved: "+err.Error(), msg.ErrorToastDuration)
	}
	return msg.ShowToast("Theme: "+action, msg.ToastDuration)
}

// saveConfig writes the config to the file it was loaded from.
func (m *Model) saveConfig() error {
	if m.registry != nil && m.registry.Context() != nil && m.registry.Context().ConfigPath != "" {
		return config.SaveTo(m.registry.Context().ConfigPath, m.cfg)
	}
	return config.Save(m.cfg)
}
