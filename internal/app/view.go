package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/sheetnotes/internal/keymap"
	"github.com/marcus/sheetnotes/internal/msg"
	"github.com/marcus/sheetnotes/internal/plugin"
	"github.com/marcus/sheetnotes/internal/styles"
	"github.com/marcus/sheetnotes/internal/ui"
)

const (
	headerHeight = 2
	footerHeight = 1
	minWidth     = 40
	minHeight    = 10
	toastMargin  = 1
	toastMaxW    = 60
)

// View renders the entire application UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.width < minWidth || m.height < minHeight {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			styles.Muted.Render(fmt.Sprintf("Terminal too small (%dx%d)", m.width, m.height)))
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderContent(m.width, m.contentHeight()))
	if m.showFooter {
		b.WriteString("\n")
		b.WriteString(m.renderFooter())
	}
	view := b.String()

	if m.toast != nil {
		view = ui.PlaceBottomRight(view, m.renderToast(), m.width, m.height, toastMargin)
	}

	switch m.activeModal() {
	case ModalHelp:
		return m.renderHelpOverlay(view)
	case ModalDiagnostics:
		return ui.OverlayModal(view, m.diagnosticsModal.Render(m.width, m.height, m.diagnosticsMouse), m.width, m.height)
	case ModalQuitConfirm:
		return ui.OverlayModal(view, m.quit.modal.Render(m.width, m.height, m.quit.mouse), m.width, m.height)
	case ModalThemeSwitcher:
		return ui.OverlayModal(view, m.themes.modal.Render(m.width, m.height, m.themes.mouse), m.width, m.height)
	}
	return view
}

// contentHeight is the space between header and footer.
func (m Model) contentHeight() int {
	h := m.height - headerHeight
	if m.showFooter {
		h -= footerHeight
	}
	return max(0, h)
}

// renderHeader renders the title bar: name and sheet on the left, sync
// indicator and clock on the right.
func (m Model) renderHeader() string {
	title := styles.BarTitle.Render(" ✎ sheetnotes")
	if p := m.ActivePlugin(); p != nil {
		title += styles.BarText.Render(" · " + p.Name())
	}
	if name := m.cfg.Sheet.SheetName; name != "" {
		title += " " + styles.BarChip.Render(name)
	}

	var right []string
	if m.pluginBusy() {
		right = append(right, m.spinner.View()+styles.BarText.Render(" syncing"))
	}
	if m.cfg.UI.ShowClock {
		right = append(right, styles.BarText.Render(m.clock.Format("15:04")))
	}
	rightStr := strings.Join(right, "  ")
	if rightStr != "" {
		rightStr += " "
	}

	spacing := max(1, m.width-lipgloss.Width(title)-lipgloss.Width(rightStr))
	line := title + strings.Repeat(" ", spacing) + rightStr
	return styles.Header.Width(m.width).MaxWidth(m.width).Render(line)
}

// renderContent renders the active plugin's view.
func (m Model) renderContent(width, height int) string {
	p := m.ActivePlugin()
	if p == nil {
		msgText := "No plugins loaded"
		if m.registry != nil {
			for id, reason := range m.registry.Unavailable() {
				msgText = fmt.Sprintf("%s unavailable: %s", id, reason)
				break
			}
		}
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, styles.Muted.Render(msgText))
	}
	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).Render(p.View(width, height))
}

// renderFooter renders key hints and the last refresh time.
func (m Model) renderFooter() string {
	refresh := ""
	if !m.lastRefresh.IsZero() {
		refresh = styles.Muted.Render(fmt.Sprintf("↻ %s", m.lastRefresh.Format("15:04:05")))
	}

	refreshWidth := lipgloss.Width(refresh)
	minSpacing := 2
	hintsStr := renderHintLineTruncated(m.footerHints(), m.width-refreshWidth-minSpacing)

	spacing := max(0, m.width-lipgloss.Width(hintsStr)-refreshWidth)
	footer := hintsStr + strings.Repeat(" ", spacing) + refresh
	return styles.Footer.Width(m.width).MaxWidth(m.width).Render(footer)
}

// renderToast renders the current toast in its level's style.
func (m Model) renderToast() string {
	style := styles.ToastSuccess
	switch m.toast.Level {
	case msg.LevelWarning:
		style = styles.ToastWarning
	case msg.LevelError:
		style = styles.ToastError
	}
	return style.MaxWidth(toastMaxW).Render(ui.Truncate(m.toast.Message, toastMaxW-4))
}

type footerHint struct {
	keys  string
	label string
}

func (m Model) footerHints() []footerHint {
	// Plugin hints first; they're more contextually relevant
	var hints []footerHint
	if p := m.ActivePlugin(); p != nil {
		hints = m.pluginFooterHints(p, m.activeContext)
	}
	return append(hints, m.globalFooterHints()...)
}

func (m Model) globalFooterHints() []footerHint {
	if m.keymap == nil {
		return nil
	}
	keysByCmd := bindingKeysByCommand(m.keymap.BindingsForContext(keymap.ContextGlobal))

	globals := []struct {
		id    string
		label string
	}{
		{id: "refresh", label: "refresh"},
		{id: "toggle-help", label: "help"},
		{id: "quit", label: "quit"},
	}

	var hints []footerHint
	for _, g := range globals {
		keys := keysByCmd[g.id]
		if len(keys) == 0 {
			continue
		}
		hints = append(hints, footerHint{keys: keys[0], label: g.label})
	}
	return hints
}

func (m Model) pluginFooterHints(p plugin.Plugin, context string) []footerHint {
	if context == "" || context == keymap.ContextGlobal || m.keymap == nil {
		return nil
	}

	keysByCmd := bindingKeysByCommand(m.keymap.BindingsForContext(context))

	type cmdWithPriority struct {
		cmd      plugin.Command
		keys     []string
		priority int
	}

	var cmds []cmdWithPriority
	for _, cmd := range p.Commands() {
		if cmd.Context != context {
			continue
		}
		keys := keysByCmd[cmd.ID]
		if len(keys) == 0 {
			continue
		}
		priority := cmd.Priority
		if priority == 0 {
			priority = 99
		}
		cmds = append(cmds, cmdWithPriority{cmd, keys, priority})
	}

	sort.SliceStable(cmds, func(i, j int) bool {
		return cmds[i].priority < cmds[j].priority
	})

	hints := make([]footerHint, 0, len(cmds))
	for _, c := range cmds {
		hints = append(hints, footerHint{
			keys:  formatBindingKeys(c.keys),
			label: c.cmd.Name,
		})
	}
	return hints
}

func bindingKeysByCommand(bindings []keymap.Binding) map[string][]string {
	keysByCmd := make(map[string][]string, len(bindings))
	for _, b := range bindings {
		keysByCmd[b.Command] = append(keysByCmd[b.Command], b.Key)
	}
	return keysByCmd
}

// renderHintLineTruncated renders hints but stops adding when maxWidth is exceeded.
func renderHintLineTruncated(hints []footerHint, maxWidth int) string {
	if len(hints) == 0 || maxWidth <= 0 {
		return ""
	}
	var result string
	separator := "  "
	for _, hint := range hints {
		if hint.keys == "" || hint.label == "" {
			continue
		}
		part := fmt.Sprintf("%s %s", styles.KeyHint.Render(hint.keys), hint.label)
		candidate := part
		if result != "" {
			candidate = result + separator + part
		}
		if lipgloss.Width(candidate) > maxWidth {
			break
		}
		result = candidate
	}
	return result
}

// renderHelpOverlay renders the help modal over content.
func (m Model) renderHelpOverlay(content string) string {
	box := styles.ModalBox.Render(m.buildHelpContent())
	return ui.OverlayModal(content, box, m.width, m.height)
}

// buildHelpContent lists global bindings and those of the plugin's
// current context.
func (m Model) buildHelpContent() string {
	var b strings.Builder

	b.WriteString(styles.ModalTitle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	b.WriteString(styles.Title.Render("Global"))
	b.WriteString("\n")
	m.renderBindingSection(&b, keymap.ContextGlobal)
	b.WriteString("\n")

	if p := m.ActivePlugin(); p != nil {
		ctx := p.FocusContext()
		if ctx != keymap.ContextGlobal && ctx != "" && m.keymap != nil && len(m.keymap.BindingsForContext(ctx)) > 0 {
			b.WriteString(styles.Title.Render(p.Name()))
			b.WriteString("\n")
			m.renderBindingSection(&b, ctx)
			b.WriteString("\n")
		}
	}

	b.WriteString(styles.Subtle.Render("Press ? or esc to close"))
	return b.String()
}

// renderBindingSection renders bindings for a context, one line per command.
func (m Model) renderBindingSection(b *strings.Builder, context string) {
	if m.keymap == nil {
		return
	}
	bindings := m.keymap.BindingsForContext(context)
	keysByCmd := bindingKeysByCommand(bindings)

	seen := make(map[string]bool)
	for _, binding := range bindings {
		if seen[binding.Command] {
			continue
		}
		seen[binding.Command] = true

		padded := fmt.Sprintf("%-11s", formatBindingKeys(keysByCmd[binding.Command]))
		fmt.Fprintf(b, "  %s %s\n", styles.Muted.Render(padded), formatCommandName(binding.Command))
	}
}

// formatBindingKeys formats up to two keys into a display string.
func formatBindingKeys(keys []string) string {
	if len(keys) > 2 {
		keys = keys[:2]
	}
	return strings.Join(keys, ", ")
}

// formatCommandName converts a command ID to a display name.
func formatCommandName(cmd string) string {
	return strings.ReplaceAll(cmd, "-", " ")
}
