package modal

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/sheetnotes/internal/mouse"
	"github.com/marcus/sheetnotes/internal/styles"
)

type laidOutSection struct {
	content    string
	height     int
	focusables []FocusableInfo
}

// renderSections renders every visible section at width and records the
// focus order.
func (m *Modal) renderSections(width int) []laidOutSection {
	focusID := m.currentFocusID()
	out := make([]laidOutSection, 0, len(m.sections))
	m.focusIDs = m.focusIDs[:0]
	for _, s := range m.sections {
		res := s.Render(width, focusID, m.hoverID)
		h := measureHeight(res.Content)
		if h == 0 {
			continue
		}
		out = append(out, laidOutSection{content: res.Content, height: h, focusables: res.Focusables})
		for _, f := range res.Focusables {
			m.focusIDs = append(m.focusIDs, f.ID)
		}
	}
	if m.focusIdx >= len(m.focusIDs) {
		m.focusIdx = 0
	}
	return out
}

func (m *Modal) buildLayout(screenW, screenH int, handler *mouse.Handler) string {
	maxW := max(1, screenW-4)
	modalW := clamp(m.width, min(MinModalWidth, maxW), maxW)
	contentW := max(1, modalW-ModalPadding)

	headerH := 0
	if m.title != "" {
		headerH = 2
	}
	footerH := 0
	if m.showHints {
		footerH++
	}
	if m.customFooter != "" {
		footerH += strings.Count(m.customFooter, "\n") + 1
	}
	maxViewportH := max(1, max(1, screenH-6)-headerH-footerH)

	sections := m.renderSections(contentW)
	contentH := sumHeights(sections)
	scrolling := contentH > maxViewportH
	if scrolling && contentW > 1 {
		// leave a column for the scrollbar
		sections = m.renderSections(contentW - 1)
		contentH = sumHeights(sections)
		scrolling = contentH > maxViewportH
	}

	m.focusPositions = make(map[string]span, len(m.focusIDs))
	y := 0
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		for _, f := range s.focusables {
			m.focusPositions[f.ID] = span{y: y + f.OffsetY, height: f.Height}
		}
		y += s.height
		parts = append(parts, s.content)
	}

	viewportH := max(1, contentH)
	if scrolling {
		viewportH = maxViewportH
	}
	m.viewportH = viewportH
	m.scrollOffset = clamp(m.scrollOffset, 0, max(0, contentH-viewportH))

	viewport := sliceLines(strings.Join(parts, "\n"), m.scrollOffset, viewportH, scrolling)
	if scrolling {
		viewport = lipgloss.JoinHorizontal(lipgloss.Top, viewport,
			renderScrollbar(contentH, m.scrollOffset, viewportH))
	}

	var inner strings.Builder
	if m.title != "" {
		inner.WriteString(m.titleStyle().Render(m.title))
		inner.WriteString("\n")
	}
	inner.WriteString(viewport)
	if m.showHints {
		inner.WriteString("\n")
		inner.WriteString(styles.Muted.Render(m.hintText()))
	}
	if m.customFooter != "" {
		inner.WriteString("\n")
		inner.WriteString(m.customFooter)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.accent()).
		Background(styles.BgSecondary).
		Padding(1, 2).
		Width(modalW).
		Render(inner.String())

	if handler != nil {
		m.registerRegions(handler, sections, screenW, screenH, lipgloss.Width(box), lipgloss.Height(box), headerH)
	}
	return box
}

// registerRegions adds the backdrop, the body and every visible focusable
// to the hit map. Later regions win, so the backdrop goes first.
func (m *Modal) registerRegions(handler *mouse.Handler, sections []laidOutSection, screenW, screenH, modalW, modalH, headerH int) {
	handler.HitMap.Clear()
	modalX := (screenW - modalW) / 2
	modalY := (screenH - modalH) / 2
	handler.HitMap.AddRect(regionBackdrop, 0, 0, screenW, screenH, nil)
	handler.HitMap.AddRect(regionBody, modalX, modalY, modalW, modalH, nil)

	// border + padding
	contentX := modalX + 3
	contentY := modalY + 2 + headerH

	y := 0
	for _, s := range sections {
		for _, f := range s.focusables {
			absY := contentY + y + f.OffsetY - m.scrollOffset
			if absY < contentY+m.viewportH && absY+f.Height > contentY {
				handler.HitMap.AddRect(f.ID, contentX+f.OffsetX, absY, f.Width, f.Height, f.ID)
			}
		}
		y += s.height
	}
}

func (m *Modal) accent() lipgloss.TerminalColor {
	switch m.variant {
	case VariantDanger:
		return styles.Error
	case VariantWarning:
		return styles.Warning
	case VariantInfo:
		return styles.Info
	}
	return styles.Primary
}

func (m *Modal) titleStyle() lipgloss.Style {
	if m.variant == VariantDefault {
		return styles.ModalTitle
	}
	return styles.ModalTitle.Foreground(m.accent())
}

func (m *Modal) hintText() string {
	if m.primaryAction != "" {
		return "Tab switch · Ctrl+S confirm · Esc cancel"
	}
	return "Tab switch · Enter confirm · Esc cancel"
}

func sumHeights(sections []laidOutSection) int {
	h := 0
	for _, s := range sections {
		h += s.height
	}
	return h
}

// renderScrollbar draws a one-column track with a proportional thumb.
func renderScrollbar(total, offset, height int) string {
	if height < 1 || total < 1 {
		return ""
	}
	thumb := clamp(height*height/total, 1, height)
	thumbPos := clamp(offset*(height-thumb)/max(1, total-height), 0, height-thumb)

	track := lipgloss.NewStyle().Foreground(styles.TextSubtle).Render("│")
	bar := lipgloss.NewStyle().Foreground(styles.TextMuted).Render("┃")
	lines := make([]string, height)
	for i := range lines {
		if i >= thumbPos && i < thumbPos+thumb {
			lines[i] = bar
		} else {
			lines[i] = track
		}
	}
	return strings.Join(lines, "\n")
}

// sliceLines returns height lines of content starting at offset, padding
// with blank lines when pad is set.
func sliceLines(content string, offset, height int, pad bool) string {
	lines := strings.Split(content, "\n")
	offset = clamp(offset, 0, max(0, len(lines)-1))
	lines = lines[offset:]
	if len(lines) > height {
		lines = lines[:height]
	}
	for pad && len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
