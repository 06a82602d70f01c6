package notes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/styles"
	"github.com/marcus/sheetnotes/internal/ui"
)

const (
	// minSplitWidth is the narrowest view that still gets a preview pane.
	minSplitWidth = 70

	cardTitleLimit = 40
	cardBodyLimit  = 210
)

// View renders the plugin.
func (p *Plugin) View(width, height int) string {
	p.width, p.height = width, height
	p.mouseHandler.Clear()

	var content string
	switch {
	case !p.loaded && p.loadErr != nil && len(p.notes) == 0:
		content = p.renderEmpty(width, height)
	case !p.loaded:
		content = p.renderCentered(width, height, styles.Muted.Render("Loading notes..."))
	case len(p.notes) == 0:
		content = p.renderEmpty(width, height)
	default:
		content = p.renderMain(width, height)
	}

	switch {
	case p.form != nil:
		content = ui.OverlayModal(content, p.form.view(width, height), width, height)
	case p.del != nil:
		content = ui.OverlayModal(content, p.del.view(width, height), width, height)
	}

	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).Render(content)
}

func (p *Plugin) renderCentered(width, height int, block string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, block)
}

// renderEmpty shows the add-note prompt, plus the load error if there is
// one. The button is a click target.
func (p *Plugin) renderEmpty(width, height int) string {
	lines := []string{styles.Title.Render("No notes yet")}
	if p.loadErr != nil {
		lines = append(lines,
			styles.FieldError.Width(min(60, max(10, width-4))).Align(lipgloss.Center).
				Render("Couldn't load notes: "+errorText(p.loadErr)),
			styles.Muted.Render("Press r to retry"))
	} else {
		lines = append(lines, styles.Muted.Render("Notes are stored as rows in your sheet."))
	}
	button := styles.ButtonFocused.Render("+ Add new note")
	lines = append(lines, "", button)

	block := lipgloss.JoinVertical(lipgloss.Center, lines...)
	blockW, blockH := lipgloss.Width(block), lipgloss.Height(block)
	btnW := lipgloss.Width(button)
	x := max(0, (width-blockW)/2) + (blockW-btnW)/2
	y := max(0, (height-blockH)/2) + blockH - 1
	p.mouseHandler.HitMap.AddRect(regionAddNote, x, y, btnW, 1, nil)

	return p.renderCentered(width, height, block)
}

// splitWidths returns the list and preview widths; one column between
// them is the divider.
func (p *Plugin) splitWidths(width int) (listW, previewW int) {
	if !p.previewVisible() {
		return width, 0
	}
	previewW = width * p.previewPct / 100
	listW = width - previewW - 1
	return listW, previewW
}

func (p *Plugin) renderMain(width, height int) string {
	listW, previewW := p.splitWidths(width)
	list := p.renderList(listW, height)
	if previewW == 0 {
		return list
	}

	p.mouseHandler.HitMap.AddRect(regionDivider, listW, 0, 1, height, nil)
	p.mouseHandler.HitMap.AddRect(regionPreview, listW+1, 0, previewW, height, nil)

	divider := styles.Subtle.Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, list, divider, p.renderPreview(previewW, height))
}

// renderList draws a status line and as many cards as fit, keeping the
// cursor card on screen.
func (p *Plugin) renderList(width, height int) string {
	p.mouseHandler.HitMap.AddRect(regionList, 0, 0, width, height, nil)

	status := p.statusLine(width)
	avail := max(1, height-1)

	cards := make([]string, len(p.notes))
	heights := make([]int, len(p.notes))
	for i, n := range p.notes {
		cards[i] = p.renderCard(n, i == p.cursor, width)
		heights[i] = lipgloss.Height(cards[i])
	}
	p.ensureCursorVisible(heights, avail)

	var b strings.Builder
	b.WriteString(status)
	y := 1
	for i := p.scrollOff; i < len(cards) && y-1 < avail; i++ {
		h := heights[i]
		p.mouseHandler.HitMap.AddRect(regionCard, 0, y, width, min(h, avail-(y-1)), i)
		b.WriteString("\n")
		b.WriteString(cards[i])
		y += h
	}

	lines := strings.Split(b.String(), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

// ensureCursorVisible adjusts scrollOff so the cursor card fits in avail
// lines, given each card's height.
func (p *Plugin) ensureCursorVisible(heights []int, avail int) {
	if len(heights) == 0 {
		p.scrollOff = 0
		return
	}
	p.cursor = clamp(p.cursor, 0, len(heights)-1)
	p.scrollOff = clamp(p.scrollOff, 0, len(heights)-1)
	if p.cursor < p.scrollOff {
		p.scrollOff = p.cursor
	}
	for p.scrollOff < p.cursor && sumRange(heights, p.scrollOff, p.cursor) > avail {
		p.scrollOff++
	}
}

func sumRange(heights []int, from, to int) int {
	total := 0
	for i := from; i <= to; i++ {
		total += heights[i]
	}
	return total
}

func (p *Plugin) statusLine(width int) string {
	parts := []string{fmt.Sprintf("%d notes", len(p.notes))}
	if len(p.notes) == 1 {
		parts[0] = "1 note"
	}
	if p.fromSnapshot {
		parts = append(parts, "offline copy from "+ui.RelativeTime(p.snapshotAt, p.now()))
	}
	if p.pendingLoads > 0 {
		parts = append(parts, "refreshing...")
	}
	line := styles.Muted.Render(ui.FitWidth(strings.Join(parts, " · "), width))
	if p.loadErr != nil && p.pendingLoads == 0 {
		line += styles.FieldError.Render(ui.FitWidth(" · last refresh failed", max(0, width-lipgloss.Width(line))))
	}
	return line
}

// renderCard draws one note: truncated title, one-line excerpt and the
// creation date.
func (p *Plugin) renderCard(n notes.Note, selected bool, width int) string {
	style := styles.Card
	if selected {
		style = styles.CardSelected
	}
	// border and padding
	inner := max(1, width-4)

	title := n.Title
	if title == "" {
		title = "(untitled)"
	}
	body := ui.Truncate(ui.OneLine(n.Content), cardBodyLimit)

	date := "undated"
	if !n.CreatedAt.IsZero() {
		date = ui.LongDate(n.CreatedAt.Local())
	}
	meta := styles.CardMeta.Render(date)
	if p.form != nil && p.form.state.Busy() && p.form.noteID == n.ID {
		meta += styles.CardPending.Render(" · saving")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.CardTitle.Render(ui.FitWidth(ui.Truncate(title, cardTitleLimit), inner)),
		styles.CardBody.Width(inner).Render(body),
		meta,
	)
	return style.Width(max(1, width-2)).Render(content)
}

// renderPreview draws the selected note with its body rendered as markdown.
func (p *Plugin) renderPreview(width, height int) string {
	panel := styles.PanelInactive
	if p.activePane == panePreview {
		panel = styles.PanelActive
	}
	innerW := max(1, width-4)
	innerH := max(1, height-2)

	n, ok := p.selected()
	if !ok {
		return panel.Width(max(1, width-2)).Height(innerH).Render("")
	}

	header := []string{styles.Title.Render(ui.FitWidth(n.Title, innerW))}
	var meta []string
	if !n.CreatedAt.IsZero() {
		meta = append(meta, "Created "+ui.LongDate(n.CreatedAt.Local()))
	}
	if !n.UpdatedAt.IsZero() {
		meta = append(meta, "Updated "+ui.RelativeTime(n.UpdatedAt, p.now()))
	}
	if len(meta) > 0 {
		header = append(header, styles.Muted.Render(ui.FitWidth(strings.Join(meta, " · "), innerW)))
	}
	header = append(header, styles.Subtle.Render(strings.Repeat("─", innerW)))

	glamourStyle := ""
	if p.ctx.Config != nil {
		glamourStyle = p.ctx.Config.UI.GlamourStyle
	}
	body := p.md.Render(renderKey{
		id:      n.ID,
		updated: notes.FormatTime(n.UpdatedAt),
		content: n.Content,
	}, resolveStyle(glamourStyle), innerW)

	bodyLines := strings.Split(body, "\n")
	bodyH := max(1, innerH-len(header))
	p.previewMaxScroll = max(0, len(bodyLines)-bodyH)
	p.previewScroll = clamp(p.previewScroll, 0, p.previewMaxScroll)
	visible := bodyLines[p.previewScroll:min(len(bodyLines), p.previewScroll+bodyH)]

	content := strings.Join(append(header, visible...), "\n")
	return panel.Width(max(1, width-2)).Height(innerH).MaxHeight(height).Render(content)
}
