package modal

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/sheetnotes/internal/styles"
)

// Section is one vertical block of a modal.
type Section interface {
	Render(contentWidth int, focusID, hoverID string) RenderedSection
	// Update handles a message while focusID is focused. It returns an
	// action ID when the section wants the modal to act.
	Update(msg tea.Msg, focusID string) (string, tea.Cmd)
}

// RenderedSection is a section's output plus its focusable elements.
type RenderedSection struct {
	Content    string
	Focusables []FocusableInfo
}

// FocusableInfo locates a focusable element relative to its section.
type FocusableInfo struct {
	ID      string
	OffsetX int
	OffsetY int
	Width   int
	Height  int
}

// enterConsumer is implemented by sections that take Enter as input
// rather than as a submit.
type enterConsumer interface {
	consumesEnter(focusID string) bool
}

// measureHeight counts rendered lines, ignoring one trailing newline.
func measureHeight(content string) int {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// --- custom ---

type customSection struct {
	render func(contentWidth int, focusID, hoverID string) RenderedSection
	update func(msg tea.Msg, focusID string) (string, tea.Cmd)
}

// Custom builds a section from functions. update may be nil.
func Custom(
	render func(contentWidth int, focusID, hoverID string) RenderedSection,
	update func(msg tea.Msg, focusID string) (string, tea.Cmd),
) Section {
	return &customSection{render: render, update: update}
}

func (s *customSection) Render(contentWidth int, focusID, hoverID string) RenderedSection {
	return s.render(contentWidth, focusID, hoverID)
}

func (s *customSection) Update(msg tea.Msg, focusID string) (string, tea.Cmd) {
	if s.update == nil {
		return "", nil
	}
	return s.update(msg, focusID)
}

// --- text ---

type textSection struct {
	text string
}

// Text renders wrapped static text.
func Text(text string) Section {
	return &textSection{text: text}
}

func (s *textSection) Render(contentWidth int, _, _ string) RenderedSection {
	return RenderedSection{Content: lipgloss.NewStyle().Width(contentWidth).Render(s.text)}
}

func (s *textSection) Update(tea.Msg, string) (string, tea.Cmd) { return "", nil }

// --- spacer ---

type spacerSection struct{}

// Spacer renders one blank line.
func Spacer() Section { return spacerSection{} }

func (spacerSection) Render(int, string, string) RenderedSection {
	return RenderedSection{Content: " "}
}

func (spacerSection) Update(tea.Msg, string) (string, tea.Cmd) { return "", nil }

// --- conditional ---

type whenSection struct {
	cond    func() bool
	section Section
}

// When shows section only while cond returns true. A hidden section takes
// no space.
func When(cond func() bool, section Section) Section {
	return &whenSection{cond: cond, section: section}
}

func (s *whenSection) Render(contentWidth int, focusID, hoverID string) RenderedSection {
	if !s.cond() {
		return RenderedSection{}
	}
	return s.section.Render(contentWidth, focusID, hoverID)
}

func (s *whenSection) Update(msg tea.Msg, focusID string) (string, tea.Cmd) {
	if !s.cond() {
		return "", nil
	}
	return s.section.Update(msg, focusID)
}

func (s *whenSection) consumesEnter(focusID string) bool {
	ec, ok := s.section.(enterConsumer)
	return ok && s.cond() && ec.consumesEnter(focusID)
}

// --- buttons ---

// ButtonDef describes one button.
type ButtonDef struct {
	Label  string
	ID     string
	Danger bool
}

// BtnOption configures a ButtonDef.
type BtnOption func(*ButtonDef)

// BtnDanger styles the button for destructive actions.
func BtnDanger() BtnOption {
	return func(b *ButtonDef) { b.Danger = true }
}

// Btn defines a button whose ID is returned as the action when pressed.
func Btn(label, id string, opts ...BtnOption) ButtonDef {
	b := ButtonDef{Label: label, ID: id}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

type buttonsSection struct {
	buttons []ButtonDef
}

// Buttons renders a row of buttons.
func Buttons(buttons ...ButtonDef) Section {
	return &buttonsSection{buttons: buttons}
}

func (s *buttonsSection) Render(_ int, focusID, hoverID string) RenderedSection {
	var sb strings.Builder
	focusables := make([]FocusableInfo, 0, len(s.buttons))
	x := 0
	for i, b := range s.buttons {
		if i > 0 {
			sb.WriteString("  ")
			x += 2
		}
		rendered := buttonStyle(b, b.ID == focusID, b.ID == hoverID).Render(b.Label)
		w := ansi.StringWidth(rendered)
		sb.WriteString(rendered)
		focusables = append(focusables, FocusableInfo{ID: b.ID, OffsetX: x, Width: w, Height: 1})
		x += w
	}
	return RenderedSection{Content: sb.String(), Focusables: focusables}
}

func buttonStyle(b ButtonDef, focused, hovered bool) lipgloss.Style {
	switch {
	case b.Danger && focused:
		return styles.ButtonDangerFocused
	case b.Danger && hovered:
		return styles.ButtonDangerHover
	case b.Danger:
		return styles.ButtonDanger
	case focused:
		return styles.ButtonFocused
	case hovered:
		return styles.ButtonHover
	default:
		return styles.Button
	}
}

func (s *buttonsSection) Update(msg tea.Msg, focusID string) (string, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || key.String() != "enter" {
		return "", nil
	}
	for _, b := range s.buttons {
		if b.ID == focusID {
			return b.ID, nil
		}
	}
	return "", nil
}

// --- text input ---

type inputSection struct {
	id    string
	label string
	model *textinput.Model
}

// Input renders a single-line text input.
func Input(id string, model *textinput.Model) Section {
	return InputWithLabel(id, "", model)
}

// InputWithLabel renders a labelled single-line text input.
func InputWithLabel(id, label string, model *textinput.Model) Section {
	return &inputSection{id: id, label: label, model: model}
}

func (s *inputSection) Render(contentWidth int, focusID, _ string) RenderedSection {
	focused := focusID == s.id
	if focused {
		s.model.Focus()
	} else {
		s.model.Blur()
	}
	// border (2) + padding (2) + prompt
	s.model.Width = max(1, contentWidth-4-ansi.StringWidth(s.model.Prompt)-1)

	box := fieldBox(focused).Width(contentWidth - 2).Render(s.model.View())
	return labelled(s.id, s.label, box, contentWidth)
}

func (s *inputSection) Update(msg tea.Msg, focusID string) (string, tea.Cmd) {
	if focusID != s.id {
		return "", nil
	}
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		return "", nil
	}
	var cmd tea.Cmd
	*s.model, cmd = s.model.Update(msg)
	return "", cmd
}

// --- textarea ---

type textareaSection struct {
	id     string
	label  string
	model  *textarea.Model
	height int
}

// Textarea renders a labelled multi-line input of the given height.
// Enter inserts a newline.
func Textarea(id, label string, model *textarea.Model, height int) Section {
	if height < 1 {
		height = 1
	}
	return &textareaSection{id: id, label: label, model: model, height: height}
}

func (s *textareaSection) Render(contentWidth int, focusID, _ string) RenderedSection {
	focused := focusID == s.id
	if focused {
		s.model.Focus()
	} else {
		s.model.Blur()
	}
	s.model.SetWidth(max(1, contentWidth-4))
	s.model.SetHeight(s.height)

	box := fieldBox(focused).Width(contentWidth - 2).Render(s.model.View())
	return labelled(s.id, s.label, box, contentWidth)
}

func (s *textareaSection) Update(msg tea.Msg, focusID string) (string, tea.Cmd) {
	if focusID != s.id {
		return "", nil
	}
	var cmd tea.Cmd
	*s.model, cmd = s.model.Update(msg)
	return "", cmd
}

func (s *textareaSection) consumesEnter(focusID string) bool {
	return focusID == s.id
}

func fieldBox(focused bool) lipgloss.Style {
	border := styles.BorderNormal
	if focused {
		border = styles.BorderActive
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

// labelled stacks an optional label above a field box and registers the
// box as focusable.
func labelled(id, label, box string, contentWidth int) RenderedSection {
	content := box
	offsetY := 0
	if label != "" {
		content = styles.FieldLabel.Render(label) + "\n" + box
		offsetY = 1
	}
	return RenderedSection{
		Content: content,
		Focusables: []FocusableInfo{{
			ID:      id,
			OffsetY: offsetY,
			Width:   contentWidth,
			Height:  measureHeight(box),
		}},
	}
}
