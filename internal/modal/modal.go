package modal

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/mouse"
)

// Hit region IDs owned by the modal itself.
const (
	regionBackdrop = "modal-backdrop"
	regionBody     = "modal-body"
)

// Modal is a dialog built from stacked sections. It tracks focus, hover and
// scroll, and registers mouse hit regions each time it renders.
type Modal struct {
	title           string
	variant         Variant
	width           int
	sections        []Section
	showHints       bool
	primaryAction   string
	closeOnBackdrop bool
	customFooter    string

	focusIdx     int
	focusIDs     []string // rebuilt on every render
	hoverID      string
	scrollOffset int

	focusPositions map[string]span
	viewportH      int
}

// span is a vertical extent within the full (unscrolled) content.
type span struct {
	y, height int
}

// New creates a modal.
func New(title string, opts ...Option) *Modal {
	m := &Modal{
		title:           title,
		variant:         VariantDefault,
		width:           DefaultWidth,
		showHints:       true,
		closeOnBackdrop: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddSection appends a section and returns the modal for chaining.
func (m *Modal) AddSection(s Section) *Modal {
	m.sections = append(m.sections, s)
	return m
}

// Render draws the modal centered on a screenW x screenH canvas. When
// handler is non-nil its hit map is replaced with the modal's regions.
func (m *Modal) Render(screenW, screenH int, handler *mouse.Handler) string {
	return m.buildLayout(screenW, screenH, handler)
}

// HandleKey processes a key press and returns the triggered action, if any.
//
// Esc yields "cancel". Tab and shift+tab move focus. Ctrl+s yields the
// primary action. Enter goes to the focused section first; if the section
// does not act, it yields the primary action, or the focused ID when there
// is none. Sections that take Enter as text (textareas) keep it.
func (m *Modal) HandleKey(msg tea.KeyMsg) (string, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return "cancel", nil
	case "tab":
		m.cycleFocus(1)
		return "", nil
	case "shift+tab":
		m.cycleFocus(-1)
		return "", nil
	case "ctrl+s":
		if m.primaryAction != "" {
			return m.primaryAction, nil
		}
		return "", nil
	case "enter":
		focusID := m.currentFocusID()
		if focusID == "" {
			return "", nil
		}
		if m.enterIsInput(focusID) {
			return m.routeToFocused(msg)
		}
		action, cmd := m.routeToFocused(msg)
		if action != "" {
			return action, cmd
		}
		if m.primaryAction != "" {
			return m.primaryAction, cmd
		}
		return focusID, cmd
	}
	return m.routeToFocused(msg)
}

// HandleMouse processes a mouse event and returns the ID of a clicked
// focusable, "cancel" for a dismissing backdrop click, or "".
func (m *Modal) HandleMouse(msg tea.MouseMsg, handler *mouse.Handler) string {
	action := handler.HandleMouse(msg)
	id := ""
	if action.Region != nil {
		id = action.Region.ID
	}

	switch action.Type {
	case mouse.ActionClick, mouse.ActionDoubleClick:
		switch id {
		case "", regionBody:
			return ""
		case regionBackdrop:
			if m.closeOnBackdrop {
				return "cancel"
			}
			return ""
		}
		for i, fid := range m.focusIDs {
			if fid == id {
				m.focusIdx = i
				return id
			}
		}
	case mouse.ActionHover:
		if id == regionBackdrop || id == regionBody {
			id = ""
		}
		m.hoverID = id
	case mouse.ActionScrollUp:
		if id == regionBody {
			m.scrollOffset = max(0, m.scrollOffset-3)
		}
	case mouse.ActionScrollDown:
		if id == regionBody {
			m.scrollOffset += 3 // clamped on next render
		}
	}
	return ""
}

// ScrollBy moves the content by delta lines; clamped on next render.
func (m *Modal) ScrollBy(delta int) { m.scrollOffset += delta }

// SetFocus focuses the element with the given ID, if it was rendered.
func (m *Modal) SetFocus(id string) {
	for i, fid := range m.focusIDs {
		if fid == id {
			m.focusIdx = i
			return
		}
	}
}

// FocusedID returns the focused element ID.
func (m *Modal) FocusedID() string { return m.currentFocusID() }

// HoveredID returns the hovered element ID.
func (m *Modal) HoveredID() string { return m.hoverID }

// Reset clears focus, hover and scroll.
func (m *Modal) Reset() {
	m.focusIdx = 0
	m.hoverID = ""
	m.scrollOffset = 0
}

func (m *Modal) currentFocusID() string {
	if len(m.focusIDs) == 0 {
		return ""
	}
	if m.focusIdx < 0 || m.focusIdx >= len(m.focusIDs) {
		return m.focusIDs[0]
	}
	return m.focusIDs[m.focusIdx]
}

func (m *Modal) cycleFocus(delta int) {
	n := len(m.focusIDs)
	if n == 0 {
		return
	}
	m.focusIdx = ((m.focusIdx+delta)%n + n) % n
	m.revealFocused()
}

// revealFocused scrolls so the focused element is inside the viewport.
func (m *Modal) revealFocused() {
	pos, ok := m.focusPositions[m.currentFocusID()]
	if !ok || m.viewportH <= 0 {
		return
	}
	if pos.y < m.scrollOffset {
		m.scrollOffset = pos.y
	}
	if bottom := pos.y + pos.height; bottom > m.scrollOffset+m.viewportH {
		m.scrollOffset = bottom - m.viewportH
	}
}

func (m *Modal) enterIsInput(focusID string) bool {
	for _, s := range m.sections {
		if ec, ok := s.(enterConsumer); ok && ec.consumesEnter(focusID) {
			return true
		}
	}
	return false
}

// routeToFocused offers msg to each section until one reacts.
func (m *Modal) routeToFocused(msg tea.KeyMsg) (string, tea.Cmd) {
	focusID := m.currentFocusID()
	if focusID == "" {
		return "", nil
	}
	for _, s := range m.sections {
		if action, cmd := s.Update(msg, focusID); action != "" || cmd != nil {
			return action, cmd
		}
	}
	return "", nil
}
