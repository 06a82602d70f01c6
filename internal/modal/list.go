package modal

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/styles"
)

// ListItem is one row of a List section.
type ListItem struct {
	ID    string
	Label string
}

// ListOption configures a List section.
type ListOption func(*listSection)

// WithMaxVisible caps the number of rows shown at once.
func WithMaxVisible(n int) ListOption {
	return func(s *listSection) {
		if n > 0 {
			s.maxVisible = n
		}
	}
}

type listSection struct {
	id         string
	items      []ListItem
	selected   *int
	maxVisible int
	offset     int
}

// List renders a scrolling pick list. The list is a single focusable; up and
// down (or j and k) move *selected, and Enter yields the selected item's ID.
func List(id string, items []ListItem, selected *int, opts ...ListOption) Section {
	s := &listSection{id: id, items: items, selected: selected, maxVisible: 5}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *listSection) Render(contentWidth int, focusID, _ string) RenderedSection {
	if len(s.items) == 0 {
		return RenderedSection{Content: styles.Muted.Render("(no items)")}
	}
	sel := s.selectedIndex()
	visible := min(s.maxVisible, len(s.items))
	if sel < s.offset {
		s.offset = sel
	} else if sel >= s.offset+visible {
		s.offset = sel - visible + 1
	}
	s.offset = clamp(s.offset, 0, len(s.items)-visible)

	cursor := "> "
	if focusID == s.id {
		cursor = "▸ "
	}

	lines := make([]string, 0, visible+2)
	if s.offset > 0 {
		lines = append(lines, styles.Muted.Render("↑ more above"))
	}
	top := len(lines)
	for i := s.offset; i < s.offset+visible; i++ {
		if i == sel {
			lines = append(lines, styles.ListCursor.Render(cursor)+styles.ListItemFocused.Render(s.items[i].Label))
		} else {
			lines = append(lines, "  "+styles.ListItemNormal.Render(s.items[i].Label))
		}
	}
	if s.offset+visible < len(s.items) {
		lines = append(lines, styles.Muted.Render("↓ more below"))
	}

	return RenderedSection{
		Content: strings.Join(lines, "\n"),
		Focusables: []FocusableInfo{{
			ID:      s.id,
			OffsetY: top,
			Width:   contentWidth,
			Height:  visible,
		}},
	}
}

func (s *listSection) Update(msg tea.Msg, focusID string) (string, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || focusID != s.id || s.selected == nil || len(s.items) == 0 {
		return "", nil
	}
	switch key.String() {
	case "up", "k":
		*s.selected = max(0, *s.selected-1)
	case "down", "j":
		*s.selected = min(len(s.items)-1, *s.selected+1)
	case "home", "g":
		*s.selected = 0
	case "end", "G":
		*s.selected = len(s.items) - 1
	case "enter":
		return s.items[s.selectedIndex()].ID, nil
	}
	return "", nil
}

func (s *listSection) selectedIndex() int {
	if s.selected == nil {
		return 0
	}
	return clamp(*s.selected, 0, len(s.items)-1)
}
