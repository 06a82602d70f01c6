package mouse

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func press(x, y int, b tea.MouseButton) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Button: b, Action: tea.MouseActionPress}
}

func motion(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonNone, Action: tea.MouseActionMotion}
}

func release(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease}
}

// modalHitMap lays out regions the way a centered dialog registers them:
// a full-screen backdrop, the dialog body, then its buttons.
func modalHitMap() *Handler {
	h := NewHandler()
	h.HitMap.AddRect("backdrop", 0, 0, 80, 24, nil)
	h.HitMap.AddRect("body", 20, 8, 40, 8, nil)
	h.HitMap.AddRect("confirm", 24, 13, 10, 1, "confirm")
	h.HitMap.AddRect("cancel", 36, 13, 10, 1, "cancel")
	return h
}

// listHitMap lays out a note list with three cards, a divider and a
// preview pane.
func listHitMap() *Handler {
	h := NewHandler()
	h.HitMap.AddRect("notes-list", 0, 0, 40, 20, nil)
	for i := 0; i < 3; i++ {
		h.HitMap.AddRect("note-card", 0, i*4, 40, 4, i)
	}
	h.HitMap.AddRect("preview-divider", 40, 0, 1, 20, nil)
	h.HitMap.AddRect("notes-preview", 41, 0, 39, 20, nil)
	return h
}

func TestModalHitTesting(t *testing.T) {
	h := modalHitMap()

	tests := []struct {
		name string
		x, y int
		want string
	}{
		{"confirm button", 25, 13, "confirm"},
		{"cancel button last cell", 45, 13, "cancel"},
		{"gap between buttons", 35, 13, "body"},
		{"dialog body", 30, 9, "body"},
		{"body right edge exclusive", 60, 9, "backdrop"},
		{"outside dialog", 2, 2, "backdrop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := h.HitMap.Test(tt.x, tt.y)
			if r == nil || r.ID != tt.want {
				t.Errorf("Test(%d, %d) = %v, want %q", tt.x, tt.y, r, tt.want)
			}
		})
	}

	if r := h.HitMap.Test(80, 24); r != nil {
		t.Errorf("off-screen point hit %q", r.ID)
	}
}

func TestCardRegionsCarryIndex(t *testing.T) {
	h := listHitMap()

	for i := 0; i < 3; i++ {
		r := h.HitMap.Test(5, i*4+1)
		if r == nil || r.ID != "note-card" {
			t.Fatalf("row %d: got %v", i*4+1, r)
		}
		if idx, ok := r.Data.(int); !ok || idx != i {
			t.Errorf("row %d: data = %v, want %d", i*4+1, r.Data, i)
		}
	}

	// Below the last card only the list itself is hit.
	if r := h.HitMap.Test(5, 15); r == nil || r.ID != "notes-list" {
		t.Errorf("empty list area: got %v", r)
	}

	// Hit results are copies.
	r := h.HitMap.Test(5, 1)
	r.Data = 99
	if again := h.HitMap.Test(5, 1); again.Data != 0 {
		t.Errorf("hit map mutated through result: %v", again.Data)
	}
}

func TestClearBetweenRenders(t *testing.T) {
	h := listHitMap()
	h.Clear()
	if n := len(h.HitMap.Regions()); n != 0 {
		t.Fatalf("regions after clear = %d", n)
	}
	if r := h.HitMap.Test(5, 1); r != nil {
		t.Errorf("cleared map still hits %q", r.ID)
	}

	// A re-render with a single card only registers what it drew.
	h.HitMap.AddRect("note-card", 0, 0, 40, 4, 0)
	if n := len(h.HitMap.Regions()); n != 1 {
		t.Errorf("regions after re-render = %d", n)
	}
	if r := h.HitMap.Test(5, 5); r != nil {
		t.Errorf("stale card still hit: %v", r)
	}
}

func TestClickThenDoubleClickOnCard(t *testing.T) {
	h := listHitMap()

	a := h.HandleMouse(press(5, 5, tea.MouseButtonLeft))
	if a.Type != ActionClick || a.Region == nil || a.Region.Data != 1 {
		t.Fatalf("first click = %+v", a)
	}
	a = h.HandleMouse(press(5, 5, tea.MouseButtonLeft))
	if a.Type != ActionDoubleClick {
		t.Errorf("second click type = %v, want double click", a.Type)
	}
	// A third click starts over.
	a = h.HandleMouse(press(5, 5, tea.MouseButtonLeft))
	if a.Type != ActionClick {
		t.Errorf("third click type = %v, want click", a.Type)
	}
}

func TestClickOnEmptySpaceResetsDoubleClick(t *testing.T) {
	h := modalHitMap()
	h.HitMap.Clear()
	h.HitMap.AddRect("confirm", 24, 13, 10, 1, nil)

	h.HandleMouse(press(25, 13, tea.MouseButtonLeft))
	if a := h.HandleMouse(press(0, 0, tea.MouseButtonLeft)); a.Type != ActionNone || a.Region != nil {
		t.Errorf("miss = %+v", a)
	}
	if a := h.HandleMouse(press(25, 13, tea.MouseButtonLeft)); a.Type != ActionClick {
		t.Errorf("click after miss = %v, want click", a.Type)
	}
}

func TestWheelScroll(t *testing.T) {
	h := listHitMap()

	tests := []struct {
		name      string
		msg       tea.MouseMsg
		wantType  ActionType
		wantDelta int
		wantID    string
	}{
		{"up over preview", press(50, 5, tea.MouseButtonWheelUp), ActionScrollUp, -3, "notes-preview"},
		{"down over card", press(5, 9, tea.MouseButtonWheelDown), ActionScrollDown, 3, "note-card"},
		{"shift is ignored", tea.MouseMsg{X: 50, Y: 5, Shift: true, Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress}, ActionScrollDown, 3, "notes-preview"},
		{"horizontal wheel unused", press(50, 5, tea.MouseButtonWheelLeft), ActionNone, 0, "notes-preview"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := h.HandleMouse(tt.msg)
			if a.Type != tt.wantType || a.Delta != tt.wantDelta {
				t.Errorf("got type=%v delta=%d, want type=%v delta=%d", a.Type, a.Delta, tt.wantType, tt.wantDelta)
			}
			if a.Region == nil || a.Region.ID != tt.wantID {
				t.Errorf("region = %v, want %q", a.Region, tt.wantID)
			}
		})
	}
}

func TestDividerDrag(t *testing.T) {
	h := listHitMap()

	a := h.HandleMouse(press(40, 3, tea.MouseButtonLeft))
	if a.Type != ActionClick || a.Region == nil || a.Region.ID != "preview-divider" {
		t.Fatalf("press on divider = %+v", a)
	}
	// The plugin starts the drag with the current preview width.
	h.StartDrag(a.X, a.Y, a.Region.ID, 40)

	a = h.HandleMouse(motion(32, 4))
	if a.Type != ActionDrag || a.DragDX != -8 || a.DragDY != 1 {
		t.Errorf("drag = %+v", a)
	}
	if h.DragRegion() != "preview-divider" || h.DragStartValue() != 40 {
		t.Errorf("drag state = %q %d", h.DragRegion(), h.DragStartValue())
	}

	// Motion keeps reporting drags even outside the divider.
	if a = h.HandleMouse(motion(60, 4)); a.Type != ActionDrag || a.DragDX != 20 {
		t.Errorf("drag over preview = %+v", a)
	}

	if a = h.HandleMouse(release(60, 4)); a.Type != ActionDragEnd {
		t.Errorf("release = %v, want drag end", a.Type)
	}
	if h.IsDragging() || h.DragRegion() != "" || h.DragStartValue() != 0 {
		t.Error("drag state not reset on release")
	}

	if a = h.HandleMouse(motion(60, 4)); a.Type != ActionHover {
		t.Errorf("motion after release = %v, want hover", a.Type)
	}
}

func TestReleaseWithoutDrag(t *testing.T) {
	h := modalHitMap()
	if a := h.HandleMouse(release(25, 13)); a.Type != ActionNone {
		t.Errorf("release = %v, want none", a.Type)
	}
}

func TestHoverOverButtons(t *testing.T) {
	h := modalHitMap()

	a := h.HandleMouse(motion(38, 13))
	if a.Type != ActionHover || a.Region == nil || a.Region.ID != "cancel" {
		t.Errorf("hover = %+v", a)
	}

	h.Clear()
	a = h.HandleMouse(motion(38, 13))
	if a.Type != ActionHover || a.Region != nil {
		t.Errorf("hover with no regions = %+v", a)
	}
}
