// Package mouse maps terminal mouse events onto named screen regions.
package mouse

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	doubleClickWindow = 400 * time.Millisecond
	scrollStep        = 3
)

// Rect is a screen rectangle in cells.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Region is a named clickable area.
type Region struct {
	ID   string
	Rect Rect
	Data any
}

// HitMap holds regions in insertion order. Later regions win on overlap.
type HitMap struct {
	regions []Region
}

// NewHitMap returns an empty hit map.
func NewHitMap() *HitMap {
	return &HitMap{}
}

// Add registers a region.
func (h *HitMap) Add(id string, r Rect, data any) {
	h.regions = append(h.regions, Region{ID: id, Rect: r, Data: data})
}

// AddRect registers a region from raw coordinates.
func (h *HitMap) AddRect(id string, x, y, w, hgt int, data any) {
	h.Add(id, Rect{X: x, Y: y, W: w, H: hgt}, data)
}

// Clear removes all regions.
func (h *HitMap) Clear() {
	h.regions = h.regions[:0]
}

// Test returns the topmost region containing (x, y), or nil.
func (h *HitMap) Test(x, y int) *Region {
	for i := len(h.regions) - 1; i >= 0; i-- {
		if h.regions[i].Rect.Contains(x, y) {
			r := h.regions[i]
			return &r
		}
	}
	return nil
}

// Regions returns a copy of the registered regions.
func (h *HitMap) Regions() []Region {
	out := make([]Region, len(h.regions))
	copy(out, h.regions)
	return out
}

// ActionType classifies a mouse event after hit testing.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionClick
	ActionDoubleClick
	ActionScrollUp
	ActionScrollDown
	ActionDrag
	ActionDragEnd
	ActionHover
)

// MouseAction is the result of HandleMouse.
type MouseAction struct {
	Type   ActionType
	Region *Region
	X, Y   int
	Delta  int // scroll amount, negative is up
	DragDX int
	DragDY int
}

// ClickResult is the result of HandleClick.
type ClickResult struct {
	Region        *Region
	IsDoubleClick bool
}

// Handler tracks click timing and drag state on top of a HitMap.
type Handler struct {
	HitMap *HitMap

	lastClickID   string
	lastClickTime time.Time

	dragging       bool
	dragStartX     int
	dragStartY     int
	dragRegion     string
	dragStartValue int
}

// NewHandler returns a handler with an empty hit map.
func NewHandler() *Handler {
	return &Handler{HitMap: NewHitMap()}
}

// Clear drops all regions.
func (h *Handler) Clear() {
	h.HitMap.Clear()
}

// HandleClick hit-tests a click and detects double clicks on the same region.
func (h *Handler) HandleClick(x, y int) ClickResult {
	region := h.HitMap.Test(x, y)
	if region == nil {
		h.lastClickID = ""
		return ClickResult{}
	}

	now := time.Now()
	double := region.ID == h.lastClickID && now.Sub(h.lastClickTime) < doubleClickWindow
	if double {
		h.lastClickID = ""
		h.lastClickTime = time.Time{}
	} else {
		h.lastClickID = region.ID
		h.lastClickTime = now
	}
	return ClickResult{Region: region, IsDoubleClick: double}
}

// StartDrag begins a drag on region, remembering a caller value such as a width.
func (h *Handler) StartDrag(x, y int, region string, startValue int) {
	h.dragging = true
	h.dragStartX = x
	h.dragStartY = y
	h.dragRegion = region
	h.dragStartValue = startValue
}

// EndDrag stops the current drag.
func (h *Handler) EndDrag() {
	h.dragging = false
	h.dragRegion = ""
	h.dragStartValue = 0
}

func (h *Handler) IsDragging() bool    { return h.dragging }
func (h *Handler) DragRegion() string  { return h.dragRegion }
func (h *Handler) DragStartValue() int { return h.dragStartValue }

// DragDelta returns the offset of (x, y) from the drag origin.
func (h *Handler) DragDelta(x, y int) (int, int) {
	return x - h.dragStartX, y - h.dragStartY
}

// HandleMouse converts a Bubble Tea mouse message into a MouseAction.
func (h *Handler) HandleMouse(msg tea.MouseMsg) MouseAction {
	action := MouseAction{X: msg.X, Y: msg.Y}

	switch msg.Action {
	case tea.MouseActionRelease:
		if h.dragging {
			h.EndDrag()
			action.Type = ActionDragEnd
		}
		return action

	case tea.MouseActionMotion:
		if h.dragging {
			action.Type = ActionDrag
			action.DragDX, action.DragDY = h.DragDelta(msg.X, msg.Y)
			return action
		}
		action.Type = ActionHover
		action.Region = h.HitMap.Test(msg.X, msg.Y)
		return action
	}

	if msg.Action != tea.MouseActionPress {
		return action
	}

	action.Region = h.HitMap.Test(msg.X, msg.Y)
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		action.Type = ActionScrollUp
		action.Delta = -scrollStep
	case tea.MouseButtonWheelDown:
		action.Type = ActionScrollDown
		action.Delta = scrollStep
	case tea.MouseButtonLeft:
		click := h.HandleClick(msg.X, msg.Y)
		if click.Region == nil {
			return action
		}
		action.Region = click.Region
		action.Type = ActionClick
		if click.IsDoubleClick {
			action.Type = ActionDoubleClick
		}
	}
	return action
}
