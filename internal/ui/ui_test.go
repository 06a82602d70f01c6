package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/modal"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 40, "short"},
		{strings.Repeat("a", 40), 40, strings.Repeat("a", 40)},
		{strings.Repeat("a", 41), 40, strings.Repeat("a", 40) + "..."},
		{"héllo wörld", 5, "héllo..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestLongDate(t *testing.T) {
	tests := map[int]string{
		1:  "October 1st, 2026",
		2:  "October 2nd, 2026",
		3:  "October 3rd, 2026",
		4:  "October 4th, 2026",
		11: "October 11th, 2026",
		12: "October 12th, 2026",
		13: "October 13th, 2026",
		19: "October 19th, 2026",
		21: "October 21st, 2026",
		22: "October 22nd, 2026",
		31: "October 31st, 2026",
	}
	for day, want := range tests {
		d := time.Date(2026, time.October, day, 12, 0, 0, 0, time.UTC)
		if got := LongDate(d); got != want {
			t.Errorf("LongDate(day %d) = %q, want %q", day, got, want)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{-time.Minute, "just now"},
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		if got := RelativeTime(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("RelativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestOneLine(t *testing.T) {
	if got := OneLine("a\n\nb   c\n"); got != "a b c" {
		t.Errorf("OneLine = %q", got)
	}
}

func TestOverlayModal(t *testing.T) {
	out := OverlayModal("line1\nline2\nline3\nline4\nline5", "[M]", 10, 5)
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	if !strings.Contains(lines[2], "[M]") {
		t.Errorf("modal not on middle row: %q", lines[2])
	}

	out = OverlayModal("\x1b[31mred\x1b[0m\n\x1b[32mgreen\x1b[0m", "X", 10, 3)
	if strings.Contains(out, "\x1b[31m") {
		t.Error("background colors should be stripped")
	}
	if !strings.Contains(out, "X") {
		t.Error("modal missing")
	}

	// shorter background than modal position
	if got := spliceRow("hi", "[MODAL]", 10, 7); !strings.Contains(got, "[MODAL]") {
		t.Errorf("spliceRow = %q", got)
	}
}

func TestPlaceBottomRight(t *testing.T) {
	bg := strings.Repeat("..........\n", 4) + ".........."
	out := PlaceBottomRight(bg, "OK", 10, 5, 1)
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[3] != ".......OK." {
		t.Errorf("row 3 = %q", lines[3])
	}
	if lines[4] != ".........." {
		t.Errorf("margin row changed: %q", lines[4])
	}
}

func TestConfirmDialog(t *testing.T) {
	d := NewConfirmDialog("Delete note", "Are you sure you want to delete this note?")
	d.ConfirmLabel = " Delete "
	d.Variant = modal.VariantDanger
	m := d.ToModal()

	out := m.Render(80, 24, nil)
	for _, want := range []string{"Delete note", "Are you sure", "Delete", "Cancel"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q", want)
		}
	}
	if strings.Contains(out, "Esc cancel") {
		t.Error("hint line should be hidden")
	}

	if action, _ := m.HandleKey(tea.KeyMsg{Type: tea.KeyEnter}); action != "confirm" {
		t.Errorf("enter = %q, want confirm", action)
	}
	m.SetFocus("cancel")
	if action, _ := m.HandleKey(tea.KeyMsg{Type: tea.KeyEnter}); action != "cancel" {
		t.Errorf("enter on cancel = %q", action)
	}
}
