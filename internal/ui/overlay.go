// Package ui holds rendering helpers shared by the app shell and plugins.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// DimStyle greys out content behind a modal. Colors are stripped first
// because faint does not combine reliably with existing SGR codes.
var DimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

func dimLine(s string) string {
	return DimStyle.Render(ansi.Strip(s))
}

func maxLineWidth(lines []string) int {
	w := 0
	for _, l := range lines {
		w = max(w, ansi.StringWidth(l))
	}
	return w
}

// spliceRow places fg at column x over a dimmed copy of bg.
func spliceRow(bg, fg string, x, fgWidth int) string {
	plain := ansi.Strip(bg)
	plainW := ansi.StringWidth(plain)

	var sb strings.Builder
	if x > 0 {
		left := ansi.Truncate(plain, x, "")
		sb.WriteString(DimStyle.Render(left))
		if pad := x - ansi.StringWidth(left); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}
	}
	sb.WriteString(fg)
	if right := x + fgWidth; plainW > right {
		sb.WriteString(DimStyle.Render(ansi.Cut(plain, right, plainW)))
	}
	return sb.String()
}

// OverlayModal centers fg over a dimmed background of the given size.
func OverlayModal(background, fg string, width, height int) string {
	bg := strings.Split(background, "\n")
	for len(bg) < height {
		bg = append(bg, "")
	}
	lines := strings.Split(fg, "\n")
	fgW := maxLineWidth(lines)
	x := max(0, (width-fgW)/2)
	y := max(0, (height-len(lines))/2)

	out := make([]string, height)
	for row := range out {
		if i := row - y; i >= 0 && i < len(lines) {
			out[row] = spliceRow(bg[row], lines[i], x, fgW)
		} else {
			out[row] = dimLine(bg[row])
		}
	}
	return strings.Join(out, "\n")
}

// PlaceBottomRight draws fg over the bottom-right corner of background
// without dimming anything, leaving margin rows and columns free. Used for
// toasts.
func PlaceBottomRight(background, fg string, width, height, margin int) string {
	bg := strings.Split(background, "\n")
	for len(bg) < height {
		bg = append(bg, "")
	}
	lines := strings.Split(fg, "\n")
	fgW := maxLineWidth(lines)
	x := max(0, width-fgW-margin)
	y := max(0, height-len(lines)-margin)

	for i, l := range lines {
		row := y + i
		if row >= len(bg) {
			break
		}
		line := bg[row]
		lineW := ansi.StringWidth(line)
		left := ansi.Truncate(line, x, "")
		if pad := x - ansi.StringWidth(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		right := ""
		if end := x + fgW; lineW > end {
			right = ansi.Cut(line, end, lineW)
		}
		bg[row] = left + l + right
	}
	return strings.Join(bg[:height], "\n")
}
