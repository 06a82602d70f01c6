package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// Truncate cuts s to at most n characters and appends "..." when it cut
// anything. It counts characters, not display cells.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n < 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// FitWidth truncates s to w display cells with a trailing ellipsis.
func FitWidth(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return runewidth.Truncate(s, w, "…")
}

// OneLine joins the lines of s with spaces.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// LongDate formats t as "October 19th, 2026" in t's location.
func LongDate(t time.Time) string {
	return fmt.Sprintf("%s %d%s, %d", t.Month(), t.Day(), ordinalSuffix(t.Day()), t.Year())
}

func ordinalSuffix(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

// RelativeTime formats the distance from t to now in a short form.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
