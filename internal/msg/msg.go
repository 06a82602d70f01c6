package msg

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Level selects a toast's styling.
type Level int

const (
	LevelSuccess Level = iota
	LevelWarning
	LevelError
)

// Default toast durations.
const (
	ToastDuration      = 3 * time.Second
	ErrorToastDuration = 5 * time.Second
)

// ToastMsg displays a temporary message.
type ToastMsg struct {
	Message  string
	Duration time.Duration
	Level    Level
}

// ShowToast returns a command to show a success toast.
func ShowToast(message string, duration time.Duration) tea.Cmd {
	return toast(message, duration, LevelSuccess)
}

// ShowWarning returns a command to show a warning toast.
func ShowWarning(message string, duration time.Duration) tea.Cmd {
	return toast(message, duration, LevelWarning)
}

// ShowError returns a command to show an error toast.
func ShowError(message string, duration time.Duration) tea.Cmd {
	return toast(message, duration, LevelError)
}

func toast(message string, duration time.Duration, level Level) tea.Cmd {
	return func() tea.Msg {
		return ToastMsg{Message: message, Duration: duration, Level: level}
	}
}
