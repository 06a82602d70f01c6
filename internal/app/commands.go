package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetnotes/internal/config"
	"github.com/marcus/sheetnotes/internal/plugin"
)

// TickMsg is sent every second for clock and toast updates.
type TickMsg time.Time

// configReloadedMsg carries a config re-read after the file changed.
type configReloadedMsg struct {
	cfg *config.Config
}

// tickCmd returns a command that sends TickMsg every second.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Refresh returns a command that asks plugins to reload.
func Refresh() tea.Cmd {
	return func() tea.Msg {
		return plugin.RefreshMsg{}
	}
}

// waitForConfig blocks until the watcher delivers a new config. It returns
// nil when there is no watcher or it has stopped.
func waitForConfig(ch <-chan *config.Config) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-ch
		if !ok || cfg == nil {
			return nil
		}
		return configReloadedMsg{cfg: cfg}
	}
}
