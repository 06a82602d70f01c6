package plugin

import (
	"log/slog"

	"github.com/marcus/sheetnotes/internal/config"
	"github.com/marcus/sheetnotes/internal/keymap"
	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/snapshot"
)

// Context is shared by every plugin.
type Context struct {
	Config *config.Config
	// ConfigPath is the file the config was loaded from, if any.
	ConfigPath string
	Logger     *slog.Logger
	Keymap     *keymap.Registry

	Service *notes.Service
	// Snapshot is nil when snapshots are disabled or failed to open.
	Snapshot *snapshot.Store
	// SheetKey identifies the configured sheet in snapshots and state.
	SheetKey string
}
