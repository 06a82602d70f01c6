package config

import (
	"time"

	"github.com/marcus/sheetnotes/internal/rowstore"
)

// Config is the root configuration structure.
type Config struct {
	Sheet    SheetConfig    `json:"sheet"`
	Notes    NotesConfig    `json:"notes"`
	Snapshot SnapshotConfig `json:"snapshot"`
	Keymap   KeymapConfig   `json:"keymap"`
	UI       UIConfig       `json:"ui"`
}

// SheetConfig identifies the remote sheet. Identifiers have no defaults
// and are not required at startup; a missing one fails on first use.
type SheetConfig struct {
	Endpoint      string `json:"endpoint"`
	IntegrationID string `json:"integrationId"`
	SpreadsheetID string `json:"spreadsheetId"`
	SheetName     string `json:"sheetName"`
	SheetID       int    `json:"sheetId"`
	AccessToken   string `json:"accessToken"`
	// Timeout bounds each request. Zero means none.
	Timeout time.Duration `json:"timeout"`
	// RequestsPerSecond enables client-side rate limiting. Zero disables it.
	RequestsPerSecond float64 `json:"requestsPerSecond"`
}

// NotesConfig configures note behaviour.
type NotesConfig struct {
	StaleTime         time.Duration `json:"staleTime"`
	VerifyRowPosition bool          `json:"verifyRowPosition"`
	IDScheme          string        `json:"idScheme"` // "uuid" or "legacy"
}

// SnapshotConfig configures the local copy of the last fetched rows.
type SnapshotConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"` // supports ~ expansion; empty means next to the config file
}

// KeymapConfig holds key binding overrides.
type KeymapConfig struct {
	Overrides map[string]string `json:"overrides"`
}

// UIConfig configures UI appearance.
type UIConfig struct {
	ShowFooter   bool        `json:"showFooter"`
	ShowClock    bool        `json:"showClock"`
	ShowPreview  bool        `json:"showPreview"`
	GlamourStyle string      `json:"glamourStyle"` // "auto" follows the theme; otherwise a glamour style name or file path
	Theme        ThemeConfig `json:"theme"`
}

// ThemeConfig selects a color theme and per-color overrides.
type ThemeConfig struct {
	Name      string            `json:"name"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Sheet: SheetConfig{
			Endpoint: rowstore.DefaultEndpoint,
		},
		Notes: NotesConfig{
			StaleTime:         5 * time.Second,
			VerifyRowPosition: true,
			IDScheme:          "uuid",
		},
		Snapshot: SnapshotConfig{
			Enabled: true,
		},
		Keymap: KeymapConfig{
			Overrides: make(map[string]string),
		},
		UI: UIConfig{
			ShowFooter:   true,
			ShowClock:    true,
			ShowPreview:  true,
			GlamourStyle: "auto",
			Theme:        ThemeConfig{Name: "default"},
		},
	}
}

// Validate clamps numeric settings. It never rejects missing sheet
// identifiers.
func (c *Config) Validate() error {
	if c.Notes.StaleTime <= 0 {
		c.Notes.StaleTime = 5 * time.Second
	}
	if c.Sheet.Timeout < 0 {
		c.Sheet.Timeout = 0
	}
	if c.Sheet.RequestsPerSecond < 0 {
		c.Sheet.RequestsPerSecond = 0
	}
	if c.Sheet.Endpoint == "" {
		c.Sheet.Endpoint = rowstore.DefaultEndpoint
	}
	if c.UI.Theme.Name == "" {
		c.UI.Theme.Name = "default"
	}
	switch c.Notes.IDScheme {
	case "uuid", "legacy":
	default:
		c.Notes.IDScheme = "uuid"
	}
	return nil
}

// Missing lists the sheet settings that are unset, by config key.
func (s SheetConfig) Missing() []string {
	var out []string
	if s.IntegrationID == "" {
		out = append(out, "sheet.integrationId")
	}
	if s.SpreadsheetID == "" {
		out = append(out, "sheet.spreadsheetId")
	}
	if s.SheetName == "" {
		out = append(out, "sheet.sheetName")
	}
	if s.AccessToken == "" {
		out = append(out, "sheet.accessToken")
	}
	return out
}

// ClientConfig converts the sheet settings for rowstore.New.
func (s SheetConfig) ClientConfig() rowstore.Config {
	return rowstore.Config{
		Endpoint:          s.Endpoint,
		IntegrationID:     s.IntegrationID,
		SpreadsheetID:     s.SpreadsheetID,
		SheetName:         s.SheetName,
		SheetID:           s.SheetID,
		AccessToken:       s.AccessToken,
		Timeout:           s.Timeout,
		RequestsPerSecond: s.RequestsPerSecond,
	}
}
