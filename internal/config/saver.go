package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// saveConfig is the marshaling intermediary that uses string durations.
// The access token is never written back.
type saveConfig struct {
	Sheet    saveSheetConfig `json:"sheet" yaml:"sheet"`
	Notes    saveNotesConfig `json:"notes" yaml:"notes"`
	Snapshot SnapshotConfig  `json:"snapshot" yaml:"snapshot"`
	Keymap   rawKeymapConfig `json:"keymap" yaml:"keymap"`
	UI       saveUIConfig    `json:"ui" yaml:"ui"`
}

type saveSheetConfig struct {
	Endpoint          string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	IntegrationID     string  `json:"integrationId,omitempty" yaml:"integrationId,omitempty"`
	SpreadsheetID     string  `json:"spreadsheetId,omitempty" yaml:"spreadsheetId,omitempty"`
	SheetName         string  `json:"sheetName,omitempty" yaml:"sheetName,omitempty"`
	SheetID           int     `json:"sheetId" yaml:"sheetId"`
	Timeout           string  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty"`
}

type saveNotesConfig struct {
	StaleTime         string `json:"staleTime" yaml:"staleTime"`
	VerifyRowPosition bool   `json:"verifyRowPosition" yaml:"verifyRowPosition"`
	IDScheme          string `json:"idScheme" yaml:"idScheme"`
}

type saveUIConfig struct {
	ShowFooter   bool           `json:"showFooter" yaml:"showFooter"`
	ShowClock    bool           `json:"showClock" yaml:"showClock"`
	ShowPreview  bool           `json:"showPreview" yaml:"showPreview"`
	GlamourStyle string         `json:"glamourStyle,omitempty" yaml:"glamourStyle,omitempty"`
	Theme        rawThemeConfig `json:"theme" yaml:"theme"`
}

// toSaveConfig converts Config to the serializable format.
func toSaveConfig(cfg *Config) saveConfig {
	sc := saveConfig{
		Sheet: saveSheetConfig{
			Endpoint:          cfg.Sheet.Endpoint,
			IntegrationID:     cfg.Sheet.IntegrationID,
			SpreadsheetID:     cfg.Sheet.SpreadsheetID,
			SheetName:         cfg.Sheet.SheetName,
			SheetID:           cfg.Sheet.SheetID,
			RequestsPerSecond: cfg.Sheet.RequestsPerSecond,
		},
		Notes: saveNotesConfig{
			StaleTime:         cfg.Notes.StaleTime.String(),
			VerifyRowPosition: cfg.Notes.VerifyRowPosition,
			IDScheme:          cfg.Notes.IDScheme,
		},
		Snapshot: cfg.Snapshot,
		Keymap:   rawKeymapConfig{Overrides: cfg.Keymap.Overrides},
		UI: saveUIConfig{
			ShowFooter:   cfg.UI.ShowFooter,
			ShowClock:    cfg.UI.ShowClock,
			ShowPreview:  cfg.UI.ShowPreview,
			GlamourStyle: cfg.UI.GlamourStyle,
			Theme:        rawThemeConfig{Name: cfg.UI.Theme.Name, Overrides: cfg.UI.Theme.Overrides},
		},
	}
	if cfg.Sheet.Timeout > 0 {
		sc.Sheet.Timeout = cfg.Sheet.Timeout.String()
	}
	return sc
}

// testConfigPath redirects Save in tests.
var testConfigPath string

// SetTestConfigPath makes Save write to path. For tests only.
func SetTestConfigPath(path string) { testConfigPath = path }

// ResetTestConfigPath undoes SetTestConfigPath.
func ResetTestConfigPath() { testConfigPath = "" }

// Save writes the config to ~/.config/sheetnotes/config.json.
func Save(cfg *Config) error {
	path := ConfigPath()
	if testConfigPath != "" {
		path = testConfigPath
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the config to path, as YAML when the extension is
// .yaml or .yml and as JSON otherwise. Top-level keys in an existing
// file that Config does not manage are kept.
func SaveTo(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	isYAML := false
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		isYAML = true
	}
	unmarshal := sonic.Unmarshal
	marshal := func(v any) ([]byte, error) { return sonic.ConfigStd.MarshalIndent(v, "", "  ") }
	if isYAML {
		unmarshal = yaml.Unmarshal
		marshal = yaml.Marshal
	}

	merged := map[string]any{}
	if existing, err := os.ReadFile(path); err == nil {
		// A file we cannot parse is replaced wholesale.
		_ = unmarshal(existing, &merged)
		if merged == nil {
			merged = map[string]any{}
		}
	}

	managed, err := marshal(toSaveConfig(cfg))
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := unmarshal(managed, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		merged[k] = v
	}

	data, err := marshal(merged)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
