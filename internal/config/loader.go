package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configDir  = ".config/sheetnotes"
	configFile = "config.json"
)

// configCandidates are tried in order when no path is given.
var configCandidates = []string{"config.json", "config.yaml", "config.yml"}

// rawConfig is the unmarshaling intermediary for both JSON and YAML.
type rawConfig struct {
	Sheet    rawSheetConfig    `json:"sheet" yaml:"sheet"`
	Notes    rawNotesConfig    `json:"notes" yaml:"notes"`
	Snapshot rawSnapshotConfig `json:"snapshot" yaml:"snapshot"`
	Keymap   rawKeymapConfig   `json:"keymap" yaml:"keymap"`
	UI       rawUIConfig       `json:"ui" yaml:"ui"`
}

type rawSheetConfig struct {
	Endpoint          string   `json:"endpoint" yaml:"endpoint"`
	IntegrationID     string   `json:"integrationId" yaml:"integrationId"`
	SpreadsheetID     string   `json:"spreadsheetId" yaml:"spreadsheetId"`
	SheetName         string   `json:"sheetName" yaml:"sheetName"`
	SheetID           *int     `json:"sheetId" yaml:"sheetId"`
	AccessToken       string   `json:"accessToken" yaml:"accessToken"`
	Timeout           string   `json:"timeout" yaml:"timeout"`
	RequestsPerSecond *float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
}

type rawNotesConfig struct {
	StaleTime         string `json:"staleTime" yaml:"staleTime"`
	VerifyRowPosition *bool  `json:"verifyRowPosition" yaml:"verifyRowPosition"`
	IDScheme          string `json:"idScheme" yaml:"idScheme"`
}

type rawSnapshotConfig struct {
	Enabled *bool  `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

type rawKeymapConfig struct {
	Overrides map[string]string `json:"overrides" yaml:"overrides"`
}

type rawUIConfig struct {
	ShowFooter   *bool          `json:"showFooter" yaml:"showFooter"`
	ShowClock    *bool          `json:"showClock" yaml:"showClock"`
	ShowPreview  *bool          `json:"showPreview" yaml:"showPreview"`
	GlamourStyle string         `json:"glamourStyle" yaml:"glamourStyle"`
	Theme        rawThemeConfig `json:"theme" yaml:"theme"`
}

type rawThemeConfig struct {
	Name      string            `json:"name" yaml:"name"`
	Overrides map[string]string `json:"overrides" yaml:"overrides"`
}

// Load loads configuration from the default location.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from a specific path, then applies the
// .env file in the working directory and the process environment.
// If path is empty, the first of config.json, config.yaml, config.yml
// under ~/.config/sheetnotes is used.
func LoadFrom(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, EnvLookup(".env"))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads configuration from a file only, without the
// environment overlay.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfig()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	var raw rawConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = sonic.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	mergeConfig(cfg, &raw)
	cfg.Snapshot.Path = ExpandPath(cfg.Snapshot.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolvePath returns the config file LoadFrom(path) reads, or the default
// JSON path when no file exists yet.
func ResolvePath(path string) string {
	if path != "" {
		return ExpandPath(path)
	}
	if found := findConfig(); found != "" {
		return found
	}
	return ConfigPath()
}

func findConfig() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	for _, name := range configCandidates {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// mergeConfig merges raw config values into the config.
func mergeConfig(cfg *Config, raw *rawConfig) {
	// Sheet
	if raw.Sheet.Endpoint != "" {
		cfg.Sheet.Endpoint = raw.Sheet.Endpoint
	}
	if raw.Sheet.IntegrationID != "" {
		cfg.Sheet.IntegrationID = raw.Sheet.IntegrationID
	}
	if raw.Sheet.SpreadsheetID != "" {
		cfg.Sheet.SpreadsheetID = raw.Sheet.SpreadsheetID
	}
	if raw.Sheet.SheetName != "" {
		cfg.Sheet.SheetName = raw.Sheet.SheetName
	}
	if raw.Sheet.SheetID != nil {
		cfg.Sheet.SheetID = *raw.Sheet.SheetID
	}
	if raw.Sheet.AccessToken != "" {
		cfg.Sheet.AccessToken = raw.Sheet.AccessToken
	}
	if raw.Sheet.Timeout != "" {
		if d, err := time.ParseDuration(raw.Sheet.Timeout); err == nil {
			cfg.Sheet.Timeout = d
		}
	}
	if raw.Sheet.RequestsPerSecond != nil {
		cfg.Sheet.RequestsPerSecond = *raw.Sheet.RequestsPerSecond
	}

	// Notes
	if raw.Notes.StaleTime != "" {
		if d, err := time.ParseDuration(raw.Notes.StaleTime); err == nil {
			cfg.Notes.StaleTime = d
		}
	}
	if raw.Notes.VerifyRowPosition != nil {
		cfg.Notes.VerifyRowPosition = *raw.Notes.VerifyRowPosition
	}
	if raw.Notes.IDScheme != "" {
		cfg.Notes.IDScheme = raw.Notes.IDScheme
	}

	// Snapshot
	if raw.Snapshot.Enabled != nil {
		cfg.Snapshot.Enabled = *raw.Snapshot.Enabled
	}
	if raw.Snapshot.Path != "" {
		cfg.Snapshot.Path = raw.Snapshot.Path
	}

	// Keymap
	for k, v := range raw.Keymap.Overrides {
		cfg.Keymap.Overrides[k] = v
	}

	// UI
	if raw.UI.ShowFooter != nil {
		cfg.UI.ShowFooter = *raw.UI.ShowFooter
	}
	if raw.UI.ShowClock != nil {
		cfg.UI.ShowClock = *raw.UI.ShowClock
	}
	if raw.UI.ShowPreview != nil {
		cfg.UI.ShowPreview = *raw.UI.ShowPreview
	}
	if raw.UI.GlamourStyle != "" {
		cfg.UI.GlamourStyle = raw.UI.GlamourStyle
	}
	if raw.UI.Theme.Name != "" {
		cfg.UI.Theme.Name = raw.UI.Theme.Name
	}
	if raw.UI.Theme.Overrides != nil {
		cfg.UI.Theme.Overrides = raw.UI.Theme.Overrides
	}
}

// envVar pairs the preferred variable name with the name the web client
// used, which is still honoured.
type envVar struct {
	name     string
	fallback string
}

var (
	envEndpoint      = envVar{"SHEETNOTES_ENDPOINT", ""}
	envIntegrationID = envVar{"SHEETNOTES_INTEGRATION_ID", "NEXT_PUBLIC_APICOINTEGRATION_ID"}
	envSpreadsheetID = envVar{"SHEETNOTES_SPREADSHEET_ID", "NEXT_PUBLIC_SPREADSHEET_ID"}
	envSheetName     = envVar{"SHEETNOTES_SHEET_NAME", "NEXT_PUBLIC_SHEET_NAME"}
	envSheetID       = envVar{"SHEETNOTES_SHEET_ID", "NEXT_PUBLIC_SHEET_ID"}
	envAccessToken   = envVar{"SHEETNOTES_ACCESS_TOKEN", "NEXT_PUBLIC_APICOINTEGRATION_ACCESS_TOKEN"}
)

// EnvLookup returns a lookup over the process environment, falling back
// to the values in dotenvPath. A missing or unreadable file is ignored.
func EnvLookup(dotenvPath string) func(string) (string, bool) {
	var file map[string]string
	if dotenvPath != "" {
		file, _ = godotenv.Read(dotenvPath)
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}
}

// ApplyEnv overrides sheet settings from the environment.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	get := func(v envVar) (string, bool) {
		if s, ok := lookup(v.name); ok && s != "" {
			return s, true
		}
		if v.fallback != "" {
			if s, ok := lookup(v.fallback); ok && s != "" {
				return s, true
			}
		}
		return "", false
	}

	if s, ok := get(envEndpoint); ok {
		cfg.Sheet.Endpoint = s
	}
	if s, ok := get(envIntegrationID); ok {
		cfg.Sheet.IntegrationID = s
	}
	if s, ok := get(envSpreadsheetID); ok {
		cfg.Sheet.SpreadsheetID = s
	}
	if s, ok := get(envSheetName); ok {
		cfg.Sheet.SheetName = s
	}
	if s, ok := get(envSheetID); ok {
		// Unparsable ids are left to fail at the API, like any other bad id.
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			cfg.Sheet.SheetID = n
		}
	}
	if s, ok := get(envAccessToken); ok {
		cfg.Sheet.AccessToken = s
	}
}

// ExpandPath expands ~ to home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ConfigDir returns ~/.config/sheetnotes.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDir)
}

// ConfigPath returns the path to the JSON config file.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, configFile)
}
