package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSave_PreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	// A key Save does not manage
	initial := []byte(`{
  "customKey": "should survive",
  "sheet": {"sheetName": "Old"}
}`)
	if err := os.WriteFile(path, initial, 0644); err != nil {
		t.Fatal(err)
	}

	SetTestConfigPath(path)
	defer ResetTestConfigPath()

	cfg := Default()
	cfg.Sheet.SheetName = "Notes"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal saved config: %v", err)
	}
	if string(raw["customKey"]) != `"should survive"` {
		t.Errorf("Save() lost customKey: %s", raw["customKey"])
	}
	for _, k := range []string{"sheet", "notes", "ui", "keymap", "snapshot"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("Save() did not write %q", k)
		}
	}
	if !strings.Contains(string(raw["sheet"]), `"Notes"`) {
		t.Errorf("sheet not updated: %s", raw["sheet"])
	}
}

func TestSave_NeverWritesToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Sheet.AccessToken = "super-secret"

	if err := SaveTo(path, cfg); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "super-secret") {
		t.Error("access token must not be persisted")
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := Default()
			cfg.Sheet.IntegrationID = "int"
			cfg.Sheet.SheetID = 9
			cfg.Sheet.Timeout = 3 * time.Second
			cfg.Notes.StaleTime = time.Minute
			cfg.Notes.VerifyRowPosition = false
			cfg.UI.ShowPreview = false
			cfg.Keymap.Overrides["x"] = "delete-note"

			if err := SaveTo(path, cfg); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}
			got, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if got.Sheet.IntegrationID != "int" || got.Sheet.SheetID != 9 || got.Sheet.Timeout != 3*time.Second {
				t.Errorf("sheet mismatch: %+v", got.Sheet)
			}
			if got.Notes.StaleTime != time.Minute || got.Notes.VerifyRowPosition {
				t.Errorf("notes mismatch: %+v", got.Notes)
			}
			if got.UI.ShowPreview {
				t.Error("showPreview should be false")
			}
			if got.Keymap.Overrides["x"] != "delete-note" {
				t.Errorf("keymap mismatch: %v", got.Keymap.Overrides)
			}
		})
	}
}

func TestSave_WorksWithNoExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.json")

	SetTestConfigPath(path)
	defer ResetTestConfigPath()

	if err := Save(Default()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["sheet"]; !ok {
		t.Error("missing 'sheet' key")
	}
}
