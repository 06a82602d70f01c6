package state

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// State holds persistent user preferences.
type State struct {
	// SelectedNotes maps a sheet key to the id of the note last selected in it.
	SelectedNotes map[string]string `json:"selectedNotes,omitempty"`

	PreviewHidden bool `json:"previewHidden,omitempty"`
	// PreviewWidth is the preview pane width as a percentage, 0 = default.
	PreviewWidth int `json:"previewWidth,omitempty"`
}

var (
	current *State
	mu      sync.RWMutex
	path    string
)

// Init loads state from the default location.
func Init() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return InitWithDir(filepath.Join(home, ".config", "sheetnotes"))
}

// InitWithDir loads state from a specified directory.
// This is primarily for testing to avoid reading real user state.
func InitWithDir(dir string) error {
	path = filepath.Join(dir, "state.json")
	return Load()
}

// Load reads state from disk.
func Load() error {
	mu.Lock()
	defer mu.Unlock()

	current = &State{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil // no state file yet, use defaults
	}
	if err != nil {
		return err
	}

	return sonic.Unmarshal(data, current)
}

// Save writes state to disk.
func Save() error {
	mu.RLock()
	defer mu.RUnlock()

	if current == nil || path == "" {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := sonic.ConfigStd.MarshalIndent(current, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetSelectedNote returns the note id last selected in sheet.
func GetSelectedNote(sheet string) string {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return ""
	}
	return current.SelectedNotes[sheet]
}

// SetSelectedNote saves the selected note for sheet. An empty id clears it.
func SetSelectedNote(sheet, id string) error {
	mu.Lock()
	if current == nil {
		current = &State{}
	}
	if current.SelectedNotes == nil {
		current.SelectedNotes = make(map[string]string)
	}
	if id == "" {
		delete(current.SelectedNotes, sheet)
	} else {
		current.SelectedNotes[sheet] = id
	}
	mu.Unlock()
	return Save()
}

// GetPreviewHidden reports whether the preview pane was hidden.
func GetPreviewHidden() bool {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return false
	}
	return current.PreviewHidden
}

// SetPreviewHidden saves the preview pane visibility.
func SetPreviewHidden(hidden bool) error {
	mu.Lock()
	if current == nil {
		current = &State{}
	}
	current.PreviewHidden = hidden
	mu.Unlock()
	return Save()
}

// GetPreviewWidth returns the saved preview width percentage.
func GetPreviewWidth() int {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return 0
	}
	return current.PreviewWidth
}

// SetPreviewWidth saves the preview width percentage.
func SetPreviewWidth(pct int) error {
	mu.Lock()
	if current == nil {
		current = &State{}
	}
	current.PreviewWidth = pct
	mu.Unlock()
	return Save()
}
