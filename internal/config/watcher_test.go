package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"notes":{"staleTime":"5s"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	ch, closer, err := Watch(path, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer closer.Close()

	if err := os.WriteFile(path, []byte(`{"notes":{"staleTime":"42s"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-ch:
		if cfg.Notes.StaleTime != 42*time.Second {
			t.Errorf("got staleTime %v, want 42s", cfg.Notes.StaleTime)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	ch, closer, err := Watch(path, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer closer.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ch:
		t.Error("unexpected reload for unrelated file")
	case <-time.After(400 * time.Millisecond):
	}
}
