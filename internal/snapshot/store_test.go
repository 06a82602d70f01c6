package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "snapshots.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoad_Missing(t *testing.T) {
	s := newTestStore(t)
	snap, err := s.Load(context.Background(), "none")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot, got %+v", snap)
	}
}

func TestSaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 19, 10, 0, 0, 5, time.UTC)
	rows := [][]string{
		{"a", "Groceries", "Milk, eggs", "2026-10-19T10:00:00.000Z", "2026-10-19T10:00:00.000Z"},
		{"b", "short"},
		{},
	}

	if err := s.Save(ctx, "sheet/Notes", rows, at); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap, err := s.Load(ctx, "sheet/Notes")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snap.FetchedAt.Equal(at) {
		t.Errorf("FetchedAt = %v, want %v", snap.FetchedAt, at)
	}
	if len(snap.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(snap.Rows))
	}
	if snap.Rows[0][1] != "Groceries" || len(snap.Rows[1]) != 2 || len(snap.Rows[2]) != 0 {
		t.Errorf("rows not preserved: %#v", snap.Rows)
	}
}

func TestSave_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "k", [][]string{{"a"}, {"b"}, {"c"}}, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "k", [][]string{{"z"}}, time.Now()); err != nil {
		t.Fatal(err)
	}
	snap, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Rows) != 1 || snap.Rows[0][0] != "z" {
		t.Errorf("rows = %#v, want [[z]]", snap.Rows)
	}
}

func TestSheetsAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.Save(ctx, SheetKey("s1", "Notes"), [][]string{{"one"}}, time.Now())
	_ = s.Save(ctx, SheetKey("s2", "Notes"), [][]string{{"two"}}, time.Now())

	if err := s.Delete(ctx, SheetKey("s1", "Notes")); err != nil {
		t.Fatal(err)
	}
	if snap, _ := s.Load(ctx, SheetKey("s1", "Notes")); snap != nil {
		t.Errorf("s1 should be gone")
	}
	snap, _ := s.Load(ctx, SheetKey("s2", "Notes"))
	if snap == nil || snap.Rows[0][0] != "two" {
		t.Errorf("s2 = %+v", snap)
	}
}
