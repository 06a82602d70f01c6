// Package snapshot keeps a local SQLite copy of the last rows fetched from
// each sheet, so the note list can be shown before the first network
// round trip completes.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"
)

// Snapshot is one stored copy of a sheet.
type Snapshot struct {
	Sheet     string
	Rows      [][]string
	FetchedAt time.Time
}

// Store handles SQLite operations for snapshots.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; the TUI and a CLI command may share the file.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// DefaultPath returns the snapshot database path under dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "snapshots.db")
}

// SheetKey identifies a sheet across spreadsheets.
func SheetKey(spreadsheetID, sheetName string) string {
	return spreadsheetID + "/" + sheetName
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS snapshots (
    sheet TEXT PRIMARY KEY,
    fetched_at TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    fingerprint TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_rows (
    sheet TEXT NOT NULL,
    position INTEGER NOT NULL,
    cells TEXT NOT NULL,
    PRIMARY KEY (sheet, position)
);
`
	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the stored rows for sheet.
func (s *Store) Save(ctx context.Context, sheet string, rows [][]string, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_rows WHERE sheet = ?`, sheet); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshot_rows (sheet, position, cells) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	d := xxhash.New()
	for i, row := range rows {
		cells, err := sonic.MarshalString(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		_, _ = d.WriteString(cells)
		if _, err := stmt.ExecContext(ctx, sheet, i, cells); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (sheet, fetched_at, row_count, fingerprint)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sheet) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			row_count = excluded.row_count,
			fingerprint = excluded.fingerprint
	`, sheet, fetchedAt.UTC().Format(time.RFC3339Nano), len(rows), strconv.FormatUint(d.Sum64(), 16))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return tx.Commit()
}

// Load returns the stored snapshot for sheet, or nil if there is none.
func (s *Store) Load(ctx context.Context, sheet string) (*Snapshot, error) {
	var fetchedAt string
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, row_count FROM snapshots WHERE sheet = ?`, sheet).Scan(&fetchedAt, &count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	snap := &Snapshot{Sheet: sheet, Rows: make([][]string, 0, count)}
	snap.FetchedAt, _ = time.Parse(time.RFC3339Nano, fetchedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT cells FROM snapshot_rows WHERE sheet = ? ORDER BY position`, sheet)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var row []string
		if err := sonic.UnmarshalString(cells, &row); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		snap.Rows = append(snap.Rows, row)
	}
	return snap, rows.Err()
}

// Delete removes the snapshot for sheet.
func (s *Store) Delete(ctx context.Context, sheet string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshot_rows WHERE sheet = ?`, sheet); err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE sheet = ?`, sheet); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
