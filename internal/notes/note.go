// Package notes maps notes onto spreadsheet rows and implements the note
// operations on top of the row store and the query cache.
package notes

import (
	"log/slog"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// TimeLayout is the timestamp format written to the sheet: UTC RFC3339
// with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Column positions of the fixed five-column row contract.
const (
	ColID = iota
	ColTitle
	ColContent
	ColCreatedAt
	ColUpdatedAt
	NumColumns
)

// Note is one row of the sheet.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FormatTime renders t the way it is stored in the sheet.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout and plain RFC3339 (what a user typing into
// the sheet by hand tends to produce). It returns the zero time for
// anything else.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// ToRow returns the note as a five-column row.
func (n Note) ToRow() []string {
	return []string{n.ID, n.Title, n.Content, FormatTime(n.CreatedAt), FormatTime(n.UpdatedAt)}
}

// FromRow maps a row positionally onto a Note. Missing columns become
// empty strings and bad timestamps the zero time; ok is false when the
// row did not match the column contract.
func FromRow(row []string) (n Note, ok bool) {
	col := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	n = Note{ID: col(ColID), Title: col(ColTitle), Content: col(ColContent)}
	created, okCreated := ParseTime(col(ColCreatedAt))
	updated, okUpdated := ParseTime(col(ColUpdatedAt))
	n.CreatedAt, n.UpdatedAt = created, updated
	return n, len(row) >= NumColumns && n.ID != "" && okCreated && okUpdated
}

// FromRows maps every row, in order. Malformed rows are kept, so that
// list positions stay aligned with sheet positions, and logged.
func FromRows(rows [][]string, logger *slog.Logger) []Note {
	out := make([]Note, 0, len(rows))
	for i, row := range rows {
		n, ok := FromRow(row)
		if !ok && logger != nil {
			logger.Warn("notes: malformed row", "position", i, "columns", len(row))
		}
		out = append(out, n)
	}
	return out
}

// IndexOf returns the position of the note with id in list, or -1.
func IndexOf(list []Note, id string) int {
	for i, n := range list {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the note with id in list.
func Find(list []Note, id string) (Note, bool) {
	if i := IndexOf(list, id); i >= 0 {
		return list[i], true
	}
	return Note{}, false
}

// Fingerprint hashes the id order of list. Two lists with the same ids
// in the same order have the same fingerprint.
func Fingerprint(list []Note) uint64 {
	d := xxhash.New()
	for _, n := range list {
		_, _ = d.WriteString(n.ID)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// FingerprintRows is Fingerprint over the id column of raw rows.
func FingerprintRows(rows [][]string) uint64 {
	d := xxhash.New()
	for _, row := range rows {
		if len(row) > ColID {
			_, _ = d.WriteString(row[ColID])
		}
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
