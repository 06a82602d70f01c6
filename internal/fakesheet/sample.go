package fakesheet

import (
	"fmt"
	"time"
)

// sampleTimeLayout matches what the notes service writes.
const sampleTimeLayout = "2006-01-02T15:04:05.000Z"

var sampleNotes = []struct{ title, content string }{
	{"Welcome", "# Welcome\n\nThese notes live in a **fake sheet**. Edit or delete them freely."},
	{"Groceries", "- milk\n- eggs\n- coffee"},
	{"Standup", "Yesterday: row store client.\nToday: cache invalidation.\nBlockers: none."},
	{"Reading list", "1. The Go Programming Language\n2. Designing Data-Intensive Applications"},
	{"Ideas", "Try the `>` and `<` keys to resize the preview."},
}

// SampleRows returns n note rows with ids sample-1..sample-n, created one
// hour apart and ending at now.
func SampleRows(n int, now time.Time) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		s := sampleNotes[i%len(sampleNotes)]
		title := s.title
		if i >= len(sampleNotes) {
			title = fmt.Sprintf("%s %d", s.title, i/len(sampleNotes)+1)
		}
		ts := now.Add(-time.Duration(n-1-i) * time.Hour).UTC().Format(sampleTimeLayout)
		rows[i] = []string{fmt.Sprintf("sample-%d", i+1), title, s.content, ts, ts}
	}
	return rows
}
