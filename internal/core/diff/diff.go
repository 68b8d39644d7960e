// Package diff computes line-level diffs between JSON documents using a
// longest-common-subsequence table.
package diff

import (
	"bytes"
	"encoding/json"
	"strings"
)

type RowType string

const (
	Same    RowType = "same"
	Added   RowType = "added"
	Removed RowType = "removed"
)

// Row is one line of a diff. Line numbers are 1-based and zero when the line
// does not exist on that side.
type Row struct {
	Type          RowType `json:"type"`
	Line          string  `json:"line"`
	OldLineNumber int     `json:"oldLineNumber,omitempty"`
	NewLineNumber int     `json:"newLineNumber,omitempty"`
}

type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// ComputeLineDiff pretty-prints both values as two-space indented JSON and
// diffs the resulting lines.
func ComputeLineDiff(oldValue, newValue interface{}) ([]Row, error) {
	oldLines, err := Lines(oldValue)
	if err != nil {
		return nil, err
	}
	newLines, err := Lines(newValue)
	if err != nil {
		return nil, err
	}
	return DiffLines(oldLines, newLines), nil
}

// Lines renders v the way ComputeLineDiff compares it.
func Lines(v interface{}) ([]string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"), nil
}

// DiffLines walks the LCS table of the two line sequences. On ties the
// removal is emitted before the addition.
func DiffLines(oldLines, newLines []string) []Row {
	n, m := len(oldLines), len(newLines)

	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	rows := make([]Row, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case oldLines[i] == newLines[j]:
			rows = append(rows, Row{Type: Same, Line: oldLines[i], OldLineNumber: i + 1, NewLineNumber: j + 1})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			rows = append(rows, Row{Type: Removed, Line: oldLines[i], OldLineNumber: i + 1})
			i++
		default:
			rows = append(rows, Row{Type: Added, Line: newLines[j], NewLineNumber: j + 1})
			j++
		}
	}
	for ; i < n; i++ {
		rows = append(rows, Row{Type: Removed, Line: oldLines[i], OldLineNumber: i + 1})
	}
	for ; j < m; j++ {
		rows = append(rows, Row{Type: Added, Line: newLines[j], NewLineNumber: j + 1})
	}
	return rows
}

func GetDiffStats(rows []Row) Stats {
	var s Stats
	for _, r := range rows {
		switch r.Type {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		}
	}
	s.Changed = s.Added + s.Removed
	return s
}
