package Sheets

import (
	"sort"
	"strings"
)

// ToRow positions fields by header index. Headers with no matching key yield
// an empty cell; keys absent from the header are not written.
func ToRow(header []string, fields map[string]string) []string {
	row := make([]string, len(header))
	for i, col := range header {
		if col == "" {
			continue
		}
		row[i] = fields[col]
	}
	return row
}

// FromRow zips header[i] with row[i]. Cells past the end of a short row and
// columns with a blank header are skipped.
func FromRow(header []string, row []string) map[string]string {
	out := make(map[string]string, len(header))
	for i, col := range header {
		if col == "" || i >= len(row) {
			continue
		}
		out[col] = row[i]
	}
	return out
}

// UnknownFields returns the sorted keys of fields that have no header column.
func UnknownFields(header []string, fields map[string]string) []string {
	known := make(map[string]bool, len(header))
	for _, col := range header {
		known[col] = true
	}
	var unknown []string
	for k := range fields {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// ColumnIndex returns the first header matching any of names, trying exact
// matches before case-insensitive ones. It returns -1 when nothing matches.
func ColumnIndex(header []string, names ...string) int {
	for _, name := range names {
		for i, col := range header {
			if col == name {
				return i
			}
		}
	}
	for _, name := range names {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), name) {
				return i
			}
		}
	}
	return -1
}
