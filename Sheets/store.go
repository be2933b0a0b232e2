package Sheets

import (
	"context"
	"errors"
	"fmt"
)

// ErrSheetNotFound is returned when a collection tab does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Store is the spreadsheet collaborator. Row numbers are 1-based sheet rows;
// row 1 is the header.
type Store interface {
	Read(ctx context.Context, sheet string) (*Snapshot, error)
	Append(ctx context.Context, sheet string, row []string) error
	Update(ctx context.Context, sheet string, rowNumber int, row []string) error
	DeleteRow(ctx context.Context, sheet string, rowNumber int) error
	SetHeader(ctx context.Context, sheet string, header []string) error
}

// Snapshot is one read of a collection. It may be stale by the time a write
// based on it lands; nothing locks the sheet between the read and the write.
type Snapshot struct {
	Sheet  string
	Header []string
	Rows   [][]string
}

// NewSnapshot splits raw values into header and data rows.
func NewSnapshot(sheet string, values [][]string) *Snapshot {
	s := &Snapshot{Sheet: sheet}
	if len(values) == 0 {
		return s
	}
	s.Header = values[0]
	s.Rows = values[1:]
	return s
}

// RowNumber converts a data row index into its sheet row number.
func RowNumber(index int) int {
	return index + 2
}

// Len returns the number of data rows.
func (s *Snapshot) Len() int {
	return len(s.Rows)
}

// Column returns the header index for the first matching name, or -1.
func (s *Snapshot) Column(names ...string) int {
	return ColumnIndex(s.Header, names...)
}

// Record converts the data row at index into a header-keyed map.
func (s *Snapshot) Record(index int) map[string]string {
	return FromRow(s.Header, s.Rows[index])
}

// Records converts every data row.
func (s *Snapshot) Records() []map[string]string {
	out := make([]map[string]string, 0, len(s.Rows))
	for i := range s.Rows {
		out = append(out, s.Record(i))
	}
	return out
}

// Cell returns the value at data row index and column col, or "".
func (s *Snapshot) Cell(index, col int) string {
	if col < 0 || index < 0 || index >= len(s.Rows) {
		return ""
	}
	row := s.Rows[index]
	if col >= len(row) {
		return ""
	}
	return row[col]
}

// IndexBy maps each non-empty value of column col to its sheet row number.
// The first occurrence wins.
func (s *Snapshot) IndexBy(col int) map[string]int {
	idx := make(map[string]int, len(s.Rows))
	if col < 0 {
		return idx
	}
	for i := range s.Rows {
		v := s.Cell(i, col)
		if v == "" {
			continue
		}
		if _, seen := idx[v]; !seen {
			idx[v] = RowNumber(i)
		}
	}
	return idx
}

// Index is IndexBy for a column looked up by name.
func (s *Snapshot) Index(column string) (map[string]int, error) {
	col := s.Column(column)
	if col < 0 {
		return nil, fmt.Errorf("column %s not found in %s header", column, s.Sheet)
	}
	return s.IndexBy(col), nil
}

// Values returns every non-empty value of column col in row order.
func (s *Snapshot) Values(col int) []string {
	var out []string
	for i := range s.Rows {
		if v := s.Cell(i, col); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// RecordAt returns the record stored at a sheet row number.
func (s *Snapshot) RecordAt(rowNumber int) (map[string]string, bool) {
	i := rowNumber - 2
	if i < 0 || i >= len(s.Rows) {
		return nil, false
	}
	return s.Record(i), true
}
