package Sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
)

// ExcelStore keeps every collection as a tab of a local .xlsx workbook. It is
// the offline stand-in for the Google Sheets backend.
type ExcelStore struct {
	path string
	mu   sync.Mutex
}

// NewExcelStore uses the workbook at path, creating it on first write.
func NewExcelStore(path string) *ExcelStore {
	return &ExcelStore{path: path}
}

func (s *ExcelStore) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), nil
	}
	return nil, fmt.Errorf("open workbook %s: %w", s.path, err)
}

func (s *ExcelStore) save(f *excelize.File) error {
	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", s.path, err)
	}
	return nil
}

func hasSheet(f *excelize.File, sheet string) bool {
	idx, err := f.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

func writeRow(f *excelize.File, sheet string, rowNumber int, row []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// EnsureSheet creates sheet with header when the tab is missing.
func (s *ExcelStore) EnsureSheet(sheet string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if hasSheet(f, sheet) {
		return nil
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	// A new workbook starts with an unused default tab.
	if sheet != "Sheet1" && hasSheet(f, "Sheet1") {
		if rows, err := f.GetRows("Sheet1"); err == nil && len(rows) == 0 {
			_ = f.DeleteSheet("Sheet1")
		}
	}
	return s.save(f)
}

func (s *ExcelStore) Read(ctx context.Context, sheet string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !hasSheet(f, sheet) {
		return nil, fmt.Errorf("read %s: %w", sheet, ErrSheetNotFound)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	return NewSnapshot(sheet, rows), nil
}

func (s *ExcelStore) Append(ctx context.Context, sheet string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if !hasSheet(f, sheet) {
		return fmt.Errorf("append %s: %w", sheet, ErrSheetNotFound)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("append %s: %w", sheet, err)
	}
	if err := writeRow(f, sheet, len(rows)+1, row); err != nil {
		return fmt.Errorf("append %s: %w", sheet, err)
	}
	return s.save(f)
}

func (s *ExcelStore) Update(ctx context.Context, sheet string, rowNumber int, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if !hasSheet(f, sheet) {
		return fmt.Errorf("update %s: %w", sheet, ErrSheetNotFound)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("update %s: %w", sheet, err)
	}
	if rowNumber < 1 || rowNumber > len(rows) {
		return fmt.Errorf("update %s: row %d out of range", sheet, rowNumber)
	}
	// Pad so stale cells to the right of the new values are cleared.
	padded := row
	if width := len(rows[rowNumber-1]); width > len(row) {
		padded = make([]string, width)
		copy(padded, row)
	}
	if err := writeRow(f, sheet, rowNumber, padded); err != nil {
		return fmt.Errorf("update %s: %w", sheet, err)
	}
	return s.save(f)
}

func (s *ExcelStore) DeleteRow(ctx context.Context, sheet string, rowNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if !hasSheet(f, sheet) {
		return fmt.Errorf("delete %s: %w", sheet, ErrSheetNotFound)
	}
	if rowNumber < 2 {
		return fmt.Errorf("delete %s: row %d out of range", sheet, rowNumber)
	}
	if err := f.RemoveRow(sheet, rowNumber); err != nil {
		return fmt.Errorf("delete %s row %d: %w", sheet, rowNumber, err)
	}
	return s.save(f)
}

func (s *ExcelStore) SetHeader(ctx context.Context, sheet string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if !hasSheet(f, sheet) {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	return s.save(f)
}
