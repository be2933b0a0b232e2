package Sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps sheets in process memory. Used for local development and tests.
type MemoryStore struct {
	sheets map[string][][]string
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sheets: make(map[string][][]string)}
}

// EnsureSheet creates sheet with header if it does not exist yet.
func (s *MemoryStore) EnsureSheet(sheet string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sheets[sheet]; ok {
		return nil
	}
	s.sheets[sheet] = [][]string{append([]string(nil), header...)}
	return nil
}

// Seed replaces a sheet's content with header and rows.
func (s *MemoryStore) Seed(sheet string, header []string, rows ...[]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := [][]string{append([]string(nil), header...)}
	for _, r := range rows {
		values = append(values, append([]string(nil), r...))
	}
	s.sheets[sheet] = values
}

func (s *MemoryStore) Read(ctx context.Context, sheet string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", sheet, ErrSheetNotFound)
	}
	copied := make([][]string, len(values))
	for i, r := range values {
		copied[i] = append([]string(nil), r...)
	}
	return NewSnapshot(sheet, copied), nil
}

func (s *MemoryStore) Append(ctx context.Context, sheet string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("append %s: %w", sheet, ErrSheetNotFound)
	}
	s.sheets[sheet] = append(values, append([]string(nil), row...))
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, sheet string, rowNumber int, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("update %s: %w", sheet, ErrSheetNotFound)
	}
	if rowNumber < 1 || rowNumber > len(values) {
		return fmt.Errorf("update %s: row %d out of range", sheet, rowNumber)
	}
	values[rowNumber-1] = append([]string(nil), row...)
	return nil
}

func (s *MemoryStore) DeleteRow(ctx context.Context, sheet string, rowNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("delete %s: %w", sheet, ErrSheetNotFound)
	}
	if rowNumber < 2 || rowNumber > len(values) {
		return fmt.Errorf("delete %s: row %d out of range", sheet, rowNumber)
	}
	s.sheets[sheet] = append(values[:rowNumber-1], values[rowNumber:]...)
	return nil
}

func (s *MemoryStore) SetHeader(ctx context.Context, sheet string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.sheets[sheet]
	if !ok || len(values) == 0 {
		s.sheets[sheet] = [][]string{append([]string(nil), header...)}
		return nil
	}
	values[0] = append([]string(nil), header...)
	return nil
}
