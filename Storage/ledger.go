package Storage

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"Maintenance/Models"
)

// Ledger records every temp file before it is used so that files orphaned by
// a crash can be swept later.
type Ledger struct {
	db  *gorm.DB
	dir string
}

// NewLedger stores temp files under dir.
func NewLedger(db *gorm.DB, dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir %s: %w", dir, err)
	}
	return &Ledger{db: db, dir: dir}, nil
}

// Create opens a new temp file named after pattern (see os.CreateTemp) and
// records it.
func (l *Ledger) Create(pattern, purpose string) (*os.File, error) {
	f, err := os.CreateTemp(l.dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if err := l.db.Create(&Models.TempFile{Path: f.Name(), Purpose: purpose}).Error; err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("record temp file: %w", err)
	}
	return f, nil
}

// Release deletes the file and its ledger row. Errors are logged only.
func (l *Ledger) Release(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[temp] could not remove %s: %v", path, err)
	}
	if err := l.db.Where("path = ?", path).Delete(&Models.TempFile{}).Error; err != nil {
		log.Printf("[temp] could not clear ledger entry %s: %v", path, err)
	}
}

// Sweep removes every recorded file older than maxAge and returns how many
// entries were cleared.
func (l *Ledger) Sweep(maxAge time.Duration) (int, error) {
	var stale []Models.TempFile
	cutoff := time.Now().Add(-maxAge)
	if err := l.db.Where("created_at < ?", cutoff).Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("list stale temp files: %w", err)
	}
	for _, tf := range stale {
		l.Release(tf.Path)
	}
	return len(stale), nil
}

// Pending returns the number of files currently on the ledger.
func (l *Ledger) Pending() (int64, error) {
	var n int64
	err := l.db.Model(&Models.TempFile{}).Count(&n).Error
	return n, err
}
