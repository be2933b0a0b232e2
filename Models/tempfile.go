package Models

import "time"

// TempFile records a process-local temporary file so that a crash between
// creation and cleanup can be repaired by the sweeper.
type TempFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Path      string    `gorm:"uniqueIndex;not null" json:"path"`
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
