package CronJobs

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"Maintenance/Storage"
	"Maintenance/middleware"
)

// TempSweeper periodically removes temp files that outlived their request,
// which only happens when the process died before cleanup ran.
type TempSweeper struct {
	cronScheduler  *cron.Cron
	ledger         *Storage.Ledger
	maxAge         time.Duration
	runImmediately bool

	mu    sync.Mutex
	jobID cron.EntryID
}

// NewTempSweeper creates a sweeper for files older than maxAge
func NewTempSweeper(ledger *Storage.Ledger, maxAge time.Duration, runImmediately bool) *TempSweeper {
	return &TempSweeper{
		cronScheduler:  cron.New(),
		ledger:         ledger,
		maxAge:         maxAge,
		runImmediately: runImmediately,
	}
}

// Start schedules the sweep. Schedules use the standard five-field cron
// syntax or descriptors such as "@every 15m".
func (s *TempSweeper) Start(schedule string) error {
	if err := s.UpdateSchedule(schedule); err != nil {
		return err
	}
	s.cronScheduler.Start()
	log.Printf("[sweep] temp sweeper started (%s, max age %s)", schedule, s.maxAge)

	if s.runImmediately {
		s.RunOnce()
	}
	return nil
}

// Stop terminates the scheduler and waits for a running sweep
func (s *TempSweeper) Stop() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
		log.Println("[sweep] temp sweeper stopped")
	}
}

// UpdateSchedule replaces the sweep schedule
func (s *TempSweeper) UpdateSchedule(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cronScheduler.AddFunc(schedule, func() { s.RunOnce() })
	if err != nil {
		return fmt.Errorf("error scheduling temp sweep: %w", err)
	}
	if s.jobID != 0 {
		s.cronScheduler.Remove(s.jobID)
	}
	s.jobID = id
	return nil
}

// RunOnce sweeps now and returns the number of files removed
func (s *TempSweeper) RunOnce() int {
	n, err := s.ledger.Sweep(s.maxAge)
	if err != nil {
		log.Printf("[sweep] %v", err)
		return 0
	}
	if n > 0 {
		middleware.TempFilesSwept.Add(float64(n))
		log.Printf("[sweep] removed %d orphaned temp file(s)", n)
	}
	return n
}
