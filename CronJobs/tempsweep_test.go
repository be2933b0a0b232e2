package CronJobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Maintenance/Models"
	"Maintenance/Storage"
)

func newLedger(t *testing.T) *Storage.Ledger {
	t.Helper()
	dir := t.TempDir()
	db, err := Models.Connect(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	ledger, err := Storage.NewLedger(db, filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	return ledger
}

func TestRunOnceRemovesExpiredFiles(t *testing.T) {
	ledger := newLedger(t)
	f, err := ledger.Create("orphan-*.pdf", "pdf")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fresh := NewTempSweeper(ledger, time.Hour, false)
	assert.Equal(t, 0, fresh.RunOnce())
	assert.FileExists(t, f.Name())

	expired := NewTempSweeper(ledger, -time.Second, false)
	assert.Equal(t, 1, expired.RunOnce())
	_, err = os.Stat(f.Name())
	assert.True(t, os.IsNotExist(err))

	pending, err := ledger.Pending()
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewTempSweeper(newLedger(t), time.Hour, false)
	assert.Error(t, s.Start("every now and then"))
}

func TestUpdateScheduleReplacesJob(t *testing.T) {
	s := NewTempSweeper(newLedger(t), time.Hour, false)
	require.NoError(t, s.Start("@every 1h"))
	defer s.Stop()

	require.NoError(t, s.UpdateSchedule("@every 2h"))
	assert.Len(t, s.cronScheduler.Entries(), 1)
}
