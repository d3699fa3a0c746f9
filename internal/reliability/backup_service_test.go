package reliability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/wallcheb/internal/database"
	"github.com/aristath/wallcheb/internal/events"
)

type captureEmitter struct {
	published []events.EventData
}

func (c *captureEmitter) Publish(source string, data events.EventData) {
	c.published = append(c.published, data)
}

func newTestDatabases(t *testing.T) map[string]*database.DB {
	t.Helper()
	dir := t.TempDir()

	dbs := make(map[string]*database.DB)
	for name, profile := range map[string]database.DatabaseProfile{
		"results": database.ProfileResults,
		"cache":   database.ProfileCache,
	} {
		db, err := database.New(database.Config{
			Path:    filepath.Join(dir, name+".db"),
			Profile: profile,
			Name:    name,
		})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		_, err = db.Exec(`CREATE TABLE sample (id INTEGER PRIMARY KEY, payload TEXT)`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO sample (payload) VALUES ('x')`)
		require.NoError(t, err)

		dbs[name] = db
	}
	return dbs
}

func TestBackupService_DailyBackup(t *testing.T) {
	backupDir := t.TempDir()
	emitter := &captureEmitter{}
	svc := NewBackupService(newTestDatabases(t), backupDir, Retention{Daily: 7}, emitter, zerolog.Nop())

	require.NoError(t, svc.DailyBackup())

	date := time.Now().Format("2006-01-02")
	for _, name := range []string{"results", "cache"} {
		path := filepath.Join(backupDir, "daily", date, name+".db")
		info, err := os.Stat(path)
		require.NoError(t, err, "snapshot for %s missing", name)
		assert.Greater(t, info.Size(), int64(0))
		assert.NoError(t, svc.verifyBackup(path))
	}

	require.Len(t, emitter.published, 1)
	data, ok := emitter.published[0].(*events.BackupCompletedData)
	require.True(t, ok)
	assert.Greater(t, data.SizeBytes, int64(0))
}

func TestBackupService_BackupDatabaseOverwrites(t *testing.T) {
	svc := NewBackupService(newTestDatabases(t), t.TempDir(), Retention{}, nil, zerolog.Nop())

	target := filepath.Join(t.TempDir(), "results.db")
	require.NoError(t, svc.BackupDatabase("results", target))
	// A second run must replace the previous snapshot, not fail.
	require.NoError(t, svc.BackupDatabase("results", target))

	assert.NoError(t, svc.verifyBackup(target))
}

func TestBackupService_BackupUnknownDatabase(t *testing.T) {
	svc := NewBackupService(newTestDatabases(t), t.TempDir(), Retention{}, nil, zerolog.Nop())
	err := svc.BackupDatabase("ledger", filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}

func TestBackupService_RotateDirs(t *testing.T) {
	backupDir := t.TempDir()
	svc := NewBackupService(newTestDatabases(t), backupDir, Retention{Daily: 2}, nil, zerolog.Nop())

	dailyDir := filepath.Join(backupDir, "daily")
	for _, date := range []string{"2026-08-20", "2026-08-21", "2026-08-22", "2026-08-23"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dailyDir, date), 0755))
	}

	require.NoError(t, svc.rotateDirs(dailyDir, 2))

	entries, err := os.ReadDir(dailyDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"2026-08-22", "2026-08-23"}, names)
}

func TestBackupService_ListSnapshots(t *testing.T) {
	backupDir := t.TempDir()
	svc := NewBackupService(newTestDatabases(t), backupDir, Retention{Daily: 7, Weekly: 4}, nil, zerolog.Nop())

	require.NoError(t, svc.DailyBackup())
	require.NoError(t, svc.WeeklyBackup())

	snapshots, err := svc.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	tiers := map[string]bool{}
	for _, snap := range snapshots {
		tiers[snap.Tier] = true
		assert.Greater(t, snap.SizeBytes, int64(0))
	}
	assert.True(t, tiers["daily"])
	assert.True(t, tiers["weekly"])
}

func TestBackupService_DatabaseNames(t *testing.T) {
	svc := NewBackupService(newTestDatabases(t), t.TempDir(), Retention{}, nil, zerolog.Nop())
	assert.Equal(t, []string{"cache", "results"}, svc.DatabaseNames())
}
