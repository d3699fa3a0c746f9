package reliability

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/database"
)

// DailyMaintenanceJob runs the daily database health pass: integrity checks,
// WAL checkpoints, disk space and verification of yesterday's snapshots.
type DailyMaintenanceJob struct {
	databases map[string]*database.DB
	backupDir string
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates the daily maintenance job.
func NewDailyMaintenanceJob(
	databases map[string]*database.DB,
	backupDir string,
	log zerolog.Logger,
) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		databases: databases,
		backupDir: backupDir,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name for the scheduler.
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the daily maintenance job.
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("starting daily maintenance")
	startTime := time.Now()

	// Step 1: Integrity check for all databases.
	for name, db := range j.databases {
		ctx, cancel := contextWithTimeout(time.Minute)
		err := db.HealthCheck(ctx)
		cancel()
		if err != nil {
			j.log.Error().Str("database", name).Err(err).Msg("integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", name, err)
		}
	}

	// Step 2: WAL checkpoint for all databases (prevent bloat).
	for name, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Str("database", name).Err(err).Msg("WAL checkpoint failed")
			// Not critical; the autocheckpoint still bounds growth.
		}
	}

	// Step 3: Check disk space.
	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	// Step 4: Verify yesterday's snapshots.
	if err := j.verifyBackups(); err != nil {
		j.log.Error().Err(err).Msg("backup verification failed")
		// Log but don't halt - today's backup is still ahead.
	}

	// Step 5: Log database sizes.
	for name, db := range j.databases {
		stats, err := db.GetStats()
		if err != nil {
			j.log.Error().Str("database", name).Err(err).Msg("failed to get stats")
			continue
		}
		j.log.Info().
			Str("database", name).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Msg("database metrics")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("daily maintenance completed")
	return nil
}

// checkDiskSpace verifies sufficient disk space is available.
func (j *DailyMaintenanceJob) checkDiskSpace() error {
	stat := syscall.Statfs_t{}
	dataDir := filepath.Dir(j.backupDir)
	if err := syscall.Statfs(dataDir, &stat); err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(stat.Bavail*uint64(stat.Bsize)) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Msg("disk space check")

	if availableGB < 0.5 {
		return fmt.Errorf("only %.2f GB free, refusing to continue", availableGB)
	}
	if availableGB < 5.0 {
		j.log.Warn().Float64("available_gb", availableGB).Msg("disk space running low")
	}
	return nil
}

// verifyBackups opens yesterday's daily snapshots and runs integrity checks.
func (j *DailyMaintenanceJob) verifyBackups() error {
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	dailyBackupDir := filepath.Join(j.backupDir, "daily", yesterday)

	if _, err := os.Stat(dailyBackupDir); os.IsNotExist(err) {
		return fmt.Errorf("yesterday's backup directory not found: %s", dailyBackupDir)
	}

	for dbName := range j.databases {
		backupPath := filepath.Join(dailyBackupDir, dbName+".db")

		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			j.log.Error().Str("database", dbName).Str("path", backupPath).Msg("backup file missing")
			continue
		}

		backupDB, err := sql.Open("sqlite", backupPath)
		if err != nil {
			j.log.Error().Str("database", dbName).Err(err).Msg("failed to open backup")
			continue
		}

		var result string
		err = backupDB.QueryRow("PRAGMA integrity_check").Scan(&result)
		backupDB.Close()
		if err != nil || result != "ok" {
			j.log.Error().Str("database", dbName).Str("result", result).Msg("backup integrity check failed")
		} else {
			j.log.Debug().Str("database", dbName).Msg("backup verified")
		}
	}
	return nil
}

// WeeklyVacuumJob vacuums the cache database to reclaim space freed by
// expired block matrices and spectra. The results database uses incremental
// auto-vacuum and is left alone.
type WeeklyVacuumJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewWeeklyVacuumJob creates the weekly vacuum job.
func NewWeeklyVacuumJob(databases map[string]*database.DB, log zerolog.Logger) *WeeklyVacuumJob {
	return &WeeklyVacuumJob{
		databases: databases,
		log:       log.With().Str("job", "weekly_vacuum").Logger(),
	}
}

// Name returns the job name for the scheduler.
func (j *WeeklyVacuumJob) Name() string {
	return "weekly_vacuum"
}

// Run executes the weekly vacuum job.
func (j *WeeklyVacuumJob) Run() error {
	j.log.Info().Msg("starting weekly vacuum")
	startTime := time.Now()

	db, ok := j.databases["cache"]
	if !ok {
		return fmt.Errorf("cache database not found")
	}

	statsBefore, _ := db.GetStats()
	if err := db.Vacuum(); err != nil {
		return err
	}
	statsAfter, _ := db.GetStats()

	if statsBefore != nil && statsAfter != nil {
		reclaimed := float64(statsBefore.SizeBytes-statsAfter.SizeBytes) / 1024 / 1024
		j.log.Info().
			Float64("space_reclaimed_mb", reclaimed).
			Dur("duration_ms", time.Since(startTime)).
			Msg("weekly vacuum completed")
	}
	return nil
}

// WALCheckpointJob truncates the WAL files hourly so long projection batches
// cannot grow them unbounded between daily maintenance passes.
type WALCheckpointJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates the hourly WAL checkpoint job.
func NewWALCheckpointJob(databases map[string]*database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name for the scheduler.
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the WAL checkpoint job.
func (j *WALCheckpointJob) Run() error {
	for name, db := range j.databases {
		stats, err := db.GetStats()
		if err != nil {
			j.log.Warn().Str("database", name).Err(err).Msg("failed to get stats")
			continue
		}
		// Only checkpoint when the WAL has accumulated something.
		if stats.WALSizeBytes == 0 {
			continue
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Str("database", name).Err(err).Msg("WAL checkpoint failed")
			continue
		}
		j.log.Debug().
			Str("database", name).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Msg("WAL checkpointed")
	}
	return nil
}
