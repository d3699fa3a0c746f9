// Package reliability holds the backup and database maintenance services:
// tiered local snapshots, remote archive upload and the scheduled jobs that
// drive them.
package reliability

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/database"
	"github.com/aristath/wallcheb/internal/events"
)

// Emitter is the slice of the event bus the reliability services need.
// Satisfied by *events.Bus.
type Emitter interface {
	Publish(source string, data events.EventData)
}

// Retention holds how many snapshots each tier keeps.
type Retention struct {
	Daily   int
	Weekly  int
	Monthly int
}

// BackupService manages tiered database backups (daily/weekly/monthly) of
// the results and cache databases using SQLite's VACUUM INTO.
type BackupService struct {
	databases map[string]*database.DB
	backupDir string
	retention Retention
	emitter   Emitter
	log       zerolog.Logger
}

// NewBackupService creates a backup service. The emitter may be nil.
func NewBackupService(
	databases map[string]*database.DB,
	backupDir string,
	retention Retention,
	emitter Emitter,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		databases: databases,
		backupDir: backupDir,
		retention: retention,
		emitter:   emitter,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// DatabaseNames returns the names of the databases covered by backups.
func (s *BackupService) DatabaseNames() []string {
	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DailyBackup snapshots every database into daily/YYYY-MM-DD and rotates old
// days out.
func (s *BackupService) DailyBackup() error {
	date := time.Now().Format("2006-01-02")
	dir := filepath.Join(s.backupDir, "daily", date)
	if err := s.backupAll(dir); err != nil {
		return err
	}
	if err := s.rotateDirs(filepath.Join(s.backupDir, "daily"), s.retention.Daily); err != nil {
		s.log.Error().Err(err).Msg("failed to rotate daily backups")
		// Don't fail - backup succeeded
	}
	return nil
}

// WeeklyBackup snapshots every database into weekly/YYYY-Wnn.
func (s *BackupService) WeeklyBackup() error {
	year, week := time.Now().ISOWeek()
	dir := filepath.Join(s.backupDir, "weekly", fmt.Sprintf("%04d-W%02d", year, week))
	if err := s.backupAll(dir); err != nil {
		return err
	}
	if err := s.rotateDirs(filepath.Join(s.backupDir, "weekly"), s.retention.Weekly); err != nil {
		s.log.Error().Err(err).Msg("failed to rotate weekly backups")
	}
	return nil
}

// MonthlyBackup snapshots every database into monthly/YYYY-MM.
func (s *BackupService) MonthlyBackup() error {
	month := time.Now().Format("2006-01")
	dir := filepath.Join(s.backupDir, "monthly", month)
	if err := s.backupAll(dir); err != nil {
		return err
	}
	if err := s.rotateDirs(filepath.Join(s.backupDir, "monthly"), s.retention.Monthly); err != nil {
		s.log.Error().Err(err).Msg("failed to rotate monthly backups")
	}
	return nil
}

// backupAll snapshots every database into dir, verifying each snapshot and
// dropping corrupted ones.
func (s *BackupService) backupAll(dir string) error {
	s.log.Info().Str("dir", dir).Msg("starting backup")
	startTime := time.Now()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	var totalBytes int64
	failures := 0
	for _, name := range s.DatabaseNames() {
		backupPath := filepath.Join(dir, name+".db")

		if err := s.BackupDatabase(name, backupPath); err != nil {
			s.log.Error().Str("database", name).Err(err).Msg("failed to backup database")
			failures++
			continue
		}

		if err := s.verifyBackup(backupPath); err != nil {
			s.log.Error().Str("database", name).Err(err).Msg("backup verification failed")
			os.Remove(backupPath)
			failures++
			continue
		}

		if info, err := os.Stat(backupPath); err == nil {
			totalBytes += info.Size()
		}
	}

	if failures == len(s.databases) {
		return fmt.Errorf("all %d database backups failed", failures)
	}

	duration := time.Since(startTime)
	s.log.Info().
		Dur("duration_ms", duration).
		Str("backup_dir", dir).
		Int64("size_bytes", totalBytes).
		Msg("backup completed")

	if s.emitter != nil {
		s.emitter.Publish("backup", &events.BackupCompletedData{
			Destination: dir,
			SizeBytes:   totalBytes,
			DurationMS:  float64(duration.Microseconds()) / 1000,
		})
	}
	return nil
}

// BackupDatabase snapshots a single database to backupPath using SQLite's
// VACUUM INTO, which produces a compact copy without WAL files.
func (s *BackupService) BackupDatabase(name, backupPath string) error {
	db, ok := s.databases[name]
	if !ok {
		return fmt.Errorf("database %s not found", name)
	}

	// VACUUM INTO refuses to overwrite.
	if _, err := os.Stat(backupPath); err == nil {
		if err := os.Remove(backupPath); err != nil {
			return fmt.Errorf("failed to remove stale backup: %w", err)
		}
	}

	if _, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", backupPath)); err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return fmt.Errorf("failed to stat backup: %w", err)
	}
	s.log.Debug().
		Str("database", name).
		Float64("size_mb", float64(info.Size())/1024/1024).
		Msg("backup created")
	return nil
}

// verifyBackup opens the snapshot and runs an integrity check.
func (s *BackupService) verifyBackup(backupPath string) error {
	backupDB, err := sql.Open("sqlite", backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer backupDB.Close()

	var result string
	if err := backupDB.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// rotateDirs deletes the oldest snapshot directories beyond keep. Directory
// names sort chronologically in every tier (dates, ISO weeks, months).
func (s *BackupService) rotateDirs(tierDir string, keep int) error {
	if keep <= 0 {
		return nil
	}

	entries, err := os.ReadDir(tierDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read backup tier directory: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	if len(dirs) <= keep {
		return nil
	}

	sort.Strings(dirs)
	for _, name := range dirs[:len(dirs)-keep] {
		path := filepath.Join(tierDir, name)
		if err := os.RemoveAll(path); err != nil {
			s.log.Warn().Str("path", path).Err(err).Msg("failed to delete old backup")
			continue
		}
		s.log.Debug().Str("path", path).Msg("deleted old backup")
	}
	return nil
}

// Snapshot describes one local backup directory.
type Snapshot struct {
	Tier      string    `json:"tier"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ListSnapshots returns the local backups across all tiers, newest first.
func (s *BackupService) ListSnapshots() ([]Snapshot, error) {
	var snapshots []Snapshot
	for _, tier := range []string{"daily", "weekly", "monthly"} {
		tierDir := filepath.Join(s.backupDir, tier)
		entries, err := os.ReadDir(tierDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s backups: %w", tier, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			path := filepath.Join(tierDir, entry.Name())
			snapshots = append(snapshots, Snapshot{
				Tier:      tier,
				Name:      entry.Name(),
				Path:      path,
				SizeBytes: dirSize(path),
				ModTime:   modTime(entry),
			})
		}
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ModTime.After(snapshots[j].ModTime)
	})
	return snapshots, nil
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

func modTime(entry os.DirEntry) time.Time {
	info, err := entry.Info()
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
