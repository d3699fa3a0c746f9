package reliability

import (
	"context"
	"time"
)

// remoteBackupTimeout bounds one archive-and-upload cycle.
const remoteBackupTimeout = 15 * time.Minute

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

// DailyBackupJob wraps the daily local snapshot for the scheduler.
type DailyBackupJob struct {
	service *BackupService
}

// NewDailyBackupJob creates the daily backup job.
func NewDailyBackupJob(service *BackupService) *DailyBackupJob {
	return &DailyBackupJob{service: service}
}

// Name returns the job name for the scheduler.
func (j *DailyBackupJob) Name() string { return "daily_backup" }

// Run executes the daily backup.
func (j *DailyBackupJob) Run() error { return j.service.DailyBackup() }

// WeeklyBackupJob wraps the weekly local snapshot for the scheduler.
type WeeklyBackupJob struct {
	service *BackupService
}

// NewWeeklyBackupJob creates the weekly backup job.
func NewWeeklyBackupJob(service *BackupService) *WeeklyBackupJob {
	return &WeeklyBackupJob{service: service}
}

// Name returns the job name for the scheduler.
func (j *WeeklyBackupJob) Name() string { return "weekly_backup" }

// Run executes the weekly backup.
func (j *WeeklyBackupJob) Run() error { return j.service.WeeklyBackup() }

// MonthlyBackupJob wraps the monthly local snapshot for the scheduler.
type MonthlyBackupJob struct {
	service *BackupService
}

// NewMonthlyBackupJob creates the monthly backup job.
func NewMonthlyBackupJob(service *BackupService) *MonthlyBackupJob {
	return &MonthlyBackupJob{service: service}
}

// Name returns the job name for the scheduler.
func (j *MonthlyBackupJob) Name() string { return "monthly_backup" }

// Run executes the monthly backup.
func (j *MonthlyBackupJob) Run() error { return j.service.MonthlyBackup() }

// RemoteBackupJob wraps the remote archive upload and rotation for the
// scheduler.
type RemoteBackupJob struct {
	service       *RemoteBackupService
	retentionDays int
}

// NewRemoteBackupJob creates the remote backup job.
func NewRemoteBackupJob(service *RemoteBackupService, retentionDays int) *RemoteBackupJob {
	return &RemoteBackupJob{service: service, retentionDays: retentionDays}
}

// Name returns the job name for the scheduler.
func (j *RemoteBackupJob) Name() string { return "remote_backup" }

// Run uploads a fresh archive, then rotates old ones.
func (j *RemoteBackupJob) Run() error {
	ctx, cancel := contextWithTimeout(remoteBackupTimeout)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	return j.service.RotateOldBackups(ctx, j.retentionDays)
}
