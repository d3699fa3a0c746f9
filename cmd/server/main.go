// Package main is the entry point for the wallcheb ground-state projection
// service. It wires the databases, the projector service, the work
// processor, the maintenance scheduler and the HTTP API, then runs until a
// shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/cache"
	"github.com/aristath/wallcheb/internal/config"
	"github.com/aristath/wallcheb/internal/database"
	"github.com/aristath/wallcheb/internal/events"
	"github.com/aristath/wallcheb/internal/modules/experiments"
	"github.com/aristath/wallcheb/internal/projector"
	"github.com/aristath/wallcheb/internal/reliability"
	"github.com/aristath/wallcheb/internal/scheduler"
	"github.com/aristath/wallcheb/internal/server"
	"github.com/aristath/wallcheb/internal/work"
	"github.com/aristath/wallcheb/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: !cfg.LogJSON,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting wallcheb")

	// Databases: durable experiment records and the recomputable artifact
	// cache, each with its own pragma profile.
	resultsDB, err := database.New(database.Config{
		Path:    cfg.ResultsDBPath(),
		Profile: database.ProfileResults,
		Name:    "results",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open results database")
	}
	defer resultsDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := experiments.InitSchema(resultsDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize results schema")
	}
	if err := cache.InitSchema(cacheDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache schema")
	}

	databases := map[string]*database.DB{
		"results": resultsDB,
		"cache":   cacheDB,
	}

	// Repositories and the projector service.
	cacheRepo := cache.NewRepository(cacheDB.Conn())
	expRepo := experiments.NewRepository(resultsDB.Conn(), log)
	projectorService := projector.NewService(log, cacheRepo)

	// Event bus feeding the SSE and WebSocket streams.
	bus := events.NewBus(log)
	defer bus.Close()

	// Work processor: experiments first, cache purge and experiment pruning
	// behind the load and maintenance-window gates.
	registry := work.NewRegistry()
	completion := work.NewCompletionTracker()

	var processor *work.Processor
	timing := work.NewTimingChecker(
		cfg.MaintenanceStartHour,
		cfg.MaintenanceEndHour,
		func() bool { return processor != nil && processor.Busy() },
	)
	processor = work.NewProcessor(registry, completion, timing, bus, log)

	runner := work.NewExperimentRunner(expRepo, projectorService, bus, log)
	runner.RegisterWorkTypes(registry)

	maintenance := work.NewMaintenanceWork(cacheRepo, expRepo, cfg.ExperimentRetention, bus, log)
	maintenance.RegisterWorkTypes(registry)

	go processor.Run()
	defer processor.Stop()

	// Local snapshot tiers, plus the remote archive target when configured.
	backupService := reliability.NewBackupService(
		databases,
		cfg.Backup.Dir,
		reliability.Retention{
			Daily:   cfg.Backup.RetainDaily,
			Weekly:  cfg.Backup.RetainWeekly,
			Monthly: cfg.Backup.RetainMonthly,
		},
		bus,
		log,
	)

	var remoteBackups *reliability.RemoteBackupService
	if cfg.Backup.RemoteEnabled() {
		s3Client, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Endpoint:  cfg.Backup.S3Endpoint,
			Region:    cfg.Backup.S3Region,
			Bucket:    cfg.Backup.S3Bucket,
			AccessKey: cfg.Backup.S3AccessKey,
			SecretKey: cfg.Backup.S3SecretKey,
			Prefix:    cfg.Backup.S3Prefix,
		}, log)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize S3 client, remote backups disabled")
		} else {
			remoteBackups = reliability.NewRemoteBackupService(s3Client, backupService, cfg.DataDir, bus, log)
			log.Info().Str("bucket", cfg.Backup.S3Bucket).Msg("Remote backups enabled")
		}
	}

	// Calendar maintenance on the cron scheduler.
	sched := scheduler.New(log)
	jobs := registerScheduledJobs(sched, cfg, databases, backupService, remoteBackups, log)

	if cfg.SchedulerEnabled {
		sched.Start()
		defer sched.Stop()
	} else {
		log.Warn().Msg("Scheduler disabled by configuration")
	}

	srv := server.New(server.Config{
		Log:           log,
		Config:        cfg,
		Databases:     databases,
		CacheRepo:     cacheRepo,
		Experiments:   expRepo,
		Projector:     projectorService,
		Bus:           bus,
		Processor:     processor,
		Registry:      registry,
		Scheduler:     sched,
		Backups:       backupService,
		RemoteBackups: remoteBackups,
	})
	srv.SetJobs(jobs...)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	// Pick up experiments left pending by a previous run.
	processor.Trigger()

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

// registerScheduledJobs wires the calendar maintenance jobs and returns them
// for manual triggering via the API.
func registerScheduledJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	databases map[string]*database.DB,
	backupService *reliability.BackupService,
	remoteBackups *reliability.RemoteBackupService,
	log zerolog.Logger,
) []scheduler.Job {
	type entry struct {
		schedule string
		job      scheduler.Job
	}

	entries := []entry{
		// Backups run inside the maintenance window, staggered.
		{"0 30 2 * * *", reliability.NewDailyBackupJob(backupService)},
		{"0 45 2 * * SUN", reliability.NewWeeklyBackupJob(backupService)},
		{"0 0 3 1 * *", reliability.NewMonthlyBackupJob(backupService)},
		{"0 0 4 * * *", reliability.NewDailyMaintenanceJob(databases, cfg.Backup.Dir, log)},
		{"0 30 3 * * SUN", reliability.NewWeeklyVacuumJob(databases, log)},
		{"0 0 * * * *", reliability.NewWALCheckpointJob(databases, log)},
	}

	if remoteBackups != nil {
		entries = append(entries, entry{
			"0 15 3 * * *",
			reliability.NewRemoteBackupJob(remoteBackups, cfg.Backup.S3Retention),
		})
	}

	jobs := make([]scheduler.Job, 0, len(entries))
	for _, e := range entries {
		if err := sched.AddJob(e.schedule, e.job); err != nil {
			log.Error().Err(err).Str("job", e.job.Name()).Msg("Failed to register scheduled job")
			continue
		}
		jobs = append(jobs, e.job)
	}
	return jobs
}
