// Package server provides the HTTP server and routing for wallcheb.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/wallcheb/internal/database"
	"github.com/aristath/wallcheb/internal/events"
	"github.com/aristath/wallcheb/internal/reliability"
	"github.com/aristath/wallcheb/internal/scheduler"
	"github.com/aristath/wallcheb/internal/version"
	"github.com/aristath/wallcheb/internal/work"
)

// SystemHandlers serves system monitoring, scheduler triggers and backups.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases map[string]*database.DB
	processor *work.Processor
	scheduler *scheduler.Scheduler
	bus       *events.Bus
	backups   *reliability.BackupService
	remote    *reliability.RemoteBackupService
	startTime time.Time

	mu   sync.RWMutex
	jobs map[string]scheduler.Job
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases map[string]*database.DB,
	processor *work.Processor,
	sched *scheduler.Scheduler,
	bus *events.Bus,
	backups *reliability.BackupService,
	remote *reliability.RemoteBackupService,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		processor: processor,
		scheduler: sched,
		bus:       bus,
		backups:   backups,
		remote:    remote,
		startTime: time.Now(),
		jobs:      make(map[string]scheduler.Job),
	}
}

// SetJobs registers job instances so they can be triggered by name via the
// API. Called after the scheduler wiring in main.
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, job := range jobs {
		h.jobs[job.Name()] = job
	}
}

// RegisterRoutes registers the system routes.
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/database/stats", h.HandleDatabaseStats)
		r.Get("/disk", h.HandleDiskUsage)
		r.Get("/jobs", h.HandleJobsStatus)
		r.Post("/jobs/{name}", h.HandleTriggerJob)
		r.Get("/backups", h.HandleListBackups)
		r.Post("/backup", h.HandleTriggerBackup)
	})
}

// DBStatsInfo reports one database's size metrics.
type DBStatsInfo struct {
	Name          string `json:"name"`
	SizeBytes     int64  `json:"size_bytes"`
	WALSizeBytes  int64  `json:"wal_size_bytes"`
	PageCount     int64  `json:"page_count"`
	FreelistCount int64  `json:"freelist_count"`
}

// HandleSystemStatus handles GET /api/system/status.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.getSystemStats()

	status := map[string]interface{}{
		"status":         "ok",
		"version":        version.Version,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
		"cpu_percent":    cpuPct,
		"memory_percent": memPct,
		"work":           h.processor.GetStatus(),
		"events": map[string]interface{}{
			"subscribers": h.bus.SubscriberCount(),
			"dropped":     h.bus.Dropped(),
		},
		"databases": h.databaseStats(),
	}

	h.writeJSON(w, http.StatusOK, envelope(status))
}

// HandleDatabaseStats handles GET /api/system/database/stats.
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.databaseStats()))
}

func (h *SystemHandlers) databaseStats() []DBStatsInfo {
	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]DBStatsInfo, 0, len(names))
	for _, name := range names {
		stats, err := h.databases[name].GetStats()
		if err != nil {
			h.log.Warn().Str("database", name).Err(err).Msg("failed to get database stats")
			continue
		}
		out = append(out, DBStatsInfo{
			Name:         name,
			SizeBytes:    stats.SizeBytes,
			WALSizeBytes: stats.WALSizeBytes,
			PageCount:     stats.PageCount,
			FreelistCount: stats.FreelistCount,
		})
	}
	return out
}

// HandleDiskUsage handles GET /api/system/disk.
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	dataMB := h.getDirSize(h.dataDir)
	backupsMB := h.getDirSize(filepath.Join(h.dataDir, "backups"))

	h.writeJSON(w, http.StatusOK, envelope(map[string]float64{
		"data_dir_mb": dataMB,
		"backups_mb":  backupsMB,
	}))
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages. The CPU sample
// interval is short so the status call stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// HandleJobsStatus handles GET /api/system/jobs.
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	var jobs []scheduler.JobInfo
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	h.writeJSON(w, http.StatusOK, envelope(jobs))
}

// HandleTriggerJob handles POST /api/system/jobs/{name}. It runs the named
// scheduler job immediately, outside its schedule.
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.mu.RLock()
	job, ok := h.jobs[name]
	h.mu.RUnlock()
	if !ok {
		http.Error(w, "unknown job: "+name, http.StatusNotFound)
		return
	}

	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("manual job run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]string{
		"status": "completed",
		"job":    name,
	}))
}

// HandleListBackups handles GET /api/system/backups. Local snapshots are
// always listed; remote archives only when a remote target is configured.
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	local, err := h.backups.ListSnapshots()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list local snapshots")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"local": local,
	}

	if h.remote != nil {
		remote, err := h.remote.ListBackups(r.Context())
		if err != nil {
			h.log.Warn().Err(err).Msg("failed to list remote backups")
		} else {
			response["remote"] = remote
		}
	}

	h.writeJSON(w, http.StatusOK, envelope(response))
}

// HandleTriggerBackup handles POST /api/system/backup. It takes a daily
// snapshot immediately; with ?remote=true it also archives to the remote
// target.
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if err := h.backups.DailyBackup(); err != nil {
		h.log.Error().Err(err).Msg("manual backup failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result := map[string]string{"status": "completed"}

	if r.URL.Query().Get("remote") == "true" {
		if h.remote == nil {
			http.Error(w, "remote backups not configured", http.StatusServiceUnavailable)
			return
		}
		if err := h.remote.CreateAndUploadBackup(r.Context()); err != nil {
			h.log.Error().Err(err).Msg("manual remote backup failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		result["remote"] = "uploaded"
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
