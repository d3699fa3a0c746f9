// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for databases and backups (always absolute)
	LogLevel string
	LogJSON  bool // JSON log output; console writer when false
	Port     int
	DevMode  bool

	// Scheduler controls the cron maintenance schedule.
	SchedulerEnabled bool

	// Projector guard rails for synchronous HTTP runs. Larger requests must
	// go through the experiment queue.
	MaxSyncQubits int
	MaxSyncM      int

	// ExperimentRetention is how long finished experiments are kept before
	// pruning. Zero disables pruning.
	ExperimentRetention time.Duration

	// Maintenance window for low-priority background work, in local hours.
	MaintenanceStartHour int
	MaintenanceEndHour   int

	Backup *BackupConfig
}

// BackupConfig holds local and remote backup configuration. Remote upload is
// disabled unless the S3 credentials are all present.
type BackupConfig struct {
	Dir           string // Local backup directory (defaults under DataDir)
	RetainDaily   int
	RetainWeekly  int
	RetainMonthly int

	// S3-compatible remote target.
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string
	S3Retention int // remote archives to keep
}

// RemoteEnabled reports whether the remote backup target is fully configured.
func (b *BackupConfig) RemoteEnabled() bool {
	return b.S3Bucket != "" && b.S3AccessKey != "" && b.S3SecretKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("WALLCHEB_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("WALLCHEB_PORT", 8080),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogJSON:              getEnvAsBool("LOG_JSON", false),
		SchedulerEnabled:     getEnvAsBool("SCHEDULER_ENABLED", true),
		MaxSyncQubits:        getEnvAsInt("MAX_SYNC_QUBITS", 8),
		MaxSyncM:             getEnvAsInt("MAX_SYNC_M", 16),
		ExperimentRetention:  time.Duration(getEnvAsInt("EXPERIMENT_RETENTION_DAYS", 90)) * 24 * time.Hour,
		MaintenanceStartHour: getEnvAsInt("MAINTENANCE_START_HOUR", 2),
		MaintenanceEndHour:   getEnvAsInt("MAINTENANCE_END_HOUR", 6),
		Backup:               loadBackupConfig(absDataDir),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxSyncQubits < 1 {
		return fmt.Errorf("MAX_SYNC_QUBITS must be positive, got %d", c.MaxSyncQubits)
	}
	if c.MaxSyncM < 0 {
		return fmt.Errorf("MAX_SYNC_M must be non-negative, got %d", c.MaxSyncM)
	}
	if c.MaintenanceStartHour < 0 || c.MaintenanceStartHour > 23 ||
		c.MaintenanceEndHour < 0 || c.MaintenanceEndHour > 23 {
		return fmt.Errorf("maintenance window hours must be within 0-23")
	}
	return nil
}

// ResultsDBPath is the path of the durable experiments database.
func (c *Config) ResultsDBPath() string {
	return filepath.Join(c.DataDir, "results.db")
}

// CacheDBPath is the path of the recomputable artifact cache database.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// loadBackupConfig loads backup configuration. The local tier is always on;
// the remote tier needs S3 credentials.
func loadBackupConfig(dataDir string) *BackupConfig {
	dir := getEnv("BACKUP_DIR", "")
	if dir == "" {
		dir = filepath.Join(dataDir, "backups")
	}
	return &BackupConfig{
		Dir:           dir,
		RetainDaily:   getEnvAsInt("BACKUP_RETAIN_DAILY", 7),
		RetainWeekly:  getEnvAsInt("BACKUP_RETAIN_WEEKLY", 4),
		RetainMonthly: getEnvAsInt("BACKUP_RETAIN_MONTHLY", 6),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3Region:      getEnv("S3_REGION", "auto"),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3AccessKey:   getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Prefix:      getEnv("S3_PREFIX", "wallcheb-backups"),
		S3Retention:   getEnvAsInt("S3_BACKUP_RETENTION", 14),
	}
}
