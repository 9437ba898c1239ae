package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/grscicoll/ihsync/internal/ih"
)

type (
	Config struct {
		HTTP
		IH
		Registry
		Notify
		Sync
		Global
		Database
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	IH struct {
		BaseURL string
	}
	Registry struct {
		BaseURL        string
		Token          string
		MigrationActor string // registry edits by this actor never count as newer
	}
	Notify struct {
		Enabled    bool
		APIURL     string
		Repository string // "owner/name"
		Token      string
	}
	Sync struct {
		Enabled       bool
		Schedule      string // Cron format: "0 3 * * 0" = weekly, Sunday 03:00
		DryRun        bool
		RetentionDays int // completed runs older than this are pruned
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("ih_base_url", ih.DefaultBaseURL)

	v.SetDefault("registry_base_url", "https://api.gbif.org/v1")
	v.SetDefault("registry_token", "")
	v.SetDefault("registry_migration_actor", DefaultMigrationActor)

	// Notification defaults
	v.SetDefault("notify_enabled", false)
	v.SetDefault("notify_api_url", "")
	v.SetDefault("notify_repository", "")
	v.SetDefault("notify_token", "")

	// Scheduled sync defaults
	v.SetDefault("sync_enabled", false)
	v.SetDefault("sync_schedule", "0 3 * * 0") // Weekly, Sunday 03:00
	v.SetDefault("sync_dry_run", true)
	v.SetDefault("sync_run_retention_days", 90)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_max_retries", 1)
	v.SetDefault("task_retry_delay", "5m")
	v.SetDefault("task_timeout", "2h")
	v.SetDefault("task_release_after", "3h")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "720h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		IH: IH{
			BaseURL: v.GetString("IH_BASE_URL"),
		},
		Registry: Registry{
			BaseURL:        v.GetString("REGISTRY_BASE_URL"),
			Token:          v.GetString("REGISTRY_TOKEN"),
			MigrationActor: v.GetString("REGISTRY_MIGRATION_ACTOR"),
		},
		Notify: Notify{
			Enabled:    v.GetBool("NOTIFY_ENABLED"),
			APIURL:     v.GetString("NOTIFY_API_URL"),
			Repository: v.GetString("NOTIFY_REPOSITORY"),
			Token:      v.GetString("NOTIFY_TOKEN"),
		},
		Sync: Sync{
			Enabled:       v.GetBool("SYNC_ENABLED"),
			Schedule:      v.GetString("SYNC_SCHEDULE"),
			DryRun:        v.GetBool("SYNC_DRY_RUN"),
			RetentionDays: v.GetInt("SYNC_RUN_RETENTION_DAYS"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}
