package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/grscicoll/ihsync/internal/database/syncruns"
)

// CleanupRunsTask removes finished sync runs older than the retention window.
type CleanupRunsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for cleanup tasks.
func (t CleanupRunsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_runs",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
		},
	}
}

// CleanupRunsProcessor creates a processor function for CleanupRunsTask.
func CleanupRunsProcessor(repo *syncruns.Repository) backlite.QueueProcessor[CleanupRunsTask] {
	return func(ctx context.Context, task CleanupRunsTask) error {
		if repo == nil {
			return fmt.Errorf("run repository not configured")
		}

		days := task.RetentionDays
		if days <= 0 {
			days = 90
		}
		cutoff := time.Now().AddDate(0, 0, -days)

		removed, err := repo.DeleteOlderThan(cutoff)
		if err != nil {
			return fmt.Errorf("cleanup runs: %w", err)
		}

		if removed > 0 {
			log.Printf("[TASK] removed %d sync runs older than %d days", removed, days)
		}
		return nil
	}
}

// NewCleanupRunsQueue creates a backlite queue for cleanup tasks.
func NewCleanupRunsQueue(repo *syncruns.Repository) backlite.Queue {
	return backlite.NewQueue(CleanupRunsProcessor(repo))
}
